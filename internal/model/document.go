package model

type Document struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Number       string `json:"number"`
	Content      string `json:"content"`
	State        int    `json:"state"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
	IndexedMtime int64  `json:"indexed_mtime"`
	FailedMtime  int64  `json:"failed_mtime"`
}
