package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/lexassist/internal/model"
	"github.com/xxxsen/lexassist/internal/pkg/errcode"
	"github.com/xxxsen/lexassist/internal/pkg/response"
	"github.com/xxxsen/lexassist/internal/service"
)

type DocumentManager interface {
	Create(ctx context.Context, in service.DocumentInput) (*model.Document, error)
	Update(ctx context.Context, docID string, in service.DocumentInput) (*model.Document, error)
	Get(ctx context.Context, docID string) (*model.Document, error)
	List(ctx context.Context, limit, offset uint) ([]model.Document, error)
	Delete(ctx context.Context, docID string) error
	IndexDocument(ctx context.Context, doc *model.Document) (int, error)
}

type DocumentHandler struct {
	documents DocumentManager
}

func NewDocumentHandler(documents DocumentManager) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req service.DocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	doc, err := h.documents.Create(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	var req service.DocumentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	doc, err := h.documents.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	docs, err := h.documents.List(c.Request.Context(), uint(limit), uint(queryInt(c, "offset", 0)))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Index rebuilds the chunks of one document right away instead of waiting
// for the background job.
func (h *DocumentHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	doc, err := h.documents.Get(ctx, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	n, err := h.documents.IndexDocument(ctx, doc)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunks": n})
}
