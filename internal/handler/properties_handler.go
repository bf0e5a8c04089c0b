package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/lexassist/internal/pkg/response"
)

// Properties is what a client needs to validate questions before sending
// them.
type Properties struct {
	QuestionMinChars  int    `json:"question_min_chars"`
	QuestionMaxChars  int    `json:"question_max_chars"`
	DefaultMaxSources int    `json:"default_max_sources"`
	MaxSourcesLimit   int    `json:"max_sources_limit"`
	Language          string `json:"language"`
}

type PropertiesHandler struct {
	properties Properties
}

func NewPropertiesHandler(properties Properties) *PropertiesHandler {
	return &PropertiesHandler{properties: properties}
}

func (h *PropertiesHandler) Get(c *gin.Context) {
	response.Success(c, gin.H{"properties": h.properties})
}
