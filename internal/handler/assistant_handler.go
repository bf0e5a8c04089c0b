package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/lexassist/internal/model"
	"github.com/xxxsen/lexassist/internal/pkg/errcode"
	"github.com/xxxsen/lexassist/internal/pkg/response"
	"github.com/xxxsen/lexassist/internal/rag"
)

type Asker interface {
	Answer(ctx context.Context, q rag.Question) (*model.AssistantAnswer, error)
}

type TelemetryLister interface {
	List(ctx context.Context, limit, offset int) ([]model.TelemetryRecord, error)
}

// AskLimits bounds what the ask endpoint accepts.
type AskLimits struct {
	QuestionMinChars int
	QuestionMaxChars int
	MaxSourcesLimit  int
}

type AssistantHandler struct {
	asker     Asker
	telemetry TelemetryLister
	limits    AskLimits
}

func NewAssistantHandler(asker Asker, telemetry TelemetryLister, limits AskLimits) *AssistantHandler {
	return &AssistantHandler{asker: asker, telemetry: telemetry, limits: limits}
}

type askRequest struct {
	Question   string `json:"question"`
	MaxSources *int   `json:"maxSources"`
}

func (h *AssistantHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	q, err := ValidateQuestion(req.Question, req.MaxSources, h.limits)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, err.Error())
		return
	}
	q.UserID = getUserID(c)
	q.RequestID = getRequestID(c)

	answer, err := h.asker.Answer(c.Request.Context(), q)
	if err != nil {
		logger := logutil.GetLogger(c.Request.Context()).With(
			zap.String("request_id", q.RequestID),
			zap.String("user_id", q.UserID),
		)
		if errors.Is(err, rag.ErrRetrievalFailure) || errors.Is(err, rag.ErrGenerationFailure) {
			logger.Warn("assistant unavailable", zap.Error(err), zap.Bool("timeout", rag.IsTimeout(err)))
			response.Error(c, errcode.ErrAIUnavailable, "assistant unavailable")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}

func (h *AssistantHandler) Telemetry(c *gin.Context) {
	records, err := h.telemetry.List(c.Request.Context(), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, records)
}

// ValidateQuestion applies the boundary rules to a raw question. The
// returned message is safe to show to the caller.
func ValidateQuestion(text string, maxSources *int, limits AskLimits) (rag.Question, error) {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < limits.QuestionMinChars || (limits.QuestionMaxChars > 0 && n > limits.QuestionMaxChars) {
		return rag.Question{}, fmt.Errorf("question must be between %d and %d characters", limits.QuestionMinChars, limits.QuestionMaxChars)
	}
	q := rag.Question{Text: text}
	if maxSources != nil {
		if *maxSources < 1 || (limits.MaxSourcesLimit > 0 && *maxSources > limits.MaxSourcesLimit) {
			return rag.Question{}, fmt.Errorf("maxSources must be between 1 and %d", limits.MaxSourcesLimit)
		}
		q.MaxSources = *maxSources
	}
	return q, nil
}
