package rag

import (
	"context"
	"errors"
)

var (
	// ErrRetrievalFailure means the chunk search could not be performed.
	ErrRetrievalFailure = errors.New("retrieval failure")
	// ErrGenerationFailure means the language model failed or returned
	// output that cannot be used as an answer.
	ErrGenerationFailure = errors.New("generation failure")

	errEmptyAnswer = errors.New("model returned an empty answer")
)

func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
