package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livepoll/livepoll-backend/internal/domain"
)

// Machine-readable error codes for poll failures that share a status
const (
	CodePollNotActive     = "POLL_NOT_ACTIVE"
	CodePollExpired       = "POLL_EXPIRED"
	CodeDuplicateResponse = "DUPLICATE_RESPONSE"
	CodeNotLive           = "NOT_LIVE"
	CodeBoundary          = "BOUNDARY"
	CodeInvalidIndex      = "INVALID_INDEX"
	CodeSessionSuperseded = "SESSION_SUPERSEDED"
	CodeParticipantAbsent = "PARTICIPANT_NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
)

var codedErrors = []struct {
	err  error
	code string
}{
	{domain.ErrNotActive, CodePollNotActive},
	{domain.ErrExpired, CodePollExpired},
	{domain.ErrDuplicateResponse, CodeDuplicateResponse},
	{domain.ErrNotLive, CodeNotLive},
	{domain.ErrBoundary, CodeBoundary},
	{domain.ErrInvalidIndex, CodeInvalidIndex},
	{domain.ErrSessionSuperseded, CodeSessionSuperseded},
}

// Classify maps an error to an HTTP status and error code.
// Access denied is 403, anything not found 404, malformed input 400.
// Every other failure is 500 with a specific code when one is known.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, getErrorCode(http.StatusForbidden)
	case errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusNotFound, CodeParticipantAbsent
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, getErrorCode(http.StatusNotFound)
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	}
	for _, ce := range codedErrors {
		if errors.Is(err, ce.err) {
			return http.StatusInternalServerError, ce.code
		}
	}
	return http.StatusInternalServerError, getErrorCode(http.StatusInternalServerError)
}

// Fail writes err using Classify. The message is passed through as is.
func Fail(c *gin.Context, err error) {
	status, code := Classify(err)
	ErrorWithCode(c, status, code, err.Error(), nil)
}
