package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/livepoll/livepoll-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"access denied", domain.ErrAccessDenied, http.StatusForbidden, "FORBIDDEN"},
		{"poll not found", domain.ErrPollNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"participant not found", domain.ErrParticipantNotFound, http.StatusNotFound, CodeParticipantAbsent},
		{"validation", &domain.ValidationError{Field: "title", Message: "is required"}, http.StatusBadRequest, CodeValidation},
		{"not active", domain.ErrNotActive, http.StatusInternalServerError, CodePollNotActive},
		{"expired", fmt.Errorf("respond: %w", domain.ErrExpired), http.StatusInternalServerError, CodePollExpired},
		{"duplicate", domain.ErrDuplicateResponse, http.StatusInternalServerError, CodeDuplicateResponse},
		{"boundary", &domain.BoundaryError{Last: true}, http.StatusInternalServerError, CodeBoundary},
		{"superseded", domain.ErrSessionSuperseded, http.StatusInternalServerError, CodeSessionSuperseded},
		{"conflict", repository.ErrConflict, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestFail_PassesMessageThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, &domain.BoundaryError{Last: false})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeBoundary, resp.Error.Code)
	assert.Equal(t, "already at the first question", resp.Error.Message)
}
