package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livepoll/livepoll-backend/internal/common"
	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/livepoll/livepoll-backend/internal/middleware"
	"github.com/livepoll/livepoll-backend/internal/service"
)

// AdminSessionHeader carries the presenter's session token
const AdminSessionHeader = "X-Admin-Session"

// SessionHandler handles live presentation requests
type SessionHandler struct {
	sessions service.SessionService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionRequest struct {
	SessionID     string `json:"sessionId"`
	QuestionIndex *int   `json:"questionIndex"`
}

// bindSession reads the optional body and resolves the session token,
// preferring the header over the body field.
func bindSession(c *gin.Context) (sessionRequest, bool) {
	var req sessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return req, false
		}
	}
	if token := c.GetHeader(AdminSessionHeader); token != "" {
		req.SessionID = token
	}
	return req, true
}

func (h *SessionHandler) reply(c *gin.Context, state domain.LiveState, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, state)
}

// AdminJoin handles POST /api/polls/:code/admin-join
// @Summary 발표자 세션 시작
// @Tags session
// @Produce json
// @Param code path string true "join code"
// @Success 200 {object} common.Response{data=domain.LiveState}
// @Security BearerAuth
// @Router /polls/{code}/admin-join [post]
func (h *SessionHandler) AdminJoin(c *gin.Context) {
	state, err := h.sessions.AdminJoin(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	h.reply(c, state, err)
}

// AdminLeave handles POST /api/polls/:code/admin-leave
func (h *SessionHandler) AdminLeave(c *gin.Context) {
	req, ok := bindSession(c)
	if !ok {
		return
	}
	state, err := h.sessions.AdminLeave(c.Request.Context(), middleware.GetUserID(c), c.Param("code"), req.SessionID)
	h.reply(c, state, err)
}

// NextQuestion handles POST /api/polls/:code/admin-next-question
func (h *SessionHandler) NextQuestion(c *gin.Context) {
	req, ok := bindSession(c)
	if !ok {
		return
	}
	state, err := h.sessions.NextQuestion(c.Request.Context(), middleware.GetUserID(c), c.Param("code"), req.SessionID)
	h.reply(c, state, err)
}

// PreviousQuestion handles POST /api/polls/:code/admin-previous-question
func (h *SessionHandler) PreviousQuestion(c *gin.Context) {
	req, ok := bindSession(c)
	if !ok {
		return
	}
	state, err := h.sessions.PreviousQuestion(c.Request.Context(), middleware.GetUserID(c), c.Param("code"), req.SessionID)
	h.reply(c, state, err)
}

// JumpToQuestion handles POST /api/polls/:code/admin-jump-question
// @Summary 특정 질문으로 이동
// @Tags session
// @Accept json
// @Produce json
// @Param code path string true "join code"
// @Param request body sessionRequest true "questionIndex is required"
// @Success 200 {object} common.Response{data=domain.LiveState}
// @Failure 500 {object} common.Response "INVALID_INDEX"
// @Security BearerAuth
// @Router /polls/{code}/admin-jump-question [post]
func (h *SessionHandler) JumpToQuestion(c *gin.Context) {
	req, ok := bindSession(c)
	if !ok {
		return
	}
	if req.QuestionIndex == nil {
		common.ErrorWithCode(c, http.StatusBadRequest, common.CodeValidation, "questionIndex is required", nil)
		return
	}
	state, err := h.sessions.JumpToQuestion(c.Request.Context(), middleware.GetUserID(c), c.Param("code"), req.SessionID, *req.QuestionIndex)
	h.reply(c, state, err)
}

// ToggleViewMode handles PATCH /api/polls/:code/toggle-view-mode
func (h *SessionHandler) ToggleViewMode(c *gin.Context) {
	state, err := h.sessions.ToggleViewMode(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	h.reply(c, state, err)
}
