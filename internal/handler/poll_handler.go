package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livepoll/livepoll-backend/internal/common"
	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/livepoll/livepoll-backend/internal/middleware"
	"github.com/livepoll/livepoll-backend/internal/service"
)

// PollHandler handles poll lifecycle, participation and results requests
type PollHandler struct {
	polls service.PollService
}

// NewPollHandler creates a new PollHandler
func NewPollHandler(polls service.PollService) *PollHandler {
	return &PollHandler{polls: polls}
}

// respondError maps service errors onto the response envelope
func respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrStorageUnavailable) {
		common.ErrorResponse(c, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	_ = c.Error(err)
	common.Fail(c, err)
}

func badRequest(c *gin.Context, err error) {
	common.ErrorWithCode(c, http.StatusBadRequest, common.CodeValidation, "Invalid request body", err)
}

// Create handles POST /api/polls
// @Summary 투표 생성
// @Tags polls
// @Accept json
// @Produce json
// @Param request body domain.PollInput true "poll"
// @Success 201 {object} common.Response{data=domain.PollView}
// @Failure 400 {object} common.Response
// @Security BearerAuth
// @Router /polls [post]
func (h *PollHandler) Create(c *gin.Context) {
	var req domain.PollInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	poll, err := h.polls.Create(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Created(c, poll)
}

// ListMine handles GET /api/polls/my-polls
// @Summary 내 투표 목록
// @Tags polls
// @Produce json
// @Success 200 {object} common.Response{data=[]domain.PollView}
// @Security BearerAuth
// @Router /polls/my-polls [get]
func (h *PollHandler) ListMine(c *gin.Context) {
	polls, err := h.polls.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	common.SuccessWithMeta(c, polls, &common.Meta{Total: len(polls)})
}

// Get handles GET /api/polls/:code
// Responses and analytics are only included for the creator.
// @Summary 코드로 투표 조회
// @Tags polls
// @Produce json
// @Param code path string true "join code"
// @Success 200 {object} common.Response{data=domain.PollView}
// @Failure 404 {object} common.Response
// @Router /polls/{code} [get]
func (h *PollHandler) Get(c *gin.Context) {
	poll, err := h.polls.GetByCode(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, poll)
}

// Update handles PUT /api/polls/:code
// @Summary 투표 수정
// @Tags polls
// @Accept json
// @Produce json
// @Param code path string true "join code"
// @Param request body domain.PollInput true "poll"
// @Success 200 {object} common.Response{data=domain.PollView}
// @Security BearerAuth
// @Router /polls/{code} [put]
func (h *PollHandler) Update(c *gin.Context) {
	var req domain.PollInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	poll, err := h.polls.UpdateContent(c.Request.Context(), middleware.GetUserID(c), c.Param("code"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, poll)
}

// Delete handles DELETE /api/polls/:code
func (h *PollHandler) Delete(c *gin.Context) {
	code := service.NormalizeCode(c.Param("code"))
	if err := h.polls.Delete(c.Request.Context(), middleware.GetUserID(c), code); err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, gin.H{"code": code, "deleted": true})
}

// ToggleStatus handles PATCH /api/polls/:code/toggle-status
// @Summary 투표 활성화 전환
// @Tags polls
// @Produce json
// @Param code path string true "join code"
// @Success 200 {object} common.Response{data=domain.ActivationState}
// @Failure 500 {object} common.Response "POLL_EXPIRED when activating past the end date"
// @Security BearerAuth
// @Router /polls/{code}/toggle-status [patch]
func (h *PollHandler) ToggleStatus(c *gin.Context) {
	state, err := h.polls.ToggleActive(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, state)
}

// UpdateSettings handles PATCH /api/polls/:code/settings
func (h *PollHandler) UpdateSettings(c *gin.Context) {
	var req service.SettingsPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	state, err := h.polls.UpdateSettings(c.Request.Context(), middleware.GetUserID(c), c.Param("code"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, state)
}

// Clone handles POST /api/polls/:code/clone
func (h *PollHandler) Clone(c *gin.Context) {
	poll, err := h.polls.Clone(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Created(c, poll)
}

// Join handles POST /api/polls/:code/join
// @Summary 투표 참여
// @Tags participation
// @Accept json
// @Produce json
// @Param code path string true "join code"
// @Param request body domain.JoinInput true "participant"
// @Success 200 {object} common.Response{data=service.JoinResult}
// @Failure 500 {object} common.Response "POLL_NOT_ACTIVE"
// @Router /polls/{code}/join [post]
func (h *PollHandler) Join(c *gin.Context) {
	var req domain.JoinInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.polls.Join(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, result)
}

// Respond handles POST /api/polls/:code/respond
// @Summary 응답 제출
// @Tags participation
// @Accept json
// @Produce json
// @Param code path string true "join code"
// @Param request body domain.RespondInput true "answers"
// @Success 200 {object} common.Response{data=service.RespondResult}
// @Failure 404 {object} common.Response "participant has not joined"
// @Router /polls/{code}/respond [post]
func (h *PollHandler) Respond(c *gin.Context) {
	var req domain.RespondInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.polls.Respond(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, result)
}

// Results handles GET /api/polls/:code/results
func (h *PollHandler) Results(c *gin.Context) {
	poll, err := h.polls.GetResults(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, poll)
}

// Summaries handles GET /api/polls/:code/summaries
func (h *PollHandler) Summaries(c *gin.Context) {
	summary, err := h.polls.Summaries(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, summary)
}

// Export handles GET /api/polls/:code/export
func (h *PollHandler) Export(c *gin.Context) {
	export, err := h.polls.ExportCSV(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// ArchiveExport handles POST /api/polls/:code/export/archive
func (h *PollHandler) ArchiveExport(c *gin.Context) {
	obj, err := h.polls.ArchiveExport(c.Request.Context(), middleware.GetUserID(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Created(c, obj)
}

// LiveState handles GET /api/polls/:code/live
func (h *PollHandler) LiveState(c *gin.Context) {
	state, err := h.polls.LiveState(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.Success(c, state)
}
