package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/livepoll/livepoll-backend/internal/config"
	"github.com/livepoll/livepoll-backend/internal/handler"
	"github.com/livepoll/livepoll-backend/internal/middleware"
	"github.com/livepoll/livepoll-backend/pkg/jwt"
	"github.com/redis/go-redis/v9"
)

// createPerMinute caps poll creation per user
const createPerMinute = 20

// Handlers bundles the HTTP handlers mounted by Setup
type Handlers struct {
	Poll    *handler.PollHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// Setup configures all API routes. redisClient may be nil, which disables
// rate limiting.
func Setup(
	router *gin.Engine,
	h Handlers,
	jwtManager *jwt.Manager,
	redisClient *redis.Client,
	limits config.RateLimitConfig,
) {
	if !limits.Enabled {
		redisClient = nil
	}
	auth := middleware.JWTAuth(jwtManager)
	optionalAuth := middleware.OptionalJWTAuth(jwtManager)

	limit := func(prefix string, perMinute int, key func(*gin.Context) string) gin.HandlerFunc {
		cfg := middleware.DefaultRateLimitConfig()
		cfg.KeyPrefix += prefix + ":"
		cfg.RequestsPerMinute = perMinute
		cfg.KeyFunc = key
		return middleware.RateLimit(redisClient, cfg)
	}

	polls := router.Group("/api/polls")
	{
		// 생성 및 내 목록 (로그인 필요)
		polls.POST("", auth, limit("create", createPerMinute, middleware.ByUser), h.Poll.Create)
		polls.GET("/my-polls", auth, h.Poll.ListMine)

		// 조회 (공개, 작성자면 응답 포함)
		polls.GET("/:code", optionalAuth, h.Poll.Get)
		polls.GET("/:code/live", h.Poll.LiveState)

		// 참여 (공개)
		polls.POST("/:code/join", limit("join", limits.JoinPerMinute, middleware.ByPollAndIP), h.Poll.Join)
		polls.POST("/:code/respond", limit("respond", limits.RespondPerMinute, middleware.ByPollAndIP), h.Poll.Respond)

		// 작성자 전용
		owner := polls.Group("/:code", auth)
		owner.PUT("", h.Poll.Update)
		owner.DELETE("", h.Poll.Delete)
		owner.PATCH("/toggle-status", h.Poll.ToggleStatus)
		owner.PATCH("/settings", h.Poll.UpdateSettings)
		owner.POST("/clone", h.Poll.Clone)
		owner.GET("/results", h.Poll.Results)
		owner.GET("/summaries", h.Poll.Summaries)
		owner.GET("/export", h.Poll.Export)
		owner.POST("/export/archive", h.Poll.ArchiveExport)

		// 발표 세션
		owner.POST("/admin-join", h.Session.AdminJoin)
		owner.POST("/admin-leave", h.Session.AdminLeave)
		owner.POST("/admin-next-question", h.Session.NextQuestion)
		owner.POST("/admin-previous-question", h.Session.PreviousQuestion)
		owner.POST("/admin-jump-question", h.Session.JumpToQuestion)
		owner.PATCH("/toggle-view-mode", h.Session.ToggleViewMode)
	}

	if h.WS != nil {
		router.GET("/ws/polls/:code", h.WS.Connect)
	}
}
