package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/livepoll/livepoll-backend/internal/service"
	"github.com/livepoll/livepoll-backend/internal/ws"
)

// WSHandler upgrades poll watchers to WebSocket connections
type WSHandler struct {
	hub            *ws.Hub
	polls          service.PollService
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. allowedOrigins is comma separated;
// empty allows any origin.
func NewWSHandler(hub *ws.Hub, polls service.PollService, allowedOrigins string) *WSHandler {
	h := &WSHandler{
		hub:            hub,
		polls:          polls,
		allowedOrigins: parseOrigins(allowedOrigins),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func parseOrigins(origins string) []string {
	var out []string
	for _, p := range strings.Split(origins, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 || h.allowedOrigins[0] == "*" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Connect handles GET /ws/polls/:code
// The first frame is always a live_state snapshot so late joiners sync
// without waiting for the next presenter action.
// @Summary 투표 실시간 이벤트 WebSocket
// @Tags session
// @Param code path string true "join code"
// @Router /ws/polls/{code} [get]
func (h *WSHandler) Connect(c *gin.Context) {
	state, err := h.polls.LiveState(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	snapshot, err := json.Marshal(&ws.Event{Type: service.EventLiveState, Code: state.Code, Payload: state})
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, state.Code)
	client.Enqueue(snapshot)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
