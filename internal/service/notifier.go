package service

// Live event types pushed to poll subscribers
const (
	EventPollUpdated       = "poll_updated"
	EventStatusChanged     = "status_changed"
	EventSettingsUpdated   = "settings_updated"
	EventParticipantJoined = "participant_joined"
	EventResponseReceived  = "response_received"
	EventLiveState         = "live_state"
	EventPollDeleted       = "poll_deleted"
)

// Notifier fans poll events out to live subscribers of a poll code.
// Implementations must not block the caller.
type Notifier interface {
	Publish(code, eventType string, payload interface{})
}

// NopNotifier drops every event
type NopNotifier struct{}

// Publish does nothing
func (NopNotifier) Publish(string, string, interface{}) {}

// ParticipantJoinedPayload is sent with EventParticipantJoined
type ParticipantJoinedPayload struct {
	ParticipantID     string `json:"participantId"`
	ParticipantName   string `json:"participantName"`
	TotalParticipants int    `json:"totalParticipants"`
}

// ResponseReceivedPayload is sent with EventResponseReceived
type ResponseReceivedPayload struct {
	ParticipantID  string `json:"participantId"`
	TotalResponses int    `json:"totalResponses"`
	Version        int64  `json:"version"`
}
