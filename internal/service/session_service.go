package service

import (
	"context"
	"time"

	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/livepoll/livepoll-backend/internal/repository"
	pkglogger "github.com/livepoll/livepoll-backend/pkg/logger"
)

// SessionService drives live presentation sessions. Navigation calls accept
// the caller's session token; an empty token skips the supersession check.
type SessionService interface {
	AdminJoin(ctx context.Context, userID, code string) (domain.LiveState, error)
	AdminLeave(ctx context.Context, userID, code, token string) (domain.LiveState, error)
	NextQuestion(ctx context.Context, userID, code, token string) (domain.LiveState, error)
	PreviousQuestion(ctx context.Context, userID, code, token string) (domain.LiveState, error)
	JumpToQuestion(ctx context.Context, userID, code, token string, index int) (domain.LiveState, error)
	ToggleViewMode(ctx context.Context, userID, code string) (domain.LiveState, error)
}

type sessionService struct {
	repo     repository.PollRepository
	notifier Notifier
	now      func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(repo repository.PollRepository, opts ...Option) SessionService {
	o := buildOptions(opts)
	return &sessionService{repo: repo, notifier: o.notifier, now: o.now}
}

// apply runs cmd on the creator's poll and broadcasts the resulting state
func (s *sessionService) apply(ctx context.Context, op, userID, code, token string, cmd func(p *domain.Poll) error) (domain.LiveState, error) {
	code = NormalizeCode(code)
	now := s.now()
	p, err := s.repo.Update(ctx, code, func(p *domain.Poll) error {
		settle(p, now)
		if !p.IsCreator(userID) {
			return domain.ErrAccessDenied
		}
		if err := p.CheckSession(token); err != nil {
			return err
		}
		return cmd(p)
	})
	sessionOpsTotal.WithLabelValues(op, outcome(err)).Inc()
	if err != nil {
		return domain.LiveState{}, err
	}

	state := p.LiveState()
	log := pkglogger.WithUserID(userID)
	log.Debug().
		Str("poll_code", code).
		Str("op", op).
		Bool("admin_joined", state.AdminJoined).
		Int("index", state.CurrentQuestionIndex).
		Int64("epoch", state.AdminSessionEpoch).
		Msg("session updated")
	s.notifier.Publish(code, EventLiveState, state)
	return state, nil
}

func (s *sessionService) AdminJoin(ctx context.Context, userID, code string) (domain.LiveState, error) {
	return s.apply(ctx, "admin_join", userID, code, "", func(p *domain.Poll) error {
		p.AdminJoin()
		return nil
	})
}

func (s *sessionService) AdminLeave(ctx context.Context, userID, code, token string) (domain.LiveState, error) {
	return s.apply(ctx, "admin_leave", userID, code, token, func(p *domain.Poll) error {
		p.AdminLeave()
		return nil
	})
}

func (s *sessionService) NextQuestion(ctx context.Context, userID, code, token string) (domain.LiveState, error) {
	return s.apply(ctx, "next", userID, code, token, (*domain.Poll).NextQuestion)
}

func (s *sessionService) PreviousQuestion(ctx context.Context, userID, code, token string) (domain.LiveState, error) {
	return s.apply(ctx, "previous", userID, code, token, (*domain.Poll).PreviousQuestion)
}

func (s *sessionService) JumpToQuestion(ctx context.Context, userID, code, token string, index int) (domain.LiveState, error) {
	return s.apply(ctx, "jump", userID, code, token, func(p *domain.Poll) error {
		return p.JumpToQuestion(index)
	})
}

func (s *sessionService) ToggleViewMode(ctx context.Context, userID, code string) (domain.LiveState, error) {
	return s.apply(ctx, "toggle_view_mode", userID, code, "", func(p *domain.Poll) error {
		p.ToggleViewMode()
		return nil
	})
}
