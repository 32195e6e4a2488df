package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/livepoll/livepoll-backend/internal/repository"
	"github.com/livepoll/livepoll-backend/pkg/cache"
	pkglogger "github.com/livepoll/livepoll-backend/pkg/logger"
	"github.com/livepoll/livepoll-backend/pkg/storage"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	codeAlphabet        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength          = 6
	defaultCodeAttempts = 10
)

var (
	// ErrStorageUnavailable is returned by ArchiveExport when no object store is configured
	ErrStorageUnavailable = errors.New("export storage is not configured")
	// ErrCodeExhausted means no free join code was found within the attempt budget
	ErrCodeExhausted = errors.New("could not allocate a unique poll code")
)

// Archiver stores exported files. *storage.S3Client implements it.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*storage.Object, error)
}

// JoinedPoll is the slice of a poll a participant needs after joining
type JoinedPoll struct {
	ID                   string            `json:"id"`
	Code                 string            `json:"code"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Questions            []domain.Question `json:"questions"`
	ViewMode             domain.ViewMode   `json:"viewMode"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	AdminJoined          bool              `json:"adminJoined"`
}

// JoinResult is returned by Join
type JoinResult struct {
	ParticipantID string     `json:"participantId"`
	Rejoined      bool       `json:"rejoined"`
	Poll          JoinedPoll `json:"poll"`
}

// RespondResult is returned by Respond
type RespondResult struct {
	ParticipantID  string    `json:"participantId"`
	SubmittedAt    time.Time `json:"submittedAt"`
	TotalResponses int       `json:"totalResponses"`
}

// SettingsPatch direct writes of the settings endpoint; nil fields are kept
type SettingsPatch struct {
	ShowResults *bool `json:"showResults"`
	IsActive    *bool `json:"isActive"`
}

// ResultsSummary per-question chart data for the results page
type ResultsSummary struct {
	Code      string                   `json:"code"`
	Title     string                   `json:"title"`
	Version   int64                    `json:"version"`
	Analytics domain.Analytics         `json:"analytics"`
	Questions []domain.QuestionSummary `json:"questions"`
}

// Export is a rendered CSV file
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PollService poll lifecycle, participation and results
type PollService interface {
	Create(ctx context.Context, creatorID string, in domain.PollInput) (domain.PollView, error)
	UpdateContent(ctx context.Context, userID, code string, in domain.PollInput) (domain.PollView, error)
	ToggleActive(ctx context.Context, userID, code string) (domain.ActivationState, error)
	UpdateSettings(ctx context.Context, userID, code string, patch SettingsPatch) (domain.ActivationState, error)
	Clone(ctx context.Context, userID, code string) (domain.PollView, error)
	Delete(ctx context.Context, userID, code string) error

	Join(ctx context.Context, code string, in domain.JoinInput) (*JoinResult, error)
	Respond(ctx context.Context, code string, in domain.RespondInput) (*RespondResult, error)

	GetByCode(ctx context.Context, requesterID, code string) (domain.PollView, error)
	ListMine(ctx context.Context, creatorID string) ([]domain.PollView, error)
	GetResults(ctx context.Context, userID, code string) (domain.PollView, error)
	Summaries(ctx context.Context, userID, code string) (*ResultsSummary, error)
	ExportCSV(ctx context.Context, userID, code string) (*Export, error)
	ArchiveExport(ctx context.Context, userID, code string) (*storage.Object, error)
	LiveState(ctx context.Context, code string) (domain.LiveState, error)
}

type pollService struct {
	repo         repository.PollRepository
	cache        cache.Service
	notifier     Notifier
	archiver     Archiver
	now          func() time.Time
	newCode      func() (string, error)
	codeAttempts int
}

// Option customizes a service
type Option func(*options)

type options struct {
	notifier     Notifier
	archiver     Archiver
	now          func() time.Time
	newCode      func() (string, error)
	codeAttempts int
}

// WithNotifier sets the live event sink
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithArchiver enables ArchiveExport
func WithArchiver(a Archiver) Option {
	return func(o *options) { o.archiver = a }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCodeGenerator overrides the join code generator
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(o *options) { o.newCode = gen }
}

// WithCodeAttempts bounds join code allocation retries
func WithCodeAttempts(n int) Option {
	return func(o *options) { o.codeAttempts = n }
}

func buildOptions(opts []Option) options {
	o := options{
		notifier:     NopNotifier{},
		now:          time.Now,
		newCode:      GenerateCode,
		codeAttempts: defaultCodeAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codeAttempts < 1 {
		o.codeAttempts = 1
	}
	return o
}

// NewPollService creates a new PollService. cacheSvc may wrap a nil redis
// client, in which case summaries are always recomputed.
func NewPollService(repo repository.PollRepository, cacheSvc cache.Service, opts ...Option) PollService {
	o := buildOptions(opts)
	if cacheSvc == nil {
		cacheSvc = cache.NewService(nil)
	}
	return &pollService{
		repo:         repo,
		cache:        cacheSvc,
		notifier:     o.notifier,
		archiver:     o.archiver,
		now:          o.now,
		newCode:      o.newCode,
		codeAttempts: o.codeAttempts,
	}
}

// GenerateCode returns a random 6 character join code
func GenerateCode() (string, error) {
	return gonanoid.Generate(codeAlphabet, codeLength)
}

// NormalizeCode canonicalizes a join code from a URL
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// settle applies every read-time correction. Returns whether the poll
// changed and whether its activation flipped.
func settle(p *domain.Poll, now time.Time) (changed, flipped bool) {
	if len(domain.Upgrade(p)) > 0 {
		changed = true
	}
	if p.Reconcile(now) {
		changed, flipped = true, true
	}
	if p.HealAnalytics() {
		changed = true
	}
	return changed, flipped
}

// refresh loads a poll and persists read-time corrections
func (s *pollService) refresh(ctx context.Context, code string) (*domain.Poll, error) {
	now := s.now()
	var flipped bool
	p, err := s.repo.Update(ctx, code, func(p *domain.Poll) error {
		var changed bool
		changed, flipped = settle(p, now)
		if !changed {
			return repository.ErrNoChanges
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if flipped {
		log := pkglogger.WithPoll(code)
		log.Info().Msg("poll deactivated by end date")
		s.notifier.Publish(code, EventStatusChanged, p.ActivationState(now))
	}
	return p, nil
}

// owned loads a poll and checks that userID created it
func (s *pollService) owned(ctx context.Context, userID, code string) (*domain.Poll, error) {
	p, err := s.refresh(ctx, code)
	if err != nil {
		return nil, err
	}
	if !p.IsCreator(userID) {
		return nil, domain.ErrAccessDenied
	}
	return p, nil
}

// insert allocates a free join code for build and stores the poll
func (s *pollService) insert(ctx context.Context, build func(code string) *domain.Poll) (*domain.Poll, error) {
	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate poll code: %w", err)
		}
		exists, err := s.repo.ExistsByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		p := build(code)
		err = s.repo.Create(ctx, p)
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, err
		}
		pollsCreatedTotal.Inc()
		return p, nil
	}
	return nil, ErrCodeExhausted
}

func (s *pollService) Create(ctx context.Context, creatorID string, in domain.PollInput) (domain.PollView, error) {
	questions, err := in.Normalize()
	if err != nil {
		return domain.PollView{}, err
	}
	now := s.now()
	p, err := s.insert(ctx, func(code string) *domain.Poll {
		return domain.NewPoll(uuid.NewString(), code, creatorID, in, questions, now)
	})
	if err != nil {
		return domain.PollView{}, err
	}

	log := pkglogger.WithPoll(p.Code)
	log.Info().Str("creator_id", creatorID).Int("questions", len(questions)).Msg("poll created")
	return domain.NewPollView(p, true, now), nil
}

func (s *pollService) UpdateContent(ctx context.Context, userID, code string, in domain.PollInput) (domain.PollView, error) {
	questions, err := in.Normalize()
	if err != nil {
		return domain.PollView{}, err
	}
	code = NormalizeCode(code)
	now := s.now()
	p, err := s.repo.Update(ctx, code, func(p *domain.Poll) error {
		settle(p, now)
		if !p.IsCreator(userID) {
			return domain.ErrAccessDenied
		}
		p.Title = in.Title
		p.Description = in.Description
		p.Questions = questions
		p.Settings = in.Settings.MergeInto(p.Settings)
		p.RecomputeActive(now)
		return nil
	})
	if err != nil {
		return domain.PollView{}, err
	}

	s.notifier.Publish(p.Code, EventPollUpdated, domain.NewPollView(p, false, now))
	return domain.NewPollView(p, true, now), nil
}

func (s *pollService) ToggleActive(ctx context.Context, userID, code string) (domain.ActivationState, error) {
	code = NormalizeCode(code)
	now := s.now()
	p, err := s.repo.Update(ctx, code, func(p *domain.Poll) error {
		settle(p, now)
		if !p.IsCreator(userID) {
			return domain.ErrAccessDenied
		}
		return p.ToggleActive(now)
	})
	if err != nil {
		return domain.ActivationState{}, err
	}

	state := p.ActivationState(now)
	log := pkglogger.WithPoll(code)
	log.Info().Bool("is_active", state.IsActive).Msg("poll activation toggled")
	s.notifier.Publish(code, EventStatusChanged, state)
	return state, nil
}

func (s *pollService) UpdateSettings(ctx context.Context, userID, code string, patch SettingsPatch) (domain.ActivationState, error) {
	code = NormalizeCode(code)
	now := s.now()
	p, err := s.repo.Update(ctx, code, func(p *domain.Poll) error {
		settle(p, now)
		if !p.IsCreator(userID) {
			return domain.ErrAccessDenied
		}
		if patch.ShowResults != nil {
			p.Settings.ShowResults = *patch.ShowResults
		}
		if patch.IsActive != nil {
			p.IsActive = *patch.IsActive
		}
		return nil
	})
	if err != nil {
		return domain.ActivationState{}, err
	}

	state := p.ActivationState(now)
	s.notifier.Publish(code, EventSettingsUpdated, state)
	return state, nil
}

func (s *pollService) Clone(ctx context.Context, userID, code string) (domain.PollView, error) {
	src, err := s.owned(ctx, userID, NormalizeCode(code))
	if err != nil {
		return domain.PollView{}, err
	}
	now := s.now()
	p, err := s.insert(ctx, func(newCode string) *domain.Poll {
		return src.CloneAs(uuid.NewString(), newCode, userID, now)
	})
	if err != nil {
		return domain.PollView{}, err
	}

	log := pkglogger.WithPoll(p.Code)
	log.Info().Str("source", src.Code).Msg("poll cloned")
	return domain.NewPollView(p, true, now), nil
}

func (s *pollService) Delete(ctx context.Context, userID, code string) error {
	code = NormalizeCode(code)
	p, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	if !p.IsCreator(userID) {
		return domain.ErrAccessDenied
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}
	if err := s.cache.InvalidateSummaries(ctx, code); err != nil {
		pkglogger.Warn("invalidate summaries for %s: %v", code, err)
	}

	s.notifier.Publish(code, EventPollDeleted, map[string]string{"code": code})
	return nil
}

func (s *pollService) Join(ctx context.Context, code string, in domain.JoinInput) (*JoinResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	code = NormalizeCode(code)
	now := s.now()

	var pt domain.Participant
	var rejoined bool
	p, err := s.repo.Update(ctx, code, func(p *domain.Poll) error {
		changed, _ := settle(p, now)
		var err error
		pt, rejoined, err = p.Join(in.ParticipantName, in.ParticipantEmail, now)
		switch {
		case err != nil && changed:
			return repository.Persist(err)
		case err != nil:
			return err
		case rejoined && !changed:
			return repository.ErrNoChanges
		}
		return nil
	})
	if err != nil {
		pollJoinsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if rejoined {
		pollJoinsTotal.WithLabelValues("rejoin").Inc()
	} else {
		pollJoinsTotal.WithLabelValues("new").Inc()
		s.notifier.Publish(code, EventParticipantJoined, ParticipantJoinedPayload{
			ParticipantID:     pt.ID,
			ParticipantName:   pt.Name,
			TotalParticipants: p.Analytics.TotalParticipants,
		})
	}

	return &JoinResult{
		ParticipantID: pt.ID,
		Rejoined:      rejoined,
		Poll: JoinedPoll{
			ID:                   p.ID,
			Code:                 p.Code,
			Title:                p.Title,
			Description:          p.Description,
			Questions:            p.Questions,
			ViewMode:             p.ViewMode,
			CurrentQuestionIndex: p.CurrentQuestionIndex,
			AdminJoined:          p.AdminJoined,
		},
	}, nil
}

func (s *pollService) Respond(ctx context.Context, code string, in domain.RespondInput) (*RespondResult, error) {
	code = NormalizeCode(code)
	now := s.now()

	var resp domain.Response
	p, err := s.repo.Update(ctx, code, func(p *domain.Poll) error {
		changed, _ := settle(p, now)
		if err := in.Validate(p); err != nil {
			return err
		}
		var err error
		resp, err = p.Respond(in, now)
		switch {
		case errors.Is(err, domain.ErrExpired):
			return repository.Persist(err)
		case err != nil && changed:
			return repository.Persist(err)
		}
		return err
	})
	if err != nil {
		pollResponsesTotal.WithLabelValues("rejected").Inc()
		if errors.Is(err, domain.ErrExpired) && p != nil {
			s.notifier.Publish(code, EventStatusChanged, p.ActivationState(now))
		}
		return nil, err
	}

	pollResponsesTotal.WithLabelValues("accepted").Inc()
	s.notifier.Publish(code, EventResponseReceived, ResponseReceivedPayload{
		ParticipantID:  resp.ParticipantID,
		TotalResponses: p.Analytics.TotalResponses,
		Version:        p.Version,
	})
	return &RespondResult{
		ParticipantID:  resp.ParticipantID,
		SubmittedAt:    resp.SubmittedAt(),
		TotalResponses: p.Analytics.TotalResponses,
	}, nil
}

func (s *pollService) GetByCode(ctx context.Context, requesterID, code string) (domain.PollView, error) {
	p, err := s.refresh(ctx, NormalizeCode(code))
	if err != nil {
		return domain.PollView{}, err
	}
	return domain.NewPollView(p, p.IsCreator(requesterID), s.now()), nil
}

func (s *pollService) ListMine(ctx context.Context, creatorID string) ([]domain.PollView, error) {
	polls, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]domain.PollView, 0, len(polls))
	for _, p := range polls {
		if changed, _ := settle(p, now); changed {
			p, err = s.refresh(ctx, p.Code)
			if err != nil {
				return nil, err
			}
		}
		views = append(views, domain.NewPollView(p, true, now))
	}
	return views, nil
}

func (s *pollService) GetResults(ctx context.Context, userID, code string) (domain.PollView, error) {
	p, err := s.owned(ctx, userID, NormalizeCode(code))
	if err != nil {
		return domain.PollView{}, err
	}
	return domain.NewPollView(p, true, s.now()), nil
}

func (s *pollService) Summaries(ctx context.Context, userID, code string) (*ResultsSummary, error) {
	p, err := s.owned(ctx, userID, NormalizeCode(code))
	if err != nil {
		return nil, err
	}

	var cached ResultsSummary
	if err := s.cache.GetSummary(ctx, p.Code, p.Version, &cached); err == nil {
		summaryCacheTotal.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	summaryCacheTotal.WithLabelValues("miss").Inc()

	summary := &ResultsSummary{
		Code:      p.Code,
		Title:     p.Title,
		Version:   p.Version,
		Analytics: p.Analytics,
		Questions: domain.SummarizeAll(p),
	}
	if err := s.cache.SetSummary(ctx, p.Code, p.Version, summary); err != nil {
		pkglogger.Warn("cache summary for %s: %v", p.Code, err)
	}
	return summary, nil
}

func (s *pollService) ExportCSV(ctx context.Context, userID, code string) (*Export, error) {
	p, err := s.owned(ctx, userID, NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	return renderExport(p)
}

func (s *pollService) ArchiveExport(ctx context.Context, userID, code string) (*storage.Object, error) {
	if s.archiver == nil {
		return nil, ErrStorageUnavailable
	}
	p, err := s.owned(ctx, userID, NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	export, err := renderExport(p)
	if err != nil {
		return nil, err
	}
	obj, err := s.archiver.Put(ctx, domain.ArchiveKey(p, s.now()), export.Data, export.ContentType)
	if err != nil {
		return nil, fmt.Errorf("archive export: %w", err)
	}

	log := pkglogger.WithPoll(p.Code)
	log.Info().Str("key", obj.Key).Int64("size", obj.Size).Msg("export archived")
	return obj, nil
}

func renderExport(p *domain.Poll) (*Export, error) {
	data, err := domain.ExportCSV(p)
	if err != nil {
		return nil, fmt.Errorf("render export: %w", err)
	}
	return &Export{
		Filename:    domain.ExportFilename(p),
		ContentType: "text/csv; charset=utf-8",
		Data:        data,
	}, nil
}

func (s *pollService) LiveState(ctx context.Context, code string) (domain.LiveState, error) {
	p, err := s.refresh(ctx, NormalizeCode(code))
	if err != nil {
		return domain.LiveState{}, err
	}
	return p.LiveState(), nil
}
