package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/livepoll/livepoll-backend/internal/repository"
	"github.com/livepoll/livepoll-backend/pkg/cache"
	"github.com/livepoll/livepoll-backend/pkg/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	creator  = "creator-1"
	stranger = "someone-else"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type publishedEvent struct {
	Code    string
	Type    string
	Payload interface{}
}

// recordingNotifier collects published events
type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(code, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{code, eventType, payload})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func (n *recordingNotifier) last() publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

// memCache is an in-process cache.Service
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	hits int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	c.hits++
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) GetSummary(ctx context.Context, code string, version int64, dest interface{}) error {
	return c.Get(ctx, cache.SummaryKey(code, version), dest)
}

func (c *memCache) SetSummary(ctx context.Context, code string, version int64, data interface{}) error {
	return c.Set(ctx, cache.SummaryKey(code, version), data, cache.TTLSummary)
}

func (c *memCache) InvalidateSummaries(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := cache.PrefixSummary + code + ":"
	for k := range c.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memCache) IsAvailable() bool {
	return true
}

func (c *memCache) Ping(context.Context) error {
	return nil
}

// MockArchiver is a mock implementation of Archiver
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Put(ctx context.Context, key string, data []byte, contentType string) (*storage.Object, error) {
	args := m.Called(ctx, key, data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Object), args.Error(1)
}

type fixture struct {
	repo     repository.PollRepository
	clock    *testClock
	notifier *recordingNotifier
	cache    *memCache
	polls    PollService
	sessions SessionService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Poll{}))

	f := &fixture{
		repo:     repository.NewPollRepository(db),
		clock:    &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
		cache:    newMemCache(),
	}
	all := append([]Option{WithClock(f.clock.Now), WithNotifier(f.notifier)}, opts...)
	f.polls = NewPollService(f.repo, f.cache, all...)
	f.sessions = NewSessionService(f.repo, all...)
	return f
}

func pollInput() domain.PollInput {
	return domain.PollInput{
		Title:       "Team retro",
		Description: "Sprint 12",
		Questions: []domain.QuestionInput{
			{Type: domain.QuestionMultipleChoice, Question: "Best day?", Options: []domain.Option{{Text: "Mon", Value: "mon"}, {Text: "Fri", Value: "fri"}}},
			{Type: domain.QuestionRating, Question: "Mood"},
			{Type: domain.QuestionWordCloud, Question: "One word"},
		},
	}
}

func (f *fixture) create(t *testing.T) domain.PollView {
	t.Helper()
	v, err := f.polls.Create(context.Background(), creator, pollInput())
	require.NoError(t, err)
	return v
}

func answers(v domain.PollView, raw ...string) []domain.AnswerInput {
	out := make([]domain.AnswerInput, 0, len(raw))
	for i, r := range raw {
		out = append(out, domain.AnswerInput{QuestionID: v.Questions[i].ID, Answer: json.RawMessage(r)})
	}
	return out
}
