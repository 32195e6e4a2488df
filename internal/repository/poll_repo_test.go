package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func newTestPoll(t *testing.T, code, creator string, createdAt time.Time) *domain.Poll {
	t.Helper()
	questions, err := domain.NormalizeQuestions([]domain.QuestionInput{
		{Type: domain.QuestionOpenEnded, Question: "How was it?"},
		{Type: domain.QuestionRating, Question: "Rate it"},
	})
	require.NoError(t, err)
	return domain.NewPoll("id-"+code, code, creator, domain.PollInput{Title: "Poll " + code}, questions, createdAt)
}

func TestPollRepository_CreateAndFind(t *testing.T) {
	repo := NewPollRepository(setupTestDB(t))
	ctx := context.Background()

	p := newTestPoll(t, "ABC123", "u1", time.Now())
	end := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	p.Settings.EndDate = &end
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Len(t, got.Questions, 2)
	assert.Equal(t, p.Questions[0].ID, got.Questions[0].ID)
	require.NotNil(t, got.Settings.EndDate)
	assert.True(t, end.Equal(*got.Settings.EndDate))
	assert.Equal(t, domain.OverrideNeverSet, got.ManualOverride)
	assert.EqualValues(t, 1, got.Version)

	exists, err := repo.ExistsByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.FindByCode(ctx, "NOPE00")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPollRepository_DuplicateCode(t *testing.T) {
	repo := NewPollRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestPoll(t, "DUP111", "u1", time.Now())))
	second := newTestPoll(t, "DUP111", "u2", time.Now())
	second.ID = "other-id"
	assert.ErrorIs(t, repo.Create(ctx, second), ErrDuplicateCode)
}

func TestPollRepository_ListByCreatorNewestFirst(t *testing.T) {
	repo := NewPollRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, repo.Create(ctx, newTestPoll(t, "OLD111", "u1", base.Add(-time.Hour))))
	require.NoError(t, repo.Create(ctx, newTestPoll(t, "NEW111", "u1", base)))
	require.NoError(t, repo.Create(ctx, newTestPoll(t, "OTH111", "u2", base)))

	polls, err := repo.ListByCreator(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, polls, 2)
	assert.Equal(t, "NEW111", polls[0].Code)
	assert.Equal(t, "OLD111", polls[1].Code)
}

func TestPollRepository_Update(t *testing.T) {
	repo := NewPollRepository(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTestPoll(t, "UPD111", "u1", time.Now())))

	t.Run("writes and bumps version", func(t *testing.T) {
		got, err := repo.Update(ctx, "UPD111", func(p *domain.Poll) error {
			p.IsActive = false
			p.ManualOverride = domain.OverrideDeactivated
			return nil
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, got.Version)

		stored, err := repo.FindByCode(ctx, "UPD111")
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
		assert.Equal(t, domain.OverrideDeactivated, stored.ManualOverride)
		assert.EqualValues(t, 2, stored.Version)
	})

	t.Run("no changes skips write", func(t *testing.T) {
		got, err := repo.Update(ctx, "UPD111", func(p *domain.Poll) error { return ErrNoChanges })
		require.NoError(t, err)
		assert.EqualValues(t, 2, got.Version)
	})

	t.Run("plain error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := repo.Update(ctx, "UPD111", func(p *domain.Poll) error {
			p.Title = "never stored"
			return boom
		})
		assert.ErrorIs(t, err, boom)
		stored, _ := repo.FindByCode(ctx, "UPD111")
		assert.NotEqual(t, "never stored", stored.Title)
	})

	t.Run("persisted error writes then returns", func(t *testing.T) {
		_, err := repo.Update(ctx, "UPD111", func(p *domain.Poll) error {
			p.Title = "stored anyway"
			return Persist(domain.ErrExpired)
		})
		assert.ErrorIs(t, err, domain.ErrExpired)
		stored, _ := repo.FindByCode(ctx, "UPD111")
		assert.Equal(t, "stored anyway", stored.Title)
	})

	t.Run("missing poll", func(t *testing.T) {
		_, err := repo.Update(ctx, "MISS00", func(p *domain.Poll) error { return nil })
		assert.ErrorIs(t, err, domain.ErrPollNotFound)
	})
}

func TestPollRepository_UpdateRetriesOnStaleVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTestPoll(t, "RACE11", "u1", time.Now())))

	calls := 0
	_, err := repo.Update(ctx, "RACE11", func(p *domain.Poll) error {
		calls++
		if calls == 1 {
			// a concurrent writer commits between our read and write
			require.NoError(t, db.Model(&domain.Poll{}).Where("code = ?", "RACE11").
				Update("version", gorm.Expr("version + 1")).Error)
		}
		p.Title = "after retry"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	stored, err := repo.FindByCode(ctx, "RACE11")
	require.NoError(t, err)
	assert.Equal(t, "after retry", stored.Title)
	assert.EqualValues(t, 3, stored.Version)
}

func TestPollRepository_ConcurrentRespondsKeepCounts(t *testing.T) {
	repo := NewPollRepository(setupTestDB(t))
	ctx := context.Background()
	p := newTestPoll(t, "CONC11", "u1", time.Now())
	p.Settings.AllowMultipleSubmissions = true
	require.NoError(t, repo.Create(ctx, p))

	_, err := repo.Update(ctx, "CONC11", func(p *domain.Poll) error {
		_, _, err := p.Join("Ann", "", time.Now())
		return err
	})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "CONC11", func(p *domain.Poll) error {
				_, err := p.Respond(domain.RespondInput{
					JoinInput: domain.JoinInput{ParticipantName: "Ann"},
					Answers:   []domain.AnswerInput{{QuestionID: p.Questions[0].ID, Answer: json.RawMessage(`"ok"`)}},
				}, time.Now())
				return err
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	stored, err := repo.FindByCode(ctx, "CONC11")
	require.NoError(t, err)
	assert.Len(t, stored.Responses, workers)
	assert.Equal(t, workers, stored.Analytics.TotalResponses)
}

func TestPollRepository_UpdateGivesUpAfterMaxAttempts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTestPoll(t, "LOST11", "u1", time.Now())))

	calls := 0
	_, err := repo.Update(ctx, "LOST11", func(p *domain.Poll) error {
		calls++
		require.NoError(t, db.Model(&domain.Poll{}).Where("code = ?", "LOST11").
			Update("version", gorm.Expr("version + 1")).Error)
		return nil
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, MaxUpdateAttempts, calls)
}

func TestRetryDelay(t *testing.T) {
	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		ceiling := retryBaseDelay << attempt
		if ceiling > retryMaxDelay {
			ceiling = retryMaxDelay
		}
		for i := 0; i < 20; i++ {
			d := retryDelay(attempt)
			assert.GreaterOrEqual(t, d, ceiling/2)
			assert.LessOrEqual(t, d, ceiling)
		}
	}
}

func TestPollRepository_Delete(t *testing.T) {
	repo := NewPollRepository(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTestPoll(t, "DEL111", "u1", time.Now())))

	require.NoError(t, repo.Delete(ctx, "DEL111"))
	assert.ErrorIs(t, repo.Delete(ctx, "DEL111"), domain.ErrNotFound)
}
