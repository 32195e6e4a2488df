package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/livepoll/livepoll-backend/internal/domain"
	"gorm.io/gorm"
)

// MaxUpdateAttempts bounds optimistic-lock retries per Update call
const MaxUpdateAttempts = 10

const (
	retryBaseDelay = 2 * time.Millisecond
	retryMaxDelay  = 100 * time.Millisecond
)

var (
	// ErrNoChanges returned by an update func skips the write
	ErrNoChanges = errors.New("no changes")
	// ErrConflict means every attempt lost the version race
	ErrConflict = errors.New("poll was modified concurrently, please retry")
	// ErrDuplicateCode means the join code is already taken
	ErrDuplicateCode = errors.New("poll code already exists")
)

type persistError struct{ err error }

func (e *persistError) Error() string { return e.err.Error() }
func (e *persistError) Unwrap() error { return e.err }

// Persist wraps an error returned from an update func so the modified poll
// is still written before the error reaches the caller.
func Persist(err error) error {
	return &persistError{err: err}
}

// UpdateFunc mutates a loaded poll inside PollRepository.Update
type UpdateFunc func(p *domain.Poll) error

// PollRepository poll document storage
type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll) error
	FindByCode(ctx context.Context, code string) (*domain.Poll, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*domain.Poll, error)
	Update(ctx context.Context, code string, fn UpdateFunc) (*domain.Poll, error)
	Delete(ctx context.Context, code string) error
}

type pollRepository struct {
	db *gorm.DB
}

// NewPollRepository creates a new PollRepository
func NewPollRepository(db *gorm.DB) PollRepository {
	return &pollRepository{db: db}
}

func (r *pollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	if poll.Version == 0 {
		poll.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(poll).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create poll: %w", err)
	}
	return nil
}

func (r *pollRepository) FindByCode(ctx context.Context, code string) (*domain.Poll, error) {
	var poll domain.Poll
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&poll).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("find poll %s: %w", code, err)
	}
	return &poll, nil
}

func (r *pollRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Poll{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count poll %s: %w", code, err)
	}
	return count > 0, nil
}

func (r *pollRepository) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return polls, nil
}

// Update runs a versioned read-modify-write. fn may be invoked several times
// when another writer wins the race, so it must only touch the poll it is
// given.
func (r *pollRepository) Update(ctx context.Context, code string, fn UpdateFunc) (*domain.Poll, error) {
	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		poll, err := r.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}

		var deferred error
		if err := fn(poll); err != nil {
			var pe *persistError
			switch {
			case errors.Is(err, ErrNoChanges):
				return poll, nil
			case errors.As(err, &pe):
				deferred = pe.err
			default:
				return nil, err
			}
		}

		ok, err := r.save(ctx, poll)
		if err != nil {
			return nil, err
		}
		if ok {
			return poll, deferred
		}
		if attempt == MaxUpdateAttempts-1 {
			break
		}
		if err := sleepCtx(ctx, retryDelay(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, ErrConflict
}

// retryDelay is an exponential backoff with jitter in [d/2, d]
func retryDelay(attempt int) time.Duration {
	d := retryBaseDelay << attempt
	if d <= 0 || d > retryMaxDelay {
		d = retryMaxDelay
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// save writes poll if nobody bumped its version since it was read
func (r *pollRepository) save(ctx context.Context, poll *domain.Poll) (bool, error) {
	expected := poll.Version
	poll.Version = expected + 1
	poll.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).
		Model(poll).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(poll)
	if res.Error != nil {
		poll.Version = expected
		return false, fmt.Errorf("update poll %s: %w", poll.Code, res.Error)
	}
	if res.RowsAffected == 0 {
		poll.Version = expected
		return false, nil
	}
	return true, nil
}

func (r *pollRepository) Delete(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).Where("code = ?", code).Delete(&domain.Poll{})
	if res.Error != nil {
		return fmt.Errorf("delete poll %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}
