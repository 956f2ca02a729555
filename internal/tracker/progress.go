package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/sampling"
	"github.com/ashureev/codeedge/internal/store"
)

// unlockedWeights is the mix served once every difficulty has been solved,
// indexed like domain.Difficulties.
var unlockedWeights = []float64{0.4, 0.4, 0.2}

// ProgressTracker counts solved problems and picks the next difficulty.
type ProgressTracker struct {
	store   store.Store
	locks   *Locks
	sampler *sampling.Sampler
	now     func() time.Time
}

// NewProgressTracker creates a tracker over s.
func NewProgressTracker(s store.Store, locks *Locks, sampler *sampling.Sampler) *ProgressTracker {
	if locks == nil {
		locks = NewLocks(nil)
	}
	if sampler == nil {
		sampler = sampling.NewSeeded(0)
	}
	return &ProgressTracker{store: s, locks: locks, sampler: sampler, now: time.Now}
}

// NextDifficulty walks learners from easy to medium to hard, then mixes all
// three once each has been solved.
func NextDifficulty(rec *domain.ProgressRecord, sampler *sampling.Sampler) domain.Difficulty {
	switch {
	case rec.EasySolved == 0:
		return domain.DifficultyEasy
	case rec.MediumSolved == 0:
		return domain.DifficultyMedium
	case rec.HardSolved == 0:
		return domain.DifficultyHard
	}
	if i := sampler.Weighted(unlockedWeights); i >= 0 {
		return domain.Difficulties[i]
	}
	return domain.DifficultyEasy
}

// RecordSolved increments the counter for difficulty, recomputes the current
// difficulty and persists the record. Unknown difficulties change no counter.
func (t *ProgressTracker) RecordSolved(ctx context.Context, userID string, difficulty domain.Difficulty) (*domain.ProgressRecord, error) {
	var out *domain.ProgressRecord
	err := t.locks.WithLock(ctx, "progress:"+userID, func(ctx context.Context) error {
		rec, err := t.load(ctx, userID)
		if err != nil {
			return err
		}

		rec.Increment(difficulty)
		rec.CurrentDifficulty = NextDifficulty(rec, t.sampler)
		rec.UpdatedAt = t.now()

		if err := t.store.SaveProgress(ctx, rec); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Current returns the user's current difficulty, creating their record on
// first use.
func (t *ProgressTracker) Current(ctx context.Context, userID string) (domain.Difficulty, error) {
	var current domain.Difficulty
	err := t.locks.WithLock(ctx, "progress:"+userID, func(ctx context.Context) error {
		rec, err := t.store.GetProgress(ctx, userID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if rec == nil {
			rec = domain.NewProgressRecord(userID)
			rec.UpdatedAt = t.now()
			if err := t.store.SaveProgress(ctx, rec); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
		}
		current = rec.CurrentDifficulty
		return nil
	})
	if err != nil {
		return "", err
	}
	if !current.Valid() {
		current = domain.DifficultyEasy
	}
	return current, nil
}

// Progress returns a snapshot of the user's record without creating one.
func (t *ProgressTracker) Progress(ctx context.Context, userID string) (*domain.ProgressRecord, error) {
	return t.load(ctx, userID)
}

func (t *ProgressTracker) load(ctx context.Context, userID string) (*domain.ProgressRecord, error) {
	rec, err := t.store.GetProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if rec == nil {
		rec = domain.NewProgressRecord(userID)
	}
	return rec, nil
}
