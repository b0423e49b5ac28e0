package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/andy/kaitenbill/internal/cache"
	"github.com/andy/kaitenbill/internal/domain"
	"github.com/andy/kaitenbill/internal/kaiten"
)

const (
	DefaultSyncDelay        = 200 * time.Millisecond
	DefaultRateLimitBackoff = time.Second

	// one retry after a 429
	syncAttempts = 2
)

// ErrSyncClosed is returned by Sync after Close
var ErrSyncClosed = errors.New("archive sync is closed")

// CardArchiver sets the archive condition of a Kaiten card
type CardArchiver interface {
	SetCondition(ctx context.Context, cardID int64, condition domain.CardCondition) error
}

// ArchiveSyncer sets the archived flag on a list of cards
type ArchiveSyncer interface {
	Sync(ctx context.Context, cardIDs []int64, archived bool) error
}

type ArchiveSyncOptions struct {
	Delay            time.Duration // between successive cards
	RateLimitBackoff time.Duration // before the one retry after a 429
}

type syncJob struct {
	ctx      context.Context
	cardIDs  []int64
	archived bool
	done     chan error
}

// ArchiveSync pushes archive state to Kaiten one card at a time. A single
// worker owns the queue so concurrent callers never interleave requests.
type ArchiveSync struct {
	client  CardArchiver
	cache   *cache.Cache
	opts    ArchiveSyncOptions
	logger  *zap.Logger
	jobs    chan syncJob
	start   sync.Once
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

// NewArchiveSync creates the sync queue. c may be nil.
func NewArchiveSync(client CardArchiver, c *cache.Cache, opts ArchiveSyncOptions, logger *zap.Logger) *ArchiveSync {
	if opts.Delay < 0 {
		opts.Delay = DefaultSyncDelay
	}
	if opts.RateLimitBackoff <= 0 {
		opts.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveSync{
		client:  client,
		cache:   c,
		opts:    opts,
		logger:  logger,
		jobs:    make(chan syncJob),
		stopped: make(chan struct{}),
	}
}

// Sync sets the archived flag on every card in order and blocks until the
// run finishes. It stops at the first error that is not a rate limit, or at
// a rate limit that persists after one retry, and returns *ArchiveSyncError.
// ctx only bounds the wait for the worker: once the run starts, cancelling
// ctx does not stop it.
func (s *ArchiveSync) Sync(ctx context.Context, cardIDs []int64, archived bool) error {
	if len(cardIDs) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSyncClosed
	}

	s.start.Do(func() { go s.worker() })

	job := syncJob{
		ctx:      context.WithoutCancel(ctx),
		cardIDs:  cardIDs,
		archived: archived,
		done:     make(chan error, 1),
	}
	select {
	case s.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-job.done
}

// Close stops the worker once the running job is done
func (s *ArchiveSync) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.jobs)

	started := true
	s.start.Do(func() { started = false })
	if started {
		<-s.stopped
	}
}

func (s *ArchiveSync) worker() {
	defer close(s.stopped)
	for job := range s.jobs {
		job.done <- s.run(job)
	}
}

func (s *ArchiveSync) run(job syncJob) error {
	condition := domain.ConditionFor(job.archived)
	completed := make([]int64, 0, len(job.cardIDs))

	defer func() {
		if s.cache != nil && len(completed) > 0 {
			s.cache.Invalidate("cards")
		}
	}()

	for i, cardID := range job.cardIDs {
		err := retry.Do(
			func() error {
				return s.client.SetCondition(job.ctx, cardID, condition)
			},
			retry.Attempts(syncAttempts),
			retry.Delay(s.opts.RateLimitBackoff),
			retry.DelayType(retry.FixedDelay),
			retry.RetryIf(kaiten.IsRateLimited),
			retry.LastErrorOnly(true),
			retry.Context(job.ctx),
			retry.OnRetry(func(n uint, err error) {
				// also called after the last attempt, when nothing follows
				if n+1 >= syncAttempts {
					return
				}
				s.logger.Warn("Kaiten rate limit hit, retrying card",
					zap.Int64("card_id", cardID),
					zap.Duration("backoff", s.opts.RateLimitBackoff),
				)
			}),
		)
		if err != nil {
			s.logger.Error("Archive sync stopped",
				zap.Int64("card_id", cardID),
				zap.Bool("archived", job.archived),
				zap.Int("completed", len(completed)),
				zap.Int("total", len(job.cardIDs)),
				zap.Error(err),
			)
			return &ArchiveSyncError{CardID: cardID, Completed: completed, Archived: job.archived, Err: err}
		}
		completed = append(completed, cardID)

		if i < len(job.cardIDs)-1 && s.opts.Delay > 0 {
			time.Sleep(s.opts.Delay)
		}
	}

	s.logger.Info("Archive sync finished", zap.Int("cards", len(completed)), zap.Bool("archived", job.archived))
	return nil
}
