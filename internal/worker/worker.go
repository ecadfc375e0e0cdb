// Package worker reconciles membership upgrades that did not land together with their payment.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/techdiscoveria/discoveria/internal/domain/payment"
	"github.com/techdiscoveria/discoveria/internal/notifications"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/repo"
)

type PaymentsRepository interface {
	ClaimPendingUpgrade(ctx context.Context, workerID string) (payment.Payment, error)
	MarkUpgradeApplied(ctx context.Context, id string) error
	RescheduleUpgrade(ctx context.Context, id string, runAt time.Time, errMsg string) error
	MarkUpgradeFailed(ctx context.Context, id string, errMsg string) error
	RequeueStaleUpgrades(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type MembershipSetter interface {
	SetMembership(ctx context.Context, email, membership string) (repo.UpdateResult, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	MaxAttempts   int
	LockTTL       time.Duration
	ShutdownGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.WorkerID == "" {
		c.WorkerID = "reconciler"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.LockTTL <= 0 {
		c.LockTTL = time.Minute
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 10 * time.Second
	}
	return c
}

type Worker struct {
	cfg      Config
	payments PaymentsRepository
	users    MembershipSetter
	notifier notifications.Notifier
	prom     *observability.Prom
	stats    *observability.UpgradeStats
	log      *slog.Logger
	now      func() time.Time
	backoff  func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

// Option customises a Worker beyond its required collaborators.
type Option func(*Worker)

func WithNotifier(n notifications.Notifier) Option {
	return func(w *Worker) { w.notifier = n }
}

func WithProm(p *observability.Prom) Option {
	return func(w *Worker) { w.prom = p }
}

func WithStats(s *observability.UpgradeStats) Option {
	return func(w *Worker) { w.stats = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) { w.log = l }
}

func New(cfg Config, payments PaymentsRepository, users MembershipSetter, opts ...Option) *Worker {
	w := &Worker{
		cfg:      cfg.withDefaults(),
		payments: payments,
		users:    users,
		stats:    observability.NewUpgradeStats(),
		log:      slog.Default(),
		now:      time.Now,
		backoff:  ExponentialBackoff,
	}

	for _, opt := range opts {
		opt(w)
	}

	w.log = w.log.With("component", "reconciler", "worker_id", w.cfg.WorkerID)
	return w
}

func (w *Worker) Stats() *observability.UpgradeStats {
	return w.stats
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run polls for pending upgrades until ctx is cancelled, then waits up to ShutdownGrace
// for in-flight upgrades to finish.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	// in-flight upgrades keep running after shutdown starts, bounded by the grace period
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.poll(ctx, workCtx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.requeueLoop(ctx)
	}()

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("reconciler received shutdown signal")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		cancelWork()
		<-done
		return errors.New("reconciler shutdown grace exceeded")
	}
}

// poll drains every due upgrade on each tick. stop ends the loop, work bounds the upgrades.
func (w *Worker) poll(stop, work context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop.Done():
			return
		case <-ticker.C:
		}

		for stop.Err() == nil {
			processed, err := w.ProcessOne(work)
			if err != nil {
				w.log.Error("reconcile step failed", "err", err)
				break
			}
			if !processed {
				break
			}
		}
	}
}

func (w *Worker) requeueLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.payments.RequeueStaleUpgrades(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.Error("requeue stale upgrades failed", "err", err)
				continue
			}
			if n > 0 {
				w.log.Warn("requeued stale upgrades", "count", n)
			}
		}
	}
}
