package activity

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pairboard/pairboard/internal/sqlutil"
)

// WorkerConfig tunes the outbox polling loop.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultWorkerConfig returns default polling settings.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
	}
}

// Worker polls the outbox and hands unsent events to the publisher.
type Worker struct {
	db        *sql.DB
	repo      *Repository
	publisher EventPublisher
	config    WorkerConfig
	logger    *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates an outbox worker.
func NewWorker(db *sql.DB, publisher EventPublisher, config WorkerConfig, logger *slog.Logger) *Worker {
	return &Worker{
		db:        db,
		repo:      NewRepository(db),
		publisher: publisher,
		config:    config,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the polling loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("activity worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("activity worker started",
		slog.Duration("poll_interval", w.config.PollInterval),
		slog.Int("batch_size", w.config.BatchSize))
	return nil
}

// Stop halts the polling loop and waits for it to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("activity worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	w.logger.Info("activity worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on start
	w.processOutbox(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	err := sqlutil.RunTx(ctx, w.db, func(tx *sql.Tx) error {
		events, err := w.repo.FetchUnsent(ctx, tx, w.config.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		sent := make([]uuid.UUID, 0, len(events))
		for _, event := range events {
			if err := w.publisher.Publish(ctx, event); err != nil {
				w.logger.Error("failed to publish activity event",
					slog.String("event_id", event.ID.String()),
					slog.Any("error", err))
				continue
			}
			sent = append(sent, event.ID)
		}

		return w.repo.MarkSent(ctx, tx, sent, time.Now())
	})
	if err != nil {
		w.logger.Error("outbox pass failed", slog.Any("error", err))
	}
}
