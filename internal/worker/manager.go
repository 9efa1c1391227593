package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"beomusic_backend/internal/logger"
	"beomusic_backend/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second
)

// EventHandler processes one event. *Handler satisfies it.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.CommentEvent) error
}

// Manager orchestrates worker goroutines that consume from Redis Streams.
type Manager struct {
	consumer    queue.Consumer
	handler     EventHandler
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	log         *logrus.Entry

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount  int           // Number of worker goroutines
	BatchSize    int64         // Messages per read
	BlockTimeout time.Duration // Block time for XREADGROUP
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

// NewManager creates a new worker manager.
func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig, log *logrus.Logger) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		log:         logger.Component(log, "Manager"),
	}
}

// Start begins the worker goroutines.
// Call Stop() to gracefully shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamComments, queue.ConsumerGroupComments); err != nil {
		m.cancel()
		return err
	}

	for i := 0; i < m.workerCount; i++ {
		workerID := i + 1
		m.wg.Add(1)
		go m.runWorker(workerID, consumerNameForWorker(workerID))
	}

	m.log.WithFields(logrus.Fields{
		"workers": m.workerCount,
		"stream":  queue.StreamComments,
		"group":   queue.ConsumerGroupComments,
	}).Info("workers started")
	return nil
}

// Stop gracefully shuts down all workers.
// Blocks until all workers have finished.
func (m *Manager) Stop() {
	m.log.Info("stopping workers")
	m.cancel()
	m.wg.Wait()
	m.log.Info("all workers stopped")
}

// runWorker is the main loop for a single worker goroutine.
func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()
	entry := m.log.WithField("worker", workerID)

	// Finish whatever this consumer had in flight before a restart.
	m.processPending(entry, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			entry.Debug("shutting down")
			return
		default:
			m.processMessages(entry, consumerName)
		}
	}
}

// processPending handles messages that were delivered but not acknowledged.
func (m *Manager) processPending(entry *logrus.Entry, consumerName string) {
	for {
		messages, err := m.consumer.ReadPending(m.ctx, queue.StreamComments, queue.ConsumerGroupComments, consumerName, m.batchSize)
		if err != nil {
			entry.WithError(err).Warn("error reading pending messages")
			return
		}
		if len(messages) == 0 {
			return
		}

		entry.WithField("count", len(messages)).Info("processing pending messages")
		m.handleMessages(entry, messages)
	}
}

// processMessages reads and handles a batch of messages.
func (m *Manager) processMessages(entry *logrus.Entry, consumerName string) {
	messages, err := m.consumer.Read(
		m.ctx,
		queue.StreamComments,
		queue.ConsumerGroupComments,
		consumerName,
		m.batchSize,
		m.blockTime,
	)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		entry.WithError(err).Warn("error reading messages")
		// Back off on error
		select {
		case <-m.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}

	if len(messages) == 0 {
		return // Timeout, no messages
	}
	m.handleMessages(entry, messages)
}

// handleMessages processes a batch of messages and acknowledges them.
// Failed events are acknowledged too; notifications are not worth redelivering.
func (m *Manager) handleMessages(entry *logrus.Entry, messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			entry.WithError(err).WithField("msg_id", msg.ID).Warn("handler error")
		}

		if err := m.consumer.Ack(m.ctx, queue.StreamComments, queue.ConsumerGroupComments, msg.ID); err != nil {
			entry.WithError(err).WithField("msg_id", msg.ID).Warn("ack error")
		}
	}
}

// consumerNameForWorker generates a unique consumer name for each worker.
func consumerNameForWorker(workerID int) string {
	return fmt.Sprintf("worker-%d", workerID)
}
