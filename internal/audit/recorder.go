package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/docflow/pkg/logger"
)

var (
	ErrQueueFull      = errors.New("audit queue is full")
	ErrRecorderClosed = errors.New("audit recorder is shut down")
)

// Failure reports an entry that never reached the sink.
type Failure struct {
	Entry Entry
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("audit %s on %s dropped: %v", f.Entry.Action, f.Entry.ResourceType, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

type worker struct {
	id         int
	workerPool chan chan Entry
	jobChannel chan Entry
	logger     *slog.Logger
}

func newWorker(id int, workerPool chan chan Entry, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan Entry),
		logger:     logger,
	}
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(Entry)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.workerPool <- w.jobChannel

			select {
			case entry := <-w.jobChannel:
				process(entry)
			case <-ctx.Done():
				w.logger.Debug("audit worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

type RecorderConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

// AsyncRecorder queues entries and writes them to sink from a worker pool.
// Append never blocks the caller. Anything that cannot be written is
// reported on Errors().
type AsyncRecorder struct {
	sink         Recorder
	logger       *slog.Logger
	writeTimeout time.Duration

	jobQueue   chan Entry
	workerPool chan chan Entry
	errs       chan error
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	drained    chan struct{}

	mu           sync.RWMutex
	closed       bool
	shutdownOnce sync.Once
}

func NewAsyncRecorder(sink Recorder, cfg RecorderConfig, log *slog.Logger) *AsyncRecorder {
	ctx, cancel := context.WithCancel(context.Background())

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	r := &AsyncRecorder{
		sink:         sink,
		logger:       logger.OrNop(log),
		writeTimeout: writeTimeout,
		jobQueue:     make(chan Entry, queueSize),
		workerPool:   make(chan chan Entry, workers),
		errs:         make(chan error, queueSize),
		maxWorkers:   workers,
		ctx:          ctx,
		cancel:       cancel,
		drained:      make(chan struct{}),
	}

	for i := 0; i < r.maxWorkers; i++ {
		newWorker(i, r.workerPool, r.logger).start(r.ctx, &r.wg, r.write)
	}
	go r.dispatch()

	r.logger.Info("audit recorder started",
		"module", "audit",
		"workers", r.maxWorkers,
		"queue_size", queueSize)

	return r
}

// Append enqueues entry. It returns ErrQueueFull or ErrRecorderClosed when the
// entry is dropped; callers are free to ignore the result.
func (r *AsyncRecorder) Append(_ context.Context, entry Entry) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.fail(entry, ErrRecorderClosed)
		return ErrRecorderClosed
	}

	select {
	case r.jobQueue <- entry:
		return nil
	default:
		r.fail(entry, ErrQueueFull)
		return ErrQueueFull
	}
}

// Errors delivers write failures and dropped entries. The channel is
// buffered and lossy when nobody drains it.
func (r *AsyncRecorder) Errors() <-chan error {
	return r.errs
}

// Shutdown stops accepting entries, writes everything already queued and
// waits for the workers to exit.
func (r *AsyncRecorder) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.jobQueue)
		r.mu.Unlock()

		<-r.drained
		r.cancel()
		r.wg.Wait()
		r.logger.Info("audit recorder stopped", "module", "audit")
	})
}

func (r *AsyncRecorder) dispatch() {
	defer close(r.drained)

	for entry := range r.jobQueue {
		jobChannel := <-r.workerPool
		jobChannel <- entry
	}
}

func (r *AsyncRecorder) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.sink.Append(ctx, entry); err != nil {
		r.logger.Error("failed to write audit entry",
			"module", "audit",
			"action", entry.Action,
			"resource_type", entry.ResourceType,
			"error", err)
		r.fail(entry, err)
	}
}

func (r *AsyncRecorder) fail(entry Entry, err error) {
	select {
	case r.errs <- &Failure{Entry: entry, Err: err}:
	default:
		r.logger.Warn("audit failure channel full, dropping report",
			"module", "audit",
			"action", entry.Action)
	}
}
