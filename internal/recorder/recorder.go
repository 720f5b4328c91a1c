// Package recorder persists per-tick decision records to append-only
// trajectory files for offline analysis and policy training. Record never
// blocks the supervisory loop: the queue is bounded and overflow drops the
// oldest queued record first.
package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/h2labs/hevsup/internal/domain"
	"github.com/h2labs/hevsup/internal/ports"
)

// Output formats.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// Defaults.
const (
	DefaultQueueCap          = 256
	DefaultMaxRecordsPerFile = 10000
	DefaultCloseGrace        = 2 * time.Second
)

// Config controls the recorder.
type Config struct {
	// Dir is the directory trajectory files are written to. Required.
	Dir string

	// Format selects FormatJSONL (default) or FormatCSV.
	Format string

	// QueueCap bounds the record queue between the loop and the writer.
	QueueCap int

	// MaxRecordsPerFile rotates the output file after this many records.
	MaxRecordsPerFile int
}

// Stats counts recorder outcomes since startup.
type Stats struct {
	Enqueued    uint64
	Written     uint64
	Dropped     uint64
	WriteErrors uint64
}

// Recorder accepts decision records from the loop and drains them to disk on
// its own goroutine. Record and Stats are safe for concurrent use.
type Recorder struct {
	logger ports.Logger

	queue chan domain.DecisionRecord
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	enqueued    atomic.Uint64
	written     atomic.Uint64
	dropped     atomic.Uint64
	writeErrors atomic.Uint64

	w *fileWriter
}

// New creates a recorder, opens the first trajectory file, and starts the
// writer goroutine.
func New(cfg Config, logger ports.Logger) (*Recorder, error) {
	switch cfg.Format {
	case "":
		cfg.Format = FormatJSONL
	case FormatJSONL, FormatCSV:
	default:
		return nil, domain.ErrInvalidConfig
	}
	if cfg.Dir == "" {
		return nil, domain.ErrInvalidConfig
	}
	if cfg.QueueCap <= 0 {
		cfg.QueueCap = DefaultQueueCap
	}
	if cfg.MaxRecordsPerFile <= 0 {
		cfg.MaxRecordsPerFile = DefaultMaxRecordsPerFile
	}

	r := &Recorder{
		logger: logger,
		queue:  make(chan domain.DecisionRecord, cfg.QueueCap),
		done:   make(chan struct{}),
		w:      newFileWriter(cfg, logger),
	}
	// Open eagerly so an unwritable directory fails construction instead of
	// surfacing as write errors later.
	if err := r.w.open(); err != nil {
		return nil, err
	}
	go r.run()
	return r, nil
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		if err := r.w.write(rec); err != nil {
			r.writeErrors.Add(1)
			r.logger.Error("record write failed",
				ports.Uint64("tick", rec.TickID),
				ports.Err(err),
			)
			continue
		}
		r.written.Add(1)
	}
	if err := r.w.close(); err != nil {
		r.logger.Error("trajectory file close failed", ports.Err(err))
	}
}

// Record enqueues one decision record. It never blocks: with a full queue the
// oldest queued record is dropped and counted. Records arriving after Close
// are dropped.
func (r *Recorder) Record(rec domain.DecisionRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	r.enqueued.Add(1)

	select {
	case r.queue <- rec:
		return
	default:
	}

	// Full: pop the oldest queued record, then retry once. Both selects stay
	// non-blocking because the writer drains concurrently.
	select {
	case <-r.queue:
		r.dropped.Add(1)
	default:
	}
	select {
	case r.queue <- rec:
	default:
		r.dropped.Add(1)
	}
}

// Close stops intake, waits up to grace for the writer to drain the queue and
// close the current file, and returns the final stats. A non-positive grace
// selects DefaultCloseGrace.
func (r *Recorder) Close(grace time.Duration) (Stats, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return r.Stats(), domain.ErrRecorderClosed
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	if grace <= 0 {
		grace = DefaultCloseGrace
	}
	select {
	case <-r.done:
		return r.Stats(), nil
	case <-time.After(grace):
		return r.Stats(), domain.ErrShutdownTimeout
	}
}

// Stats returns the current counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Enqueued:    r.enqueued.Load(),
		Written:     r.written.Load(),
		Dropped:     r.dropped.Load(),
		WriteErrors: r.writeErrors.Load(),
	}
}
