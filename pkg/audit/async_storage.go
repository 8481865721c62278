package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/guardkit/guardkit/pkg/logger"
)

// AsyncOptions tunes the batching writer.
type AsyncOptions struct {
	BufferSize     int           // queued entries before writes degrade to synchronous
	BatchSize      int           // target entries per storage batch
	BatchTimeout   time.Duration // max wait for a partial batch
	StorageTimeout time.Duration // per-batch storage deadline
	Logger         *slog.Logger
}

// AsyncStorage wraps a Storage with a buffered batching writer so hot paths
// never wait on the backend. Reads pass straight through.
type AsyncStorage struct {
	Storage

	batch   BatchStorage
	entries chan Entry
	done    chan struct{}
	wg      sync.WaitGroup
	opts    AsyncOptions
	log     *slog.Logger
}

// NewAsyncStorage creates the batching wrapper. When the backend implements
// BatchStorage, batches go through StoreBatch; otherwise entries are stored
// one by one from the worker.
func NewAsyncStorage(backend Storage, opts AsyncOptions) *AsyncStorage {
	if backend == nil {
		panic("audit: storage cannot be nil")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	s := &AsyncStorage{
		Storage: backend,
		entries: make(chan Entry, opts.BufferSize),
		done:    make(chan struct{}),
		opts:    opts,
		log:     opts.Logger,
	}
	if batch, ok := backend.(BatchStorage); ok {
		s.batch = batch
	}

	s.wg.Add(1)
	go s.worker()
	return s
}

// Store queues the entry. A full buffer degrades to a synchronous write so
// entries are never silently dropped.
func (s *AsyncStorage) Store(ctx context.Context, entry Entry) error {
	select {
	case s.entries <- entry:
		return nil
	default:
		return s.Storage.Store(ctx, entry)
	}
}

// Close flushes the buffer and stops the worker.
func (s *AsyncStorage) Close() error {
	close(s.done)
	s.wg.Wait()
	return nil
}

func (s *AsyncStorage) worker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.BatchTimeout)
	defer ticker.Stop()

	pending := make([]Entry, 0, s.opts.BatchSize)
	for {
		select {
		case entry := <-s.entries:
			pending = append(pending, entry)
			if len(pending) >= s.opts.BatchSize {
				s.flush(pending)
				pending = pending[:0]
			}
		case <-ticker.C:
			if len(pending) > 0 {
				s.flush(pending)
				pending = pending[:0]
			}
		case <-s.done:
			for {
				select {
				case entry := <-s.entries:
					pending = append(pending, entry)
				default:
					if len(pending) > 0 {
						s.flush(pending)
					}
					return
				}
			}
		}
	}
}

func (s *AsyncStorage) flush(entries []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StorageTimeout)
	defer cancel()

	if s.batch != nil {
		if err := s.batch.StoreBatch(ctx, entries); err != nil {
			s.log.Error("audit: batch write failed", slog.Int("entries", len(entries)), slog.Any("error", err))
		}
		return
	}
	for _, entry := range entries {
		if err := s.Storage.Store(ctx, entry); err != nil {
			s.log.Error("audit: entry write failed", slog.String("action", entry.Action), slog.Any("error", err))
		}
	}
}
