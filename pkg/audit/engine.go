package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/pkg/logger"
)

// ContextExtractor pulls a string value from the request context. It returns
// (value, found) where found indicates extraction succeeded.
type ContextExtractor func(context.Context) (string, bool)

// Engine writes audit entries. Recording is best-effort: storage failures
// are logged and swallowed so audit outages never break callers.
type Engine struct {
	storage            Storage
	redactor           *Redactor
	principalExtractor ContextExtractor
	tenantExtractor    ContextExtractor
	ipExtractor        ContextExtractor
	userAgentExtractor ContextExtractor
	log                *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRedactor overrides the default redactor.
func WithRedactor(r *Redactor) Option {
	return func(e *Engine) {
		if r != nil {
			e.redactor = r
		}
	}
}

// WithPrincipalExtractor populates PrincipalID from context. The extracted
// value must be a UUID string.
func WithPrincipalExtractor(fn ContextExtractor) Option {
	return func(e *Engine) { e.principalExtractor = fn }
}

// WithTenantExtractor populates TenantID from context. The extracted value
// must be a UUID string.
func WithTenantExtractor(fn ContextExtractor) Option {
	return func(e *Engine) { e.tenantExtractor = fn }
}

// WithIPExtractor populates the client IP from context.
func WithIPExtractor(fn ContextExtractor) Option {
	return func(e *Engine) { e.ipExtractor = fn }
}

// WithUserAgentExtractor populates the user agent from context.
func WithUserAgentExtractor(fn ContextExtractor) Option {
	return func(e *Engine) { e.userAgentExtractor = fn }
}

// WithLogger sets the logger for storage failure reporting.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an audit engine over the storage.
func NewEngine(storage Storage, opts ...Option) *Engine {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	e := &Engine{
		storage:  storage,
		redactor: NewRedactor(),
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Log records a successful action.
func (e *Engine) Log(ctx context.Context, action, description string, opts ...EntryOption) {
	entry := e.entryFromContext(ctx)
	entry.Action = action
	entry.Description = description
	entry.Status = StatusSuccess

	for _, opt := range opts {
		opt(&entry)
	}
	e.persist(ctx, entry)
}

// LogError records a failed action.
func (e *Engine) LogError(ctx context.Context, action, description string, err error, opts ...EntryOption) {
	entry := e.entryFromContext(ctx)
	entry.Action = action
	entry.Description = description
	entry.Status = StatusFailed
	if err != nil {
		entry.Error = err.Error()
	}

	for _, opt := range opts {
		opt(&entry)
	}
	e.persist(ctx, entry)
}

// CleanupOldLogs removes entries older than the retention window and returns
// the number removed.
func (e *Engine) CleanupOldLogs(ctx context.Context, retention time.Duration) (int64, error) {
	removed, err := e.storage.DeleteBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return removed, nil
}

func (e *Engine) persist(ctx context.Context, entry Entry) {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	entry.Request = e.redactor.Redact(entry.Request)
	entry.Response = e.redactor.Redact(entry.Response)

	if err := entry.Validate(); err != nil {
		e.log.ErrorContext(ctx, "audit: dropping invalid entry", slog.Any("error", err))
		return
	}
	if err := e.storage.Store(ctx, entry); err != nil {
		e.log.ErrorContext(ctx, "audit: entry write failed",
			slog.String("action", entry.Action), slog.Any("error", err))
	}
}

func (e *Engine) entryFromContext(ctx context.Context) Entry {
	var entry Entry

	if e.principalExtractor != nil {
		if raw, ok := e.principalExtractor(ctx); ok {
			if id, err := uuid.Parse(raw); err == nil {
				entry.PrincipalID = &id
			}
		}
	}
	if e.tenantExtractor != nil {
		if raw, ok := e.tenantExtractor(ctx); ok {
			if id, err := uuid.Parse(raw); err == nil {
				entry.TenantID = &id
			}
		}
	}
	if e.ipExtractor != nil {
		if ip, ok := e.ipExtractor(ctx); ok {
			entry.IP = ip
		}
	}
	if e.userAgentExtractor != nil {
		if ua, ok := e.userAgentExtractor(ctx); ok {
			entry.UserAgent = ua
		}
	}
	return entry
}

// SessionRecorder adapts the engine to the session manager's Recorder
// interface.
type SessionRecorder struct {
	engine *Engine
}

// Recorder returns a session event sink backed by this engine.
func (e *Engine) Recorder() *SessionRecorder {
	return &SessionRecorder{engine: e}
}

// Record writes one session event to the audit log.
func (r *SessionRecorder) Record(ctx context.Context, principalID uuid.UUID, action, description string, meta map[string]any) {
	r.engine.Log(ctx, action, description, WithPrincipal(principalID), WithRequest(meta))
}
