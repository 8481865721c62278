package audit

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Reporter computes analytics over the audit log.
type Reporter struct {
	storage          Storage
	patternThreshold int
}

// ReporterOption customizes a Reporter.
type ReporterOption func(*Reporter)

// WithPatternThreshold overrides the failed-login count per principal+IP pair
// that flags a suspicious pattern. Values below one are ignored.
func WithPatternThreshold(n int) ReporterOption {
	return func(r *Reporter) {
		if n > 0 {
			r.patternThreshold = n
		}
	}
}

// NewReporter creates a reporter over the storage.
func NewReporter(storage Storage, opts ...ReporterOption) *Reporter {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	r := &Reporter{
		storage:          storage,
		patternThreshold: defaultPatternThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeline returns the principal's entries, newest first.
func (r *Reporter) Timeline(ctx context.Context, principalID uuid.UUID, limit, offset int) ([]Entry, error) {
	return r.storage.Query(ctx, Criteria{PrincipalID: &principalID, Limit: limit, Offset: offset})
}

// ActivitySummary aggregates one principal's activity since a point in time.
type ActivitySummary struct {
	PrincipalID uuid.UUID      `json:"principal_id"`
	Total       int            `json:"total"`
	ByAction    map[string]int `json:"by_action"`
	ByStatus    map[Status]int `json:"by_status"`
	FirstAt     time.Time      `json:"first_at"`
	LastAt      time.Time      `json:"last_at"`
}

// Summary builds the principal's activity summary since the given time.
func (r *Reporter) Summary(ctx context.Context, principalID uuid.UUID, since time.Time) (*ActivitySummary, error) {
	entries, err := r.storage.Query(ctx, Criteria{PrincipalID: &principalID, From: since})
	if err != nil {
		return nil, fmt.Errorf("activity summary: %w", err)
	}

	summary := &ActivitySummary{
		PrincipalID: principalID,
		Total:       len(entries),
		ByAction:    make(map[string]int),
		ByStatus:    make(map[Status]int),
	}
	for _, e := range entries {
		summary.ByAction[e.Action]++
		summary.ByStatus[e.Status]++
		if summary.FirstAt.IsZero() || e.CreatedAt.Before(summary.FirstAt) {
			summary.FirstAt = e.CreatedAt
		}
		if e.CreatedAt.After(summary.LastAt) {
			summary.LastAt = e.CreatedAt
		}
	}
	return summary, nil
}

// Stats aggregates the whole log over a time range.
type Stats struct {
	Total            int            `json:"total"`
	ByStatus         map[Status]int `json:"by_status"`
	ByAction         map[string]int `json:"by_action"`
	UniquePrincipals int            `json:"unique_principals"`
	UniqueIPs        int            `json:"unique_ips"`
}

// Stats computes log-wide statistics for the time range.
func (r *Reporter) Stats(ctx context.Context, from, to time.Time) (*Stats, error) {
	entries, err := r.storage.Query(ctx, Criteria{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}

	stats := &Stats{
		Total:    len(entries),
		ByStatus: make(map[Status]int),
		ByAction: make(map[string]int),
	}
	principals := make(map[uuid.UUID]struct{})
	ips := make(map[string]struct{})
	for _, e := range entries {
		stats.ByStatus[e.Status]++
		stats.ByAction[e.Action]++
		if e.PrincipalID != nil {
			principals[*e.PrincipalID] = struct{}{}
		}
		if e.IP != "" {
			ips[e.IP] = struct{}{}
		}
	}
	stats.UniquePrincipals = len(principals)
	stats.UniqueIPs = len(ips)
	return stats, nil
}

// Heatmap counts entries per UTC calendar date over the time range. Keys use
// the "2006-01-02" layout; dates without entries are absent.
func (r *Reporter) Heatmap(ctx context.Context, from, to time.Time) (map[string]int, error) {
	entries, err := r.storage.Query(ctx, Criteria{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("audit heatmap: %w", err)
	}
	heatmap := make(map[string]int, len(entries))
	for _, e := range entries {
		heatmap[e.CreatedAt.UTC().Format("2006-01-02")]++
	}
	return heatmap, nil
}

// HourlyHeatmap buckets entries per weekday and hour over the time range. The
// first index is time.Weekday (Sunday = 0), the second the hour of day.
func (r *Reporter) HourlyHeatmap(ctx context.Context, from, to time.Time) ([7][24]int, error) {
	var heatmap [7][24]int
	entries, err := r.storage.Query(ctx, Criteria{From: from, To: to})
	if err != nil {
		return heatmap, fmt.Errorf("audit hourly heatmap: %w", err)
	}
	for _, e := range entries {
		heatmap[e.CreatedAt.Weekday()][e.CreatedAt.Hour()]++
	}
	return heatmap, nil
}

// ActionCount is one row of the top-actions ranking.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// TopActions ranks actions by frequency over the time range. Ties are broken
// by most recent occurrence, so a freshly active action outranks a dormant
// one with the same count.
func (r *Reporter) TopActions(ctx context.Context, from, to time.Time, n int) ([]ActionCount, error) {
	entries, err := r.storage.Query(ctx, Criteria{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("top actions: %w", err)
	}

	counts := make(map[string]int)
	lastSeen := make(map[string]time.Time)
	for _, e := range entries {
		counts[e.Action]++
		if e.CreatedAt.After(lastSeen[e.Action]) {
			lastSeen[e.Action] = e.CreatedAt
		}
	}

	ranked := make([]ActionCount, 0, len(counts))
	for action, count := range counts {
		ranked = append(ranked, ActionCount{Action: action, Count: count})
	}
	slices.SortFunc(ranked, func(a, b ActionCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return lastSeen[b.Action].Compare(lastSeen[a.Action])
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// TrendPoint is one bucket of the error trend series.
type TrendPoint struct {
	Bucket time.Time `json:"bucket"`
	Failed int       `json:"failed"`
}

// ErrorTrends buckets failed entries over the time range. Empty buckets are
// included so gaps are visible.
func (r *Reporter) ErrorTrends(ctx context.Context, from, to time.Time, bucket time.Duration) ([]TrendPoint, error) {
	if bucket <= 0 {
		bucket = time.Hour
	}
	entries, err := r.storage.Query(ctx, Criteria{Status: StatusFailed, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("error trends: %w", err)
	}

	start := from.Truncate(bucket)
	var points []TrendPoint
	for t := start; t.Before(to); t = t.Add(bucket) {
		points = append(points, TrendPoint{Bucket: t})
	}
	for _, e := range entries {
		idx := int(e.CreatedAt.Sub(start) / bucket)
		if idx >= 0 && idx < len(points) {
			points[idx].Failed++
		}
	}
	return points, nil
}
