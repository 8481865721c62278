package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// SecurityReport summarizes a principal's live sessions for account-takeover
// review. Score starts at 100 and degrades with session count, IP spread and
// concurrent sessions sharing an IP; it never drops below zero.
type SecurityReport struct {
	PrincipalID    uuid.UUID `json:"principal_id"`
	ActiveSessions int       `json:"active_sessions"`
	UniqueIPs      int       `json:"unique_ips"`
	UniqueDevices  int       `json:"unique_devices"`
	SuspiciousIPs  []string  `json:"suspicious_ips,omitempty"`
	Score          int       `json:"score"`
}

const (
	scoreMax              = 100
	penaltyManySessions   = 20 // more than 3 live sessions
	penaltyManyIPs        = 30 // more than 2 distinct IPs
	penaltySuspiciousIPs  = 40 // any IP shared by concurrent sessions
	manySessionsThreshold = 3
	manyIPsThreshold      = 2
)

// SecurityReport builds the security report from the principal's live
// sessions.
func (m *Manager) SecurityReport(ctx context.Context, principalID uuid.UUID) (*SecurityReport, error) {
	sessions, err := m.store.ActiveByPrincipal(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("security report: %w", err)
	}

	ips := make(map[string]int)
	devices := make(map[string]struct{})
	for _, s := range sessions {
		if s.IP != "" {
			ips[s.IP]++
		}
		if s.Device != "" {
			devices[s.Device] = struct{}{}
		}
	}

	var suspicious []string
	for ip, count := range ips {
		if count >= 2 {
			suspicious = append(suspicious, ip)
		}
	}
	slices.Sort(suspicious)

	score := scoreMax
	if len(sessions) > manySessionsThreshold {
		score -= penaltyManySessions
	}
	if len(ips) > manyIPsThreshold {
		score -= penaltyManyIPs
	}
	if len(suspicious) > 0 {
		score -= penaltySuspiciousIPs
	}
	if score < 0 {
		score = 0
	}

	return &SecurityReport{
		PrincipalID:    principalID,
		ActiveSessions: len(sessions),
		UniqueIPs:      len(ips),
		UniqueDevices:  len(devices),
		SuspiciousIPs:  suspicious,
		Score:          score,
	}, nil
}
