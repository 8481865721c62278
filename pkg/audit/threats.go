package audit

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Threat severity levels.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Threat types.
const (
	ThreatBruteForce        = "brute_force"
	ThreatSuspiciousPattern = "suspicious_pattern"
	ThreatIPAttack          = "ip_attack"
)

// Detection thresholds over the monitoring window. The pattern threshold is
// the default only; see WithPatternThreshold.
const (
	bruteForceThreshold     = 20 // failed logins per principal
	defaultPatternThreshold = 5  // failed logins per principal+IP pair
	ipAttackThreshold       = 5  // failed logins per IP
)

// Threat is one detected signal over the recent failed-login history.
type Threat struct {
	Type        string     `json:"type"`
	Severity    Severity   `json:"severity"`
	PrincipalID *uuid.UUID `json:"principal_id,omitempty"`
	IP          string     `json:"ip,omitempty"`
	Count       int        `json:"count"`
	Description string     `json:"description"`
	DetectedAt  time.Time  `json:"detected_at"`
}

// MonitorThreats scans failed logins inside the window (default one hour)
// and returns detected threats, highest severity first.
func (r *Reporter) MonitorThreats(ctx context.Context, window time.Duration) ([]Threat, error) {
	if window <= 0 {
		window = time.Hour
	}
	now := time.Now()
	failed, err := r.storage.Query(ctx, Criteria{
		Action: ActionLogin,
		Status: StatusFailed,
		From:   now.Add(-window),
	})
	if err != nil {
		return nil, fmt.Errorf("threat monitor: %w", err)
	}

	type pair struct {
		principal uuid.UUID
		ip        string
	}
	byPrincipal := make(map[uuid.UUID]int)
	byPair := make(map[pair]int)
	byIP := make(map[string]int)
	for _, e := range failed {
		if e.PrincipalID != nil {
			byPrincipal[*e.PrincipalID]++
			if e.IP != "" {
				byPair[pair{*e.PrincipalID, e.IP}]++
			}
		}
		if e.IP != "" {
			byIP[e.IP]++
		}
	}

	var threats []Threat
	for id, count := range byPrincipal {
		if count > bruteForceThreshold {
			pid := id
			threats = append(threats, Threat{
				Type:        ThreatBruteForce,
				Severity:    SeverityHigh,
				PrincipalID: &pid,
				Count:       count,
				Description: fmt.Sprintf("%d failed logins for one principal", count),
				DetectedAt:  now,
			})
		}
	}
	for p, count := range byPair {
		if count >= r.patternThreshold {
			pid := p.principal
			threats = append(threats, Threat{
				Type:        ThreatSuspiciousPattern,
				Severity:    SeverityMedium,
				PrincipalID: &pid,
				IP:          p.ip,
				Count:       count,
				Description: fmt.Sprintf("%d failed logins for one principal from %s", count, p.ip),
				DetectedAt:  now,
			})
		}
	}
	for ip, count := range byIP {
		if count > ipAttackThreshold {
			threats = append(threats, Threat{
				Type:        ThreatIPAttack,
				Severity:    SeverityHigh,
				IP:          ip,
				Count:       count,
				Description: fmt.Sprintf("%d failed logins from %s", count, ip),
				DetectedAt:  now,
			})
		}
	}

	slices.SortFunc(threats, func(a, b Threat) int {
		if a.Severity != b.Severity {
			if a.Severity == SeverityHigh {
				return -1
			}
			return 1
		}
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Type, b.Type)
	})
	return threats, nil
}
