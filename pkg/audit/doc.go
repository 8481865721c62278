// Package audit records security-relevant actions to an append-only log and
// analyzes it for operational and threat signals.
//
// An Engine writes Entry records through a pluggable Storage. Recording is
// best-effort: a storage failure is logged, never propagated, so audit
// outages cannot break business operations. Request and response payloads
// pass through a Redactor before persistence, which replaces sensitive
// fields (passwords, tokens, API keys and the like) with a fixed marker,
// recursing into nested payloads.
//
// Context extractors populate principal, tenant, IP and user agent from the
// request context, so call sites only name the action:
//
//	engine.Log(ctx, audit.ActionLogin, "user signed in",
//	    audit.WithRequest(map[string]any{"email": email, "password": pw}))
//
// A Reporter computes statistics, activity heatmaps, top actions and error
// trends over the log, and MonitorThreats runs brute-force, repeated-failure
// and IP-attack heuristics over the recent failed-login history. Retention
// is enforced by CleanupOldLogs; the log exports as JSON or CSV.
package audit
