// Package session manages authenticated principal sessions: opaque-token
// issuance, activity tracking, revocation and security reporting.
//
// A Manager orchestrates the session life-cycle over a pluggable Store. A
// concurrent in-memory implementation ships out of the box and a Postgres
// implementation persists sessions across restarts. Session tokens travel via
// the Transport interface (header, cookie, or both), and Middleware resolves
// the current session into the request context.
//
// Sessions are fixed-window: Touch records activity but never extends
// ExpiresAt, so a session ends at most its configured lifetime after
// creation. Revocation is terminal. Expired sessions are removed by
// CleanupExpired, either on demand or on the store's background ticker.
//
// Activity updates are batched through a buffered channel worker so request
// hot paths never block on the store.
//
// # Usage
//
//	store := session.NewMemoryStore(5 * time.Minute)
//	manager := session.New(store)
//	defer manager.Close()
//
//	sess, err := manager.Create(ctx, principalID, session.DeviceMeta{
//	    Device:    "MacBook Pro",
//	    IP:        "203.0.113.7",
//	    UserAgent: r.UserAgent(),
//	})
//
// The security report surfaces account-takeover signals: an IP address shared
// by two or more concurrent sessions is flagged suspicious, and the overall
// score degrades with session count, IP spread and suspicious activity.
package session
