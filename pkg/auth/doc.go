// Package auth implements credential flows on top of the identity store:
// password registration and login with bcrypt hashing, stateless password
// reset links signed with pkg/token, and federated login through OAuth
// provider adapters (Google, GitHub).
//
// Login failures collapse into ErrInvalidCredentials so callers cannot
// distinguish a missing account from a wrong password. Every flow emits
// audit entries through an optional Auditor, which the audit engine
// satisfies directly.
package auth
