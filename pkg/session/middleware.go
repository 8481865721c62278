package session

import "net/http"

// Middleware resolves the live session for the request token into the
// context and records activity. Requests without a live session pass
// through untouched.
func (m *Manager) Middleware(transport Transport) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := transport.GetToken(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			session, err := m.Get(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			m.Touch(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireSession rejects requests without a live session with 401.
func (m *Manager) RequireSession(transport Transport) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := transport.GetToken(r)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			session, err := m.Get(r.Context(), token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			m.Touch(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
