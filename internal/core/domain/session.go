package domain

import "context"

// Session is the authenticated caller of a request, decoded from its bearer token.
type Session struct {
	UserID string
	Role   string
}

// IsLandlord reports whether the session carries the landlord role.
func (s Session) IsLandlord() bool {
	return s.Role == RoleLandlord
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
