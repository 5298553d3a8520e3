package session

import (
	"context"

	"ideias/internal/models"
)

type contextKey struct{}

func NewContext(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

func FromContext(ctx context.Context) (*models.Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*models.Session)
	return sess, ok && sess != nil
}

// UserID returns the authenticated user's id, or 0 and false for anonymous requests.
func UserID(ctx context.Context) (int64, bool) {
	sess, ok := FromContext(ctx)
	if !ok {
		return 0, false
	}
	return sess.UserID, true
}
