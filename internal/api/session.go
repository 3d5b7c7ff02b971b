// internal/api/session.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"era-intake/internal/models"
)

type sessionKey struct{}

// Session resolves the sid cookie, issuing a fresh one on first contact.
func (h *Handler) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess models.Session
		if c, err := r.Cookie(models.SessionCookie); err == nil && validSessionID(c.Value) {
			sess = models.Session{ID: c.Value}
		} else {
			sess = h.newSession(w)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// SessionFrom returns the session attached by the Session middleware.
func SessionFrom(ctx context.Context) (models.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(models.Session)
	return sess, ok
}

func (h *Handler) newSession(w http.ResponseWriter) models.Session {
	sess := models.Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC(), IsNew: true}
	http.SetCookie(w, &http.Cookie{
		Name:     models.SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func validSessionID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}
