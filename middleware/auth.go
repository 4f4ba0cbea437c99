package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"tailorfinder/session"
	"tailorfinder/utils"
)

type ContextKeys string

const (
	SessionContext ContextKeys = "session"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (session.Session, error)
}

// SessionFrom returns the session stored by Auth.
func SessionFrom(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(SessionContext).(session.Session)
	return sess, ok
}

// Auth only lets requests with a live "Bearer" session token through.
func Auth(auth Authenticator) func(http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				utils.HandleError(w, http.StatusUnauthorized, "Missing session token")
				return
			}

			sess, err := auth.Authenticate(r.Context(), token)
			if errors.Is(err, session.ErrInvalidSession) {
				utils.HandleError(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}
			if err != nil {
				logrus.Errorf("failed to resolve session: %s", err)
				utils.HandleError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContext, sess)
			handler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
