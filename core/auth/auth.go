package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/api/weberr"
	"github.com/avelic/academy/core/claims"
)

const (
	userIDKey   = "user_id"
	userRoleKey = "user_role"
)

// bufferedWriter delays the response so the session cookie can still be
// written after the handler has run.
type bufferedWriter struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (w *bufferedWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *bufferedWriter) WriteHeader(code int) { w.code = code }

// LoadAndSave is the session middleware. It mirrors scs's own LoadAndSave
// but fits the error-returning handler signature.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var token string
			if cookie, err := r.Cookie(session.Cookie.Name); err == nil {
				token = cookie.Value
			}

			ctx, err := session.Load(ctx, token)
			if err != nil {
				return err
			}

			bw := &bufferedWriter{ResponseWriter: w}
			herr := handler(ctx, bw, r.WithContext(ctx))

			switch session.Status(ctx) {
			case scs.Modified:
				token, expiry, err := session.Commit(ctx)
				if err != nil {
					return err
				}
				session.WriteSessionCookie(ctx, w, token, expiry)
			case scs.Destroyed:
				session.WriteSessionCookie(ctx, w, "", time.Time{})
			}

			if bw.code != 0 {
				w.WriteHeader(bw.code)
			}
			if _, err := w.Write(bw.buf.Bytes()); err != nil {
				return err
			}
			return herr
		}
		return h
	}
	return m
}

// Authenticate loads the caller's claims from the session or rejects the
// request.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := session.GetString(ctx, userIDKey)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			clm := claims.Claims{
				UserID: userID,
				Role:   session.GetString(ctx, userRoleKey),
			}

			ctx = claims.Set(ctx, clm)
			return handler(ctx, w, r.WithContext(ctx))
		}
		return h
	}
	return m
}

// Creator allows only authenticated users carrying the creator role.
func Creator(session *scs.SessionManager) web.Middleware {
	authen := Authenticate(session)
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !claims.IsCreator(ctx) {
				return weberr.NotAuthorized(errors.New("user is not a creator"))
			}
			return handler(ctx, w, r)
		}
		return authen(h)
	}
	return m
}
