package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/api/weberr"
	"github.com/avelic/academy/rate"
)

// RateLimit throttles requests per client address. Intended for the auth and
// token endpoints, which are the ones worth brute-forcing.
func RateLimit(limiter *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !limiter.Check(ip) {
				err := errors.New("rate limit exceeded")
				return weberr.NewError(err, "too many requests, slow down", http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
