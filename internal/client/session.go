package client

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const (
	cookiesKey ctxKey = iota
	returnURLKey
)

// WithCookies attaches the caller's cookies to outgoing backend requests
func WithCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	return context.WithValue(ctx, cookiesKey, cookies)
}

// WithReturnURL sets the URL the auth server sends the user back to
func WithReturnURL(ctx context.Context, returnURL string) context.Context {
	return context.WithValue(ctx, returnURLKey, returnURL)
}

// FromRequest carries r's cookies and URL into ctx
func FromRequest(ctx context.Context, r *http.Request, publicURL string) context.Context {
	ctx = WithCookies(ctx, r.Cookies())
	if publicURL != "" {
		ctx = WithReturnURL(ctx, publicURL+r.URL.RequestURI())
	}
	return ctx
}

func cookiesFrom(ctx context.Context) []*http.Cookie {
	cookies, _ := ctx.Value(cookiesKey).([]*http.Cookie)
	return cookies
}

func returnURLFrom(ctx context.Context) string {
	u, _ := ctx.Value(returnURLKey).(string)
	return u
}

// sessionExpired reports whether the session cookie is a JWT whose exp
// has passed. The signature is not checked; the backend does that.
// Opaque session values are never treated as expired.
func sessionExpired(value string, now time.Time) bool {
	token, _, err := jwt.NewParser().ParseUnverified(value, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
