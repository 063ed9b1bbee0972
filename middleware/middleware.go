package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"mrsmoothy/models"
	"mrsmoothy/session"
	"mrsmoothy/utils"
)

type contextKey string

const (
	sessionIDKey   contextKey = "sessionID"
	sessionOptsKey contextKey = "sessionOptions"
)

// SessionID returns the id the Sessions middleware put on ctx.
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

// WithSessionID is used by tests and background work that run outside the
// middleware chain.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sid)
}

type SessionOptions struct {
	Secret     []byte
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Sessions gives every browser a session id carried in a signed cookie.
// A missing, tampered or expired cookie starts a fresh session.
func Sessions(opts SessionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(opts.CookieName); err == nil {
				sid = parseSessionCookie(c.Value, opts.Secret)
			}
			if sid == "" {
				sid = session.NewID()
				if err := setSessionCookie(w, opts, sid); err != nil {
					utils.RespondWithError(w, http.StatusInternalServerError, "Could not start a session", nil)
					return
				}
			}
			ctx := context.WithValue(r.Context(), sessionOptsKey, opts)
			next.ServeHTTP(w, r.WithContext(WithSessionID(ctx, sid)))
		})
	}
}

// ReissueSession points the browser at session sid, replacing its cookie.
// It needs the Sessions middleware upstream of r.
func ReissueSession(w http.ResponseWriter, r *http.Request, sid string) error {
	opts, ok := r.Context().Value(sessionOptsKey).(SessionOptions)
	if !ok {
		return errors.New("no session middleware on this request")
	}
	return setSessionCookie(w, opts, sid)
}

func setSessionCookie(w http.ResponseWriter, opts SessionOptions, sid string) error {
	value, err := signSessionCookie(sid, opts.Secret, opts.TTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func signSessionCookie(sid string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        sid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseSessionCookie(value string, secret []byte) string {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(value, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	return claims.ID
}

// RequireAdmin sends visitors without an admin profile away from the back
// office: to the login page when signed out, to the home page otherwise.
// The backend authorizes every admin call on its own; this only saves a
// round trip and a confusing error.
func RequireAdmin(state *session.State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sid := SessionID(ctx)
			token := state.Token(ctx, sid)
			user := state.User(ctx, sid)

			if token != "" {
				if claims, err := session.ParseBackendClaims(token); err == nil && claims.Expired(time.Now()) {
					_ = state.Logout(ctx, sid)
					token, user = "", nil
				}
			}

			switch {
			case token == "" || user == nil:
				deny(w, r, http.StatusUnauthorized, "Please sign in to continue", "/login?redirect="+url.QueryEscape(r.URL.Path))
			case user.Role != models.RoleAdmin:
				deny(w, r, http.StatusForbidden, "Admin access required", "/")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func deny(w http.ResponseWriter, r *http.Request, status int, msg, target string) {
	if wantsJSON(r) {
		utils.RespondWithError(w, status, msg, map[string]string{"redirect": target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// ValidateRequestBody rejects writes whose body is not a non-empty JSON
// document, then restores the body for the next handler.
func ValidateRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
			next.ServeHTTP(w, r)
			return
		}

		mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mt != "application/json" {
			utils.RespondWithError(w, http.StatusUnsupportedMediaType, "Content-Type header must be application/json", nil)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			utils.RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body is too large", nil)
			return
		}
		if len(bytes.TrimSpace(body)) == 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Request body is empty", nil)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// Recover turns a handler panic into a 500 envelope.
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error("handler panic",
						zap.Any("panic", v),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()))
					utils.RespondWithError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
