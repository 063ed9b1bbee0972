package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mrsmoothy/models"
)

// BackendClaims is what the storefront reads out of a backend token. The
// signature is not checked here: the backend verifies every call it
// receives, and these claims only drive navigation.
type BackendClaims struct {
	Subject   string
	Role      models.Role
	ExpiresAt time.Time
}

func (c BackendClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

func ParseBackendClaims(token string) (BackendClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return BackendClaims{}, fmt.Errorf("parse backend token: %w", err)
	}

	var out BackendClaims
	out.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	if r, ok := claims["role"].(string); ok {
		out.Role = normalizeRole(r)
	}
	if out.Role == "" {
		if roles, ok := claims["roles"].([]any); ok {
			for _, r := range roles {
				if s, ok := r.(string); ok && normalizeRole(s) == models.RoleAdmin {
					out.Role = models.RoleAdmin
					break
				}
			}
			if out.Role == "" && len(roles) > 0 {
				out.Role = models.RoleUser
			}
		}
	}
	return out, nil
}

func normalizeRole(s string) models.Role {
	return models.Role(strings.TrimPrefix(strings.ToUpper(s), "ROLE_"))
}
