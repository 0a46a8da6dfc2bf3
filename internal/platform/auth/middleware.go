package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Dev-mode identity headers. Only honored by DevAuthMiddleware.
const (
	DevUserHeader = "X-User-ID"
	DevRoleHeader = "X-User-Role"
)

// Claims carries the subject and its role. Issuers that emit a roles array
// are accepted too; the single role claim wins when both are present.
type Claims struct {
	jwt.RegisteredClaims
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func (c *Claims) roles() []string {
	var out []string
	if c.Role != "" {
		out = append(out, normalizeRole(c.Role))
	}
	for _, r := range c.Roles {
		if r = normalizeRole(r); r != "" && (len(out) == 0 || out[0] != r) {
			out = append(out, r)
		}
	}
	return out
}

func normalizeRole(r string) string {
	return strings.ToUpper(strings.TrimSpace(r))
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey verifies HS256 tokens issued by this deployment.
	SigningKey []byte
	Skipper    func(echo.Context) bool
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	jwksURL := cfg.JWKSURL
	if jwksURL == "" && cfg.Issuer != "" && len(cfg.SigningKey) == 0 {
		if u, err := DiscoverJWKSURL(&http.Client{Timeout: 10 * time.Second}, cfg.Issuer); err == nil {
			jwksURL = u
		}
	}
	var keyFunc jwt.Keyfunc
	if len(cfg.SigningKey) > 0 {
		keyFunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	} else {
		keyFunc = NewJWKSCache(jwksURL, defaultJWKSCacheTTL).keyFunc()
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			roles := claims.roles()
			if len(roles) == 0 {
				return echo.NewHTTPError(http.StatusForbidden, "token has no role")
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), claims.Subject, roles...)))
			return next(c)
		}
	}
}

// DevAuthMiddleware trusts identity headers and falls back to a dev admin.
// Bearer tokens are not checked.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := c.Request().Header.Get(DevUserHeader)
			if uid == "" {
				uid = "dev-user"
			}
			role := normalizeRole(c.Request().Header.Get(DevRoleHeader))
			if role == "" {
				role = "ADMIN"
			}
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), uid, role)))
			return next(c)
		}
	}
}

// WithIdentity returns ctx carrying the authenticated user and roles.
func WithIdentity(ctx context.Context, userID string, roles ...string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

// PrimaryRole is the first role asserted for the request, or "".
func PrimaryRole(ctx context.Context) string {
	if roles := RolesFromContext(ctx); len(roles) > 0 {
		return roles[0]
	}
	return ""
}
