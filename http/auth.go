package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

const (
	RoleAdmin     = "admin"
	RoleOrganiser = "organiser"
)

var scannerRoles = []string{RoleAdmin, RoleOrganiser}

type ScannerClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueScannerToken signs an HS256 token for a door scanner operator.
func IssueScannerToken(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ScannerClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// NewScannerAuthMiddleware lets through requests carrying a valid bearer token
// of an admin or organiser.
func NewScannerAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			logger := log.FromContext(c.Request().Context())

			if secret == "" {
				logger.Error("JWT secret not configured, rejecting scanner request")
				return echo.NewHTTPError(http.StatusUnauthorized, "scanner authentication not configured")
			}

			tokenString, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if !ok || tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authorization token missing")
			}

			claims := &ScannerClaims{}
			token, err := jwt.ParseWithClaims(
				tokenString,
				claims,
				func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
					}
					return []byte(secret), nil
				},
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			)
			if err != nil || !token.Valid {
				logger.WithError(err).Info("Invalid scanner token")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			if !lo.Contains(scannerRoles, claims.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "role not allowed to scan tickets")
			}

			c.Set("scanner_claims", claims)
			return next(c)
		}
	}
}
