package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sabaqhq/sabaq/internal/log"
	"github.com/sabaqhq/sabaq/internal/transform"
)

// Claims are the verified JWT claims. Tokens are issued by the
// identity provider during onboarding; this server only verifies.
// The profile fields mirror the onboarding questionnaire.
type Claims struct {
	ProgrammingExperience string `json:"programming_experience,omitempty"`
	RoboticsExperience    string `json:"robotics_experience,omitempty"`
	HardwareAvailability  string `json:"hardware_availability,omitempty"`
	jwt.RegisteredClaims
}

// Profile converts the claims into a learner profile.
func (c *Claims) Profile() *transform.Profile {
	return &transform.Profile{
		ProgrammingExperience: c.ProgrammingExperience,
		RoboticsExperience:    c.RoboticsExperience,
		HardwareAvailability:  c.HardwareAvailability,
	}
}

var errInvalidToken = errors.New("invalid token")

// validateToken parses and verifies an HS256 bearer token.
func validateToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

type claimsKey struct{}

var ctxKeyClaims = claimsKey{}

// claimsFromContext retrieves the verified claims set by authMiddleware.
func claimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(*Claims)
	return claims, ok
}

// authMiddleware verifies the Authorization bearer token and puts the
// claims into the request context.
func authMiddleware(secret []byte, logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "missing_token", "missing authorization header", logger)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid_header", "authorization header must be a bearer token", logger)
				return
			}

			claims, err := validateToken(token, secret)
			if err != nil {
				logger.Debug("token rejected", "error", err, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token", logger)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
