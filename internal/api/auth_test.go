package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabaqhq/sabaq/internal/transform"
)

func TestValidateToken(t *testing.T) {
	claims := &Claims{
		ProgrammingExperience: transform.ExperienceAdvanced,
		RoboticsExperience:    transform.RoboticsSimulation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "learner-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	got, err := validateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "learner-42", got.Subject)
	assert.Equal(t, transform.ExperienceAdvanced, got.ProgrammingExperience)

	profile := got.Profile()
	assert.Equal(t, transform.ExperienceAdvanced, profile.ProgrammingExperience)
	assert.Equal(t, transform.RoboticsSimulation, profile.RoboticsExperience)
}

func TestValidateTokenRejections(t *testing.T) {
	valid := func(c *Claims, secret []byte, method jwt.SigningMethod) string {
		token, err := jwt.NewWithClaims(method, c).SignedString(secret)
		require.NoError(t, err)
		return token
	}

	fresh := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	expired := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", valid(&Claims{RegisteredClaims: fresh}, []byte("ffffffffffffffffffffffffffffffff"), jwt.SigningMethodHS256)},
		{"expired", valid(&Claims{RegisteredClaims: expired}, testSecret, jwt.SigningMethodHS256)},
		{"wrong algorithm", valid(&Claims{RegisteredClaims: fresh}, testSecret, jwt.SigningMethodHS512)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateToken(tt.token, testSecret)
			assert.Error(t, err)
		})
	}
}

func TestClaimsProfileDefaults(t *testing.T) {
	// Empty claim fields surface as an empty profile; the transform
	// package applies questionnaire defaults when hashing.
	c := &Claims{}
	p := c.Profile()
	assert.Empty(t, p.ProgrammingExperience)
	assert.Empty(t, p.RoboticsExperience)
	assert.Empty(t, p.HardwareAvailability)
}
