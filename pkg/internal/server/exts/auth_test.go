package exts

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signUserToken(t *testing.T, method jwt.SigningMethod, secret string, claims UserClaims) string {
	t.Helper()
	tk, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tk
}

func TestParseUserToken(t *testing.T) {
	viper.Set("security.jwt_secret", "auth-test-secret")

	valid := UserClaims{
		Name: "alice",
		Nick: "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	claims, err := ParseUserToken(signUserToken(t, jwt.SigningMethodHS256, "auth-test-secret", valid))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Alice", claims.Nick)

	_, err = ParseUserToken(signUserToken(t, jwt.SigningMethodHS256, "other-secret", valid))
	assert.Error(t, err)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err = ParseUserToken(signUserToken(t, jwt.SigningMethodHS256, "auth-test-secret", expired))
	assert.Error(t, err)

	anonymous := valid
	anonymous.Subject = ""
	_, err = ParseUserToken(signUserToken(t, jwt.SigningMethodHS256, "auth-test-secret", anonymous))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateStruct(t *testing.T) {
	var data struct {
		Emoji string `json:"emoji" validate:"required,max=32"`
	}
	assert.Error(t, ValidateStruct(&data))
	data.Emoji = "👍"
	assert.NoError(t, ValidateStruct(&data))
}
