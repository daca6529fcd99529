package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazir74680/Tumor-segmeantation/internal/models"
)

var demoAdmin = models.User{ID: "1", Email: "admin@example.com", Name: "Admin User", Role: models.UserRoleAdmin}

func decodeSegment(t *testing.T, seg string) map[string]any {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestPlaceholderTokenLayout(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC)
	token, err := PlaceholderCodec{}.Encode(NewClaims(demoAdmin, now, DefaultLifetime))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	assert.Equal(t, PlaceholderSignature, parts[2])
	assert.NotContains(t, token, "=")

	header := decodeSegment(t, parts[0])
	assert.Equal(t, map[string]any{"alg": "HS256", "typ": "JWT"}, header)

	payload := decodeSegment(t, parts[1])
	assert.Equal(t, "1", payload["id"])
	assert.Equal(t, "admin@example.com", payload["email"])
	assert.Equal(t, "Admin User", payload["name"])
	assert.Equal(t, "admin", payload["role"])
	assert.Equal(t, float64(now.Unix()), payload["iat"])
	assert.Equal(t, float64(86400), payload["exp"].(float64)-payload["iat"].(float64))
}

func TestPlaceholderRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	codec := PlaceholderCodec{}

	token, err := codec.Encode(NewClaims(demoAdmin, now, DefaultLifetime))
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, demoAdmin, claims.User())
	assert.Equal(t, now.Add(24*time.Hour).Unix(), claims.Expiry().Unix())
}

func TestPlaceholderDecodeRejectsGarbage(t *testing.T) {
	codec := PlaceholderCodec{}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ID: "1", Role: models.UserRoleUser}).SigningString()
	require.NoError(t, err)

	for _, token := range []string{
		"",
		"abc",
		"a.b",
		"a.b.c.d",
		"!!!.@@@.signature",
		noExp + ".signature",
	} {
		_, err := codec.Decode(token)
		assert.ErrorIs(t, err, ErrTokenDecode, "token %q", token)
	}
}

func TestClaimsExpiredBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	claims := NewClaims(demoAdmin, now, time.Hour)

	assert.False(t, claims.Expired(now))
	assert.False(t, claims.Expired(now.Add(time.Hour)))
	assert.True(t, claims.Expired(now.Add(time.Hour+time.Millisecond)))
}

func TestSignedCodec(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	codec := NewSignedCodec("secret")

	token, err := codec.Encode(NewClaims(demoAdmin, now, DefaultLifetime))
	require.NoError(t, err)
	assert.NotEqual(t, PlaceholderSignature, token[strings.LastIndex(token, ".")+1:])

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, demoAdmin, claims.User())

	_, err = NewSignedCodec("other").Decode(token)
	assert.ErrorIs(t, err, ErrTokenDecode)

	unsigned, err := PlaceholderCodec{}.Encode(NewClaims(demoAdmin, now, DefaultLifetime))
	require.NoError(t, err)
	_, err = codec.Decode(unsigned)
	assert.ErrorIs(t, err, ErrTokenDecode)
}

func TestNewCodec(t *testing.T) {
	c, err := NewCodec("none", "")
	require.NoError(t, err)
	assert.IsType(t, PlaceholderCodec{}, c)

	c, err = NewCodec("hs256", "k")
	require.NoError(t, err)
	assert.IsType(t, &SignedCodec{}, c)

	_, err = NewCodec("hs256", "")
	assert.Error(t, err)

	_, err = NewCodec("rs256", "k")
	assert.Error(t, err)
}
