package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nazir74680/Tumor-segmeantation/internal/models"
)

// PlaceholderSignature is the literal third segment of an unsigned token.
const PlaceholderSignature = "signature"

var ErrTokenDecode = errors.New("token decode failure")

// Claims is the token payload: the user record plus iat/exp in Unix seconds.
type Claims struct {
	ID    string          `json:"id"`
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Role  models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func NewClaims(user models.User, now time.Time, lifetime time.Duration) Claims {
	issued := time.Unix(now.Unix(), 0)
	return Claims{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(lifetime)),
		},
	}
}

func (c Claims) User() models.User {
	return models.User{
		ID:    c.ID,
		Email: c.Email,
		Name:  c.Name,
		Role:  c.Role,
	}
}

func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired mirrors exp*1000 < now: a token whose exp equals now is not yet expired.
func (c Claims) Expired(now time.Time) bool {
	return c.Expiry().Before(now)
}

func (c Claims) validate() error {
	if c.ExpiresAt == nil {
		return fmt.Errorf("%w: missing exp", ErrTokenDecode)
	}
	if c.ID == "" || !c.Role.Valid() {
		return fmt.Errorf("%w: incomplete user payload", ErrTokenDecode)
	}
	return nil
}

type Codec interface {
	Encode(claims Claims) (string, error)
	Decode(token string) (Claims, error)
}

// PlaceholderCodec produces header.payload.signature tokens whose last segment
// is the constant PlaceholderSignature. Nothing is signed and Decode performs no
// verification: these tokens are a client-local session marker and carry no
// integrity guarantee. Use SignedCodec when integrity matters.
type PlaceholderCodec struct{}

func (PlaceholderCodec) Encode(claims Claims) (string, error) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SigningString()
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return unsigned + "." + PlaceholderSignature, nil
}

func (PlaceholderCodec) Decode(token string) (Claims, error) {
	if strings.Count(token, ".") != 2 {
		return Claims{}, fmt.Errorf("%w: expected three segments", ErrTokenDecode)
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	if err := claims.validate(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// SignedCodec issues HS256 tokens and rejects any token whose signature does
// not verify against the secret. Expiry is left to the caller.
type SignedCodec struct {
	secret []byte
}

func NewSignedCodec(secret string) *SignedCodec {
	return &SignedCodec{secret: []byte(secret)}
}

func (c *SignedCodec) Encode(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *SignedCodec) Decode(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	if err := claims.validate(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// NewCodec maps the session.signing setting to a codec.
func NewCodec(signing string, secret string) (Codec, error) {
	switch signing {
	case "", "none":
		return PlaceholderCodec{}, nil
	case "hs256":
		if secret == "" {
			return nil, errors.New("hs256 signing requires a secret")
		}
		return NewSignedCodec(secret), nil
	default:
		return nil, fmt.Errorf("unknown signing mode %q", signing)
	}
}
