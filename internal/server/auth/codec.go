// Package auth signs and verifies bearer tokens and answers role checks
// over them.
package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/ids"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: sub, iat, exp and jti from the registered
// set plus username and roles.
type Claims struct {
	UserName string        `json:"username"`
	Roles    []models.Role `json:"roles"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 tokens. The first key signs; every key
// verifies, so retired secrets can be kept around during rotation.
// A Codec is immutable after construction.
type Codec struct {
	keys   [][]byte
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Codec)

// WithPreviousSecrets adds verify-only secrets.
func WithPreviousSecrets(secrets ...[]byte) Option {
	return func(c *Codec) {
		for _, s := range secrets {
			if len(s) > 0 {
				c.keys = append(c.keys, append([]byte(nil), s...))
			}
		}
	}
}

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

var errEmptySecret = errors.New("token secret must not be empty")

func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errEmptySecret
	}
	c := &Codec{
		keys: [][]byte{append([]byte(nil), secret...)},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// Sign issues a token for subjectID valid for ttl.
func (c *Codec) Sign(subjectID, username string, roles []models.Role, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", errors.New("token subject must not be empty")
	}
	now := c.now()
	claims := Claims{
		UserName: username,
		Roles:    append([]models.Role{}, roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// two tokens minted for one subject within a second must still differ
			ID: ids.NewAt(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.keys[0])
}

// Verify checks the signature over the raw header and payload before any
// decoding, then validates the claims. Errors are common.ErrMalformedToken,
// common.ErrInvalidSignature or common.ErrTokenExpired.
func (c *Codec) Verify(token string) (*Claims, error) {
	dot := strings.LastIndexByte(token, '.')
	if strings.Count(token, ".") != 2 || dot <= 0 || dot == len(token)-1 {
		return nil, common.ErrMalformedToken
	}
	sig, err := base64.RawURLEncoding.Strict().DecodeString(token[dot+1:])
	if err != nil {
		return nil, common.ErrMalformedToken
	}

	key := c.matchKey(token[:dot], sig)
	if key == nil {
		return nil, common.ErrInvalidSignature
	}

	claims := &Claims{}
	if _, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, common.ErrMalformedToken
	}
	return claims, nil
}

func (c *Codec) matchKey(signingString string, sig []byte) []byte {
	for _, k := range c.keys {
		// hmac.Equal underneath, constant time per key
		if jwt.SigningMethodHS256.Verify(signingString, sig, k) == nil {
			return k
		}
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return common.ErrInvalidSignature
	default:
		return common.ErrMalformedToken
	}
}
