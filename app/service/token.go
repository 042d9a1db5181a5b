package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec turns an email address into a signed, URL-safe, expiring token and back.
// The token is an HS256 JWT carrying the email as subject and the issuance time;
// nothing is stored server side.
type TokenCodec struct {
	secret   []byte
	audience string
	maxAge   time.Duration
	clock    Clock
}

// NewTokenCodec fails when secret is empty. audience namespaces the tokens so that
// other HS256 tokens signed with the same secret are rejected.
func NewTokenCodec(secret, audience string, defaultMaxAge time.Duration, clock Clock) (*TokenCodec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenCodec{
		secret:   []byte(secret),
		audience: audience,
		maxAge:   defaultMaxAge,
		clock:    clock,
	}, nil
}

func (c *TokenCodec) Encode(email string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  email,
		IssuedAt: jwt.NewNumericDate(c.clock.Now()),
	}
	if c.audience != "" {
		claims.Audience = jwt.ClaimStrings{c.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies token with the default max age.
func (c *TokenCodec) Decode(token string) (string, error) {
	return c.DecodeMaxAge(token, c.maxAge)
}

// DecodeMaxAge returns the email embedded in token. It fails with ErrInvalidToken
// on a bad signature or malformed token and with ErrTokenExpired when more than
// maxAge (whole seconds) elapsed since issuance. A negative maxAge always expires.
func (c *TokenCodec) DecodeMaxAge(token string, maxAge time.Duration) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}

	if claims.Subject == "" || claims.IssuedAt == nil {
		return "", ErrInvalidToken
	}

	elapsed := c.clock.Now().Unix() - claims.IssuedAt.Unix()
	if maxAge < 0 || elapsed > int64(maxAge/time.Second) {
		return "", ErrTokenExpired
	}

	return claims.Subject, nil
}
