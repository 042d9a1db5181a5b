package service_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, clock service.Clock) *service.TokenCodec {
	t.Helper()

	codec, err := service.NewTokenCodec(testSecret, testAudience, time.Hour, clock)
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodec_RejectsEmptySecret(t *testing.T) {
	codec, err := service.NewTokenCodec("", testAudience, time.Hour, nil)
	require.ErrorIs(t, err, service.ErrEmptySecret)
	require.Nil(t, codec)
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := newCodec(t, newFakeClock())

	for _, email := range []string{"u@test.io", "Mixed.Case+tag@Example.COM", "ünïcode@test.io"} {
		token, err := codec.Encode(email)
		require.NoError(t, err)

		got, err := codec.Decode(token)
		require.NoError(t, err)
		require.Equal(t, email, got)

		got, err = codec.DecodeMaxAge(token, 0)
		require.NoError(t, err)
		require.Equal(t, email, got)
	}
}

func TestTokenCodec_NegativeMaxAgeAlwaysExpires(t *testing.T) {
	codec := newCodec(t, newFakeClock())

	token, err := codec.Encode("u@test.io")
	require.NoError(t, err)

	got, err := codec.DecodeMaxAge(token, -1)
	require.ErrorIs(t, err, service.ErrTokenExpired)
	require.Empty(t, got)
}

func TestTokenCodec_ExpiresAfterMaxAge(t *testing.T) {
	clock := newFakeClock()
	codec := newCodec(t, clock)

	token, err := codec.Encode("u@test.io")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	got, err := codec.Decode(token)
	require.NoError(t, err)
	require.Equal(t, "u@test.io", got)

	clock.Advance(time.Second)
	_, err = codec.Decode(token)
	require.ErrorIs(t, err, service.ErrTokenExpired)

	_, err = codec.DecodeMaxAge(token, 2*time.Hour)
	require.NoError(t, err)
}

func TestTokenCodec_TamperedSignature(t *testing.T) {
	codec := newCodec(t, newFakeClock())

	token, err := codec.Encode("u@test.io")
	require.NoError(t, err)

	_, err = codec.Decode(tamper(token))
	require.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestTokenCodec_TamperedFinalCharacter(t *testing.T) {
	codec := newCodec(t, newFakeClock())

	token, err := codec.Encode("u@test.io")
	require.NoError(t, err)

	tampered := tamperLast(token)
	require.NotEqual(t, token, tampered)

	got, err := codec.Decode(tampered)
	require.ErrorIs(t, err, service.ErrInvalidToken)
	require.Empty(t, got)
}

func TestTokenCodec_RejectsForeignTokens(t *testing.T) {
	clock := newFakeClock()
	codec := newCodec(t, clock)

	otherSecret, err := service.NewTokenCodec("other-secret", testAudience, time.Hour, clock)
	require.NoError(t, err)
	token, err := otherSecret.Encode("u@test.io")
	require.NoError(t, err)
	_, err = codec.Decode(token)
	require.ErrorIs(t, err, service.ErrInvalidToken)

	otherAudience, err := service.NewTokenCodec(testSecret, "other-salt", time.Hour, clock)
	require.NoError(t, err)
	token, err = otherAudience.Encode("u@test.io")
	require.NoError(t, err)
	_, err = codec.Decode(token)
	require.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = codec.Decode("not-a-token")
	require.ErrorIs(t, err, service.ErrInvalidToken)
	_, err = codec.Decode("")
	require.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	clock := newFakeClock()
	codec := newCodec(t, clock)

	claims := jwt.RegisteredClaims{
		Subject:  "u@test.io",
		IssuedAt: jwt.NewNumericDate(clock.Now()),
		Audience: jwt.ClaimStrings{testAudience},
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(unsigned)
	require.ErrorIs(t, err, service.ErrInvalidToken)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rsaSigned, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	_, err = codec.Decode(rsaSigned)
	require.ErrorIs(t, err, service.ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Decode(hs512)
	require.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestTokenCodec_RequiresSubjectAndIssuedAt(t *testing.T) {
	clock := newFakeClock()
	codec := newCodec(t, clock)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt: jwt.NewNumericDate(clock.Now()),
		Audience: jwt.ClaimStrings{testAudience},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Decode(noSubject)
	require.ErrorIs(t, err, service.ErrInvalidToken)

	noIssuedAt, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  "u@test.io",
		Audience: jwt.ClaimStrings{testAudience},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Decode(noIssuedAt)
	require.ErrorIs(t, err, service.ErrInvalidToken)
}
