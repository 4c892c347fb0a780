package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reminder/internal/shared/model"
)

func testIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer(Config{JWTSecret: "test-secret"})
	require.NoError(t, err)
	return iss
}

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer(Config{})
	assert.Error(t, err, "empty secret")

	_, err = NewIssuer(Config{JWTSecret: "s", Algorithm: "RS256"})
	assert.Error(t, err, "non-HMAC algorithm")

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		iss, err := NewIssuer(Config{JWTSecret: "s", Algorithm: alg})
		require.NoError(t, err)
		tok, err := iss.Issue("alice", time.Minute)
		require.NoError(t, err)
		sub, err := iss.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, "alice", sub)
	}
}

func TestIssue_Expiry(t *testing.T) {
	iss := testIssuer(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return now }

	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{"explicit", 30 * time.Minute, 30 * time.Minute},
		{"zero uses default", 0, 15 * time.Minute},
		{"negative uses default", -time.Minute, 15 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := iss.Issue("alice", tt.ttl)
			require.NoError(t, err)

			claims := &jwt.RegisteredClaims{}
			_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
			require.NoError(t, err)
			assert.Equal(t, now.Add(tt.want), claims.ExpiresAt.Time.UTC())
			assert.Equal(t, "alice", claims.Subject)
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	iss := testIssuer(t)
	now := time.Now()

	expired, err := iss.Issue("alice", time.Minute)
	require.NoError(t, err)
	iss.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = iss.Verify(expired)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.ErrorIs(t, err, errTokenExpired)
	iss.now = time.Now

	other, err := NewIssuer(Config{JWTSecret: "other-secret"})
	require.NoError(t, err)
	forged, err := other.Issue("alice", time.Minute)
	require.NoError(t, err)
	_, err = iss.Verify(forged)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	// 同一密钥但算法不同
	hs512, err := NewIssuer(Config{JWTSecret: "test-secret", Algorithm: "HS512"})
	require.NoError(t, err)
	wrongAlg, err := hs512.Issue("alice", time.Minute)
	require.NoError(t, err)
	_, err = iss.Verify(wrongAlg)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	noSub, err := iss.Issue("", time.Minute)
	require.NoError(t, err)
	_, err = iss.Verify(noSub)
	assert.ErrorIs(t, err, errNoSubject)

	// 缺少 exp
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = iss.Verify(noExp)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = iss.Verify("not.a.token")
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("wrong horse", hash))
}
