package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"reminder/internal/shared/model"
)

// 令牌失败原因，均包装 model.ErrUnauthorized
var (
	errTokenExpired = errors.New("token expired")
	errTokenInvalid = errors.New("token invalid")
	errNoSubject    = errors.New("token has no subject")
)

// Issuer 签发与校验 HMAC JWT，subject 为用户名
type Issuer struct {
	secret     []byte
	method     jwt.SigningMethod
	defaultTTL time.Duration
	now        func() time.Time
}

// NewIssuer 创建 Issuer，密钥为空或算法不是 HS256/HS384/HS512 时返回错误
func NewIssuer(cfg Config) (*Issuer, error) {
	cfg = cfg.withDefaults()
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth: empty JWT secret")
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported algorithm %q", cfg.Algorithm)
	}
	return &Issuer{
		secret:     []byte(cfg.JWTSecret),
		method:     method,
		defaultTTL: cfg.AccessTokenTTL,
		now:        time.Now,
	}, nil
}

// Issue 签发令牌，exp = now + ttl；ttl <= 0 时使用默认有效期
func (i *Issuer) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = i.defaultTTL
	}
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
}

// Verify 校验签名、算法与有效期，返回 subject
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("%w: %w", model.ErrUnauthorized, errTokenExpired)
	case err != nil:
		return "", fmt.Errorf("%w: %w: %v", model.ErrUnauthorized, errTokenInvalid, err)
	case claims.Subject == "":
		return "", fmt.Errorf("%w: %w", model.ErrUnauthorized, errNoSubject)
	}
	return claims.Subject, nil
}
