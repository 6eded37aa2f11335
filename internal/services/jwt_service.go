package services

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"serverless-todo/backend/internal/config"
	"serverless-todo/backend/internal/models"
)

// ErrInvalidToken はトークンの検証に失敗した場合のエラーです。
var ErrInvalidToken = errors.New("invalid token")

// JWTService はIDプロバイダが発行したトークンを検証します。
// 証明書 (RS256) があればそれを、無ければ共有シークレット (HS256) を使います。
type JWTService struct {
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
	audience  string
}

type identityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTService は新しいJWTServiceを作成します。
func NewJWTService(cfg config.AuthConfig) (*JWTService, error) {
	s := &JWTService{issuer: cfg.Issuer, audience: cfg.Audience}
	if cfg.Certificate != "" {
		// 環境変数では改行が "\n" のままになっていることがある
		pem := strings.ReplaceAll(cfg.Certificate, `\n`, "\n")
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("failed to parse auth certificate: %w", err)
		}
		s.publicKey = key
		return s, nil
	}
	if cfg.Secret == "" {
		return nil, errors.New("JWT_SECRET or AUTH_CERTIFICATE must be set")
	}
	s.secret = []byte(cfg.Secret)
	return s, nil
}

// GenerateToken はHS256で署名したトークンを生成します。開発とテスト用です。
func (s *JWTService) GenerateToken(userID, email string) (string, error) {
	if s.secret == nil {
		return "", errors.New("token generation requires JWT_SECRET")
	}
	now := time.Now()
	claims := identityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken はトークンを検証し、sub クレームを userId とするIdentityを返します。
func (s *JWTService) ValidateToken(tokenString string) (*models.Identity, error) {
	opts := []jwt.ParserOption{}
	if s.publicKey != nil {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if s.publicKey != nil {
			return s.publicKey, nil
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return &models.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
