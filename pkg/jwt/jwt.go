package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"shop-scheduler/backend/config"
)

const (
	issuer    = "shop-scheduler"
	clockSkew = 5 * time.Second
)

// Token 类型，写入 token_type 声明
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
	ErrTokenType    = errors.New("token 类型不符")
)

// Claims access 与 refresh 共用的声明；ID（jti）用于登出黑名单
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwtv5.RegisteredClaims
}

// Manager 签发与校验 HS256 token
type Manager struct {
	secret     []byte
	ttl        map[string]time.Duration
	parserOpts []jwtv5.ParserOption
}

func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		ttl: map[string]time.Duration{
			TypeAccess:  cfg.AccessTokenTTL,
			TypeRefresh: cfg.RefreshTokenTTL,
		},
		parserOpts: []jwtv5.ParserOption{
			jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
			jwtv5.WithIssuer(issuer),
			jwtv5.WithExpirationRequired(),
			jwtv5.WithLeeway(clockSkew),
		},
	}
}

func (m *Manager) AccessTokenTTL() time.Duration { return m.ttl[TypeAccess] }

func (m *Manager) GenerateAccessToken(userID, role string) (string, error) {
	return m.sign(userID, role, TypeAccess)
}

func (m *Manager) GenerateRefreshToken(userID, role string) (string, error) {
	return m.sign(userID, role, TypeRefresh)
}

func (m *Manager) sign(userID, role, tokenType string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.ttl[tokenType])),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken 校验签名、签发方与有效期，不检查类型
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtv5.ParseWithClaims(tokenString, claims, func(*jwtv5.Token) (interface{}, error) {
		return m.secret, nil
	}, m.parserOpts...)
	switch {
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseAccess 只接受 access token
func (m *Manager) ParseAccess(tokenString string) (*Claims, error) {
	return m.parseTyped(tokenString, TypeAccess)
}

// ParseRefresh 只接受 refresh token
func (m *Manager) ParseRefresh(tokenString string) (*Claims, error) {
	return m.parseTyped(tokenString, TypeRefresh)
}

func (m *Manager) parseTyped(tokenString, want string) (*Claims, error) {
	claims, err := m.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != want {
		return nil, ErrTokenType
	}
	return claims, nil
}
