package utils

import (
	"fmt"
	"time"

	"DocTrack/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecret string
	tokenTTL  = 24 * time.Hour
)

// TokenClaims Token 携带的身份信息
// 注意：中间件每次请求仍会回查用户表，Token 本身只是入场券
type TokenClaims struct {
	UserID     uint
	Email      string
	Role       string
	Department string
}

func InitJWT(secret string, ttl time.Duration) error {
	if secret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is not set")
	}
	jwtSecret = secret
	if ttl > 0 {
		tokenTTL = ttl
	}
	return nil
}

// GenerateToken 签发 HS256 Token，默认 24h 过期
func GenerateToken(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    user.ID,
		"email":      user.Email,
		"role":       user.Role,
		"department": user.Department,
		"exp":        time.Now().Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// VerifyToken 校验并解析 Token
func VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid user id in token claims")
	}

	tc := &TokenClaims{UserID: uint(userID)}
	if v, ok := claims["email"].(string); ok {
		tc.Email = v
	}
	if v, ok := claims["role"].(string); ok {
		tc.Role = v
	}
	if v, ok := claims["department"].(string); ok {
		tc.Department = v
	}
	return tc, nil
}
