package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"evalhub/internal/domain"
)

const (
	RoleStaff       = "staff"
	RoleManager     = "manager"
	RoleHR          = "hr"
	RoleSystemAdmin = "system_admin"
)

// Claims are issued by the identity provider; this service only verifies them.
type Claims struct {
	UserID         string `json:"uid"`
	OrganizationID string `json:"oid"`
	RoleName       string `json:"role"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserContext is the verified caller attached to a request.
type UserContext struct {
	UserID         string
	OrganizationID string
	RoleName       string
	Name           string
	Email          string
}

func (u UserContext) Actor() domain.Actor {
	return domain.Actor{
		ID:             u.UserID,
		Name:           u.Name,
		Email:          u.Email,
		OrganizationID: u.OrganizationID,
		Role:           u.RoleName,
	}
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" || claims.OrganizationID == "" {
		return nil, errors.New("token missing subject or organization")
	}
	return claims, nil
}
