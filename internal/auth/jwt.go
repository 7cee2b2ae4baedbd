package auth

import (
	"fmt"
	"time"

	"kiosk-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 12 * time.Hour

type JWTCustomClaims struct {
	EmployeeID uint                `json:"employee_id"`
	Name       string              `json:"name"`
	Role       models.EmployeeRole `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, emp *models.Employee) (string, error) {
	now := time.Now()
	claims := &JWTCustomClaims{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		Role:       emp.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(emp.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenStr string) (*JWTCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTCustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GoogleProfile is the subset of a Google ID token the kiosk shows after sign-in.
type GoogleProfile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// DecodeGoogleCredential reads the claims of a Google ID token without checking
// its signature. It is only used to greet customers, never to grant access.
func DecodeGoogleCredential(credential string) (GoogleProfile, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return GoogleProfile{}, fmt.Errorf("could not decode credential: %w", err)
	}

	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	profile := GoogleProfile{Email: str("email"), Name: str("name"), Picture: str("picture")}
	if profile.Email == "" {
		return GoogleProfile{}, fmt.Errorf("credential has no email claim")
	}
	return profile, nil
}
