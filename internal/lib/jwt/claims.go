// Package jwt выпускает access-токены, которые сервис отдаёт после входа.
package jwt

import "github.com/golang-jwt/jwt/v5"

// CustomClaims — данные пользователя в токене. Subject содержит ID пользователя.
type CustomClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
