// Package models содержит доменные структуры сервиса подбора групповых обсуждений:
// пользователей, темы, сессии и отзывы участников.
package models

// User представляет зарегистрированного пользователя.
// Запись создаётся при регистрации и больше не изменяется.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}
