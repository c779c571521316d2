package models

// Theme — тема для обсуждения. Создаётся через административный эндпоинт,
// для распределителя сессий доступна только на чтение.
type Theme struct {
	ID      string `json:"id" validate:"required"`
	Content string `json:"content" validate:"required"`
}
