package models

import "time"

// RatingPayload — оценки одного участника, выставленные автором отзыва.
type RatingPayload struct {
	Proactivity   float64 `json:"proactivity" validate:"gte=0"`
	Logicality    float64 `json:"logicality" validate:"gte=0"`
	Leadership    float64 `json:"leadership" validate:"gte=0"`
	Cooperation   float64 `json:"cooperation" validate:"gte=0"`
	Expression    float64 `json:"expression" validate:"gte=0"`
	Consideration float64 `json:"consideration" validate:"gte=0"`
	Comment       string  `json:"comment"`
}

// Feedback — одна запись отзыва: кто (AuthorUserID) оценил кого (UserID) в какой сессии.
// Date копируется из CreatedAt сессии. Записи никогда не изменяются и не удаляются.
type Feedback struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	AuthorUserID string    `json:"authorUserId,omitempty"`
	Date         time.Time `json:"date"`
	RatingPayload
}
