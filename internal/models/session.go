package models

import (
	"slices"
	"time"
)

// SessionCapacity — максимальное количество участников в одной сессии.
const SessionCapacity = 5

// Session описывает комнату группового обсуждения.
//
// MemberIDs только дополняется до достижения SessionCapacity,
// MeetingURL заполняется после успешного создания встречи.
type Session struct {
	ID         string    `json:"id"`
	ThemeID    string    `json:"theme_id"`
	MemberIDs  []string  `json:"member_ids"`
	IsEnded    bool      `json:"is_ended"`
	CreatedAt  time.Time `json:"created_at"`
	MeetingURL string    `json:"meeting_url"`
}

// HasMember сообщает, состоит ли пользователь в сессии.
func (s *Session) HasMember(userID string) bool {
	return slices.Contains(s.MemberIDs, userID)
}

// JoinStatus — результат попытки присоединиться к сессии.
type JoinStatus string

const (
	JoinStatusCreated JoinStatus = "created"
	JoinStatusJoined  JoinStatus = "joined"
	JoinStatusAlready JoinStatus = "already_joined"
)

// SessionView — ответ распределителя: в какой сессии пользователь и сколько в ней участников.
// Theme заполняется только при создании новой сессии.
type SessionView struct {
	SessionID  string
	UserCount  int
	Status     JoinStatus
	Theme      string
	MeetingURL string
}

// MeetingInfo — данные для подключения к встрече набранной сессии.
type MeetingInfo struct {
	MeetingURL  string
	Theme       string
	MemberIDs   []string
	MemberNames []string
}

// SessionReadyEvent публикуется в брокер, когда для сессии создана встреча.
type SessionReadyEvent struct {
	SessionID  string   `json:"session_id"`
	ThemeID    string   `json:"theme_id"`
	MeetingURL string   `json:"meeting_url"`
	MemberIDs  []string `json:"member_ids"`
}
