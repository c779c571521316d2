package models

import "errors"

var (
	// ErrEmailTaken — пользователь с таким email уже зарегистрирован.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound — пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials — неверный пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound — сессия не найдена.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMeetingNotReady — ссылка на встречу ещё не создана.
	ErrMeetingNotReady = errors.New("meeting url is not ready")
	// ErrThemeNotFound — тема с таким ID не найдена.
	ErrThemeNotFound = errors.New("theme not found")
	// ErrNoThemes — не настроено ни одной темы, сессию создать нельзя.
	ErrNoThemes = errors.New("no themes configured")
	// ErrProvisionFailed — встречу создать не удалось, участник при этом уже добавлен.
	ErrProvisionFailed = errors.New("meeting provisioning failed")
	// ErrConflict — сессия была изменена параллельным запросом.
	ErrConflict = errors.New("session was modified concurrently")
)
