package model

import (
	"errors"
	"time"
)

// AnonymousUserID — id владельца для неавторизованных ссылок
const AnonymousUserID = -1

// ContextKey тип для ключей контекста
type ContextKey string

// User владелец ссылок
type User struct {
	ID         int    `json:"id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// Link соответствие короткого кода и оригинального URL
type Link struct {
	ID          int       `json:"id"`
	Destination string    `json:"original_url"`
	Code        string    `json:"short_code"`
	UserID      int       `json:"user_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	Clicks      int       `json:"clicks"`
}

// LinkChanges частичное обновление ссылки: nil-поле означает "не трогать"
type LinkChanges struct {
	Destination *string
	Code        *string
	IsActive    *bool
}

// Stats агрегаты по ссылкам одного владельца
type Stats struct {
	TotalLinks    int     `json:"totalLinks"`
	TotalClicks   int     `json:"totalClicks"`
	AverageClicks float64 `json:"averageClicks"`
}

// LinkRequest тело запроса на создание ссылки
type LinkRequest struct {
	URL    string `json:"url"`
	Code   string `json:"code,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

// LinkUpdateRequest тело запроса на обновление: nil-поле не меняется
type LinkUpdateRequest struct {
	URL    *string `json:"url,omitempty"`
	Code   *string `json:"code,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// RegisterRequest тело запроса на регистрацию
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Totals сервисные итоги для внутреннего API
type Totals struct {
	Links int `json:"urls"`
	Users int `json:"users"`
}

// Ошибки ядра. Хендлеры мапят их на HTTP статусы,
// репозитории переводят ошибки драйвера в эти же значения.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrCodeTaken          = errors.New("short code already in use")
	ErrUserExists         = errors.New("user already exists")
	ErrNotFound           = errors.New("not found")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free short code")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
