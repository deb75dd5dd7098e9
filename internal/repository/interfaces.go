package repository

import (
	"context"

	"github.com/Popolzen/tinylink/internal/model"
)

// LinkRepository хранит ссылки. Уникальность короткого кода
// гарантирует хранилище, а не вызывающий код: Create и Update
// возвращают model.ErrCodeTaken при нарушении.
type LinkRepository interface {
	GetLink(ctx context.Context, id int) (model.Link, error)
	GetLinkByCode(ctx context.Context, code string) (model.Link, error)
	GetUserLinks(ctx context.Context, userID int) ([]model.Link, error)
	CreateLink(ctx context.Context, link model.Link) (model.Link, error)
	UpdateLink(ctx context.Context, link model.Link) (model.Link, error)
	DeleteLink(ctx context.Context, id int) error

	// IncrementClicks атомарно увеличивает счетчик переходов на единицу
	IncrementClicks(ctx context.Context, id int) error

	CountUserLinks(ctx context.Context, userID int) (int, error)
	SumUserClicks(ctx context.Context, userID int) (int, error)
}

// UserRepository хранит владельцев ссылок
type UserRepository interface {
	GetUser(ctx context.Context, id int) (model.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (model.User, error)
	CreateUser(ctx context.Context, user model.User) (model.User, error)
}

// Repository объединяет оба хранилища — реализации держат
// пользователей и ссылки в одном бекенде
type Repository interface {
	LinkRepository
	UserRepository

	// Totals возвращает количество ссылок и пользователей во всем сервисе
	Totals(ctx context.Context) (links int, users int, err error)

	Close() error
}
