package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/Popolzen/tinylink/internal/model"
	"github.com/Popolzen/tinylink/internal/repository"
)

// UserService — регистрация и поиск владельцев ссылок
type UserService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return UserService{repo: repo}
}

// Register создает пользователя при первой регистрации.
// Повторная регистрация с тем же внешним id (восстановление
// аккаунта) возвращает уже существующую строку.
func (s UserService) Register(ctx context.Context, externalID, name, email string) (model.User, error) {
	if externalID == "" {
		return model.User{}, fmt.Errorf("%w: пустой внешний идентификатор", model.ErrInvalidInput)
	}

	user, err := s.repo.CreateUser(ctx, model.User{
		ExternalID: externalID,
		Name:       name,
		Email:      email,
	})
	if errors.Is(err, model.ErrUserExists) {
		return s.repo.GetUserByExternalID(ctx, externalID)
	}

	return user, err
}

// GetByExternalID находит пользователя по внешнему идентификатору
func (s UserService) GetByExternalID(ctx context.Context, externalID string) (model.User, error) {
	if externalID == "" {
		return model.User{}, model.ErrNotFound
	}
	return s.repo.GetUserByExternalID(ctx, externalID)
}
