package links

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Popolzen/tinylink/internal/generator"
	"github.com/Popolzen/tinylink/internal/model"
	"github.com/Popolzen/tinylink/internal/repository"
	"go.uber.org/zap"
)

// LinkService — выделение коротких кодов, переходы и статистика.
// Сервис не держит состояния между вызовами: каждое решение
// принимается свежим запросом в репозиторий.
type LinkService struct {
	repo        repository.Repository
	gen         generator.Generator
	minCodeLen  int
	maxAttempts int
	log         *zap.SugaredLogger
}

func NewLinkService(repo repository.Repository, gen generator.Generator, minCodeLen, maxAttempts int, log *zap.SugaredLogger) LinkService {
	return LinkService{
		repo:        repo,
		gen:         gen,
		minCodeLen:  minCodeLen,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// normalizeDestination приводит URL к виду со схемой:
// "example.com" превращается в "https://example.com"
func normalizeDestination(destination string) (string, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return "", fmt.Errorf("%w: пустой URL", model.ErrInvalidInput)
	}

	if !strings.HasPrefix(destination, "http://") && !strings.HasPrefix(destination, "https://") {
		destination = "https://" + destination
	}

	return destination, nil
}

// validateCustomCode проверяет пользовательский короткий код
func (s LinkService) validateCustomCode(ownerID int, code string) error {
	if ownerID == model.AnonymousUserID {
		return fmt.Errorf("%w: кастомные коды только для авторизованных", model.ErrUnauthorized)
	}
	if len(code) < s.minCodeLen {
		return fmt.Errorf("%w: код короче %d символов", model.ErrInvalidInput, s.minCodeLen)
	}
	return nil
}

// Allocate решает каким будет короткий код новой ссылки и сохраняет ее.
// С кастомным кодом — одна попытка вставки, конфликт отдается наверх.
// Без кода генерируем кандидатов и повторяем при коллизии, финальный
// арбитр уникальности — constraint в хранилище, а не наши проверки.
func (s LinkService) Allocate(ctx context.Context, ownerID int, destination, requestedCode string, active bool) (model.Link, error) {
	destination, err := normalizeDestination(destination)
	if err != nil {
		return model.Link{}, err
	}

	link := model.Link{
		Destination: destination,
		UserID:      ownerID,
		IsActive:    active,
	}

	if requestedCode != "" {
		if err := s.validateCustomCode(ownerID, requestedCode); err != nil {
			return model.Link{}, err
		}
		if _, err := s.repo.GetLinkByCode(ctx, requestedCode); err == nil {
			return model.Link{}, model.ErrCodeTaken
		}

		link.Code = requestedCode
		return s.repo.CreateLink(ctx, link)
	}

	for range s.maxAttempts {
		link.Code = s.gen.Generate()

		created, err := s.repo.CreateLink(ctx, link)
		if errors.Is(err, model.ErrCodeTaken) {
			continue
		}
		return created, err
	}

	return model.Link{}, fmt.Errorf("%w за %d попыток", model.ErrCodeSpaceExhausted, s.maxAttempts)
}

// Update меняет destination, код и активность ссылки владельца.
// Анонимы не владеют ссылками: у всех неавторизованных один sentinel id,
// пропускать их через проверку владельца значило бы отдать им чужие ссылки.
// Проверка занятости кода исключает саму обновляемую строку.
func (s LinkService) Update(ctx context.Context, ownerID, linkID int, changes model.LinkChanges) (model.Link, error) {
	if ownerID == model.AnonymousUserID {
		return model.Link{}, model.ErrUnauthorized
	}

	link, err := s.repo.GetLink(ctx, linkID)
	if err != nil {
		return model.Link{}, err
	}
	if link.UserID != ownerID {
		return model.Link{}, fmt.Errorf("%w: ссылка принадлежит другому пользователю", model.ErrUnauthorized)
	}

	if changes.Destination != nil {
		destination, err := normalizeDestination(*changes.Destination)
		if err != nil {
			return model.Link{}, err
		}
		link.Destination = destination
	}

	if changes.Code != nil && *changes.Code != link.Code {
		if err := s.validateCustomCode(ownerID, *changes.Code); err != nil {
			return model.Link{}, err
		}
		existing, err := s.repo.GetLinkByCode(ctx, *changes.Code)
		if err == nil && existing.ID != linkID {
			return model.Link{}, model.ErrCodeTaken
		}
		link.Code = *changes.Code
	}

	if changes.IsActive != nil {
		link.IsActive = *changes.IsActive
	}

	return s.repo.UpdateLink(ctx, link)
}

// Delete удаляет ссылку владельца. Аноним не владелец.
func (s LinkService) Delete(ctx context.Context, ownerID, linkID int) error {
	if ownerID == model.AnonymousUserID {
		return model.ErrUnauthorized
	}

	link, err := s.repo.GetLink(ctx, linkID)
	if err != nil {
		return err
	}
	if link.UserID != ownerID {
		return fmt.Errorf("%w: ссылка принадлежит другому пользователю", model.ErrUnauthorized)
	}

	return s.repo.DeleteLink(ctx, linkID)
}

// List возвращает ссылки владельца
func (s LinkService) List(ctx context.Context, ownerID int) ([]model.Link, error) {
	if ownerID == model.AnonymousUserID {
		return nil, model.ErrUnauthorized
	}
	return s.repo.GetUserLinks(ctx, ownerID)
}

// Resolve находит активную ссылку по коду и фиксирует переход.
// Пропавший и неактивный код снаружи неразличимы — оба ErrNotFound,
// счетчик неактивной ссылки не трогаем.
// Ошибка инкремента не валит редирект: доступность перехода важнее
// точности аналитики, поэтому пишем в лог и продолжаем.
func (s LinkService) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.repo.GetLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrStoreUnavailable) {
			return "", err
		}
		return "", model.ErrNotFound
	}

	if !link.IsActive {
		return "", model.ErrNotFound
	}

	if err := s.repo.IncrementClicks(ctx, link.ID); err != nil {
		s.log.Warnw("не удалось засчитать переход",
			"code", code,
			"link_id", link.ID,
			"error", err,
		)
	}

	return link.Destination, nil
}

// Stats считает агрегаты по ссылкам владельца
func (s LinkService) Stats(ctx context.Context, ownerID int) (model.Stats, error) {
	if ownerID == model.AnonymousUserID {
		return model.Stats{}, model.ErrUnauthorized
	}

	total, err := s.repo.CountUserLinks(ctx, ownerID)
	if err != nil {
		return model.Stats{}, err
	}

	clicks, err := s.repo.SumUserClicks(ctx, ownerID)
	if err != nil {
		return model.Stats{}, err
	}

	stats := model.Stats{
		TotalLinks:  total,
		TotalClicks: clicks,
	}
	if total > 0 {
		stats.AverageClicks = float64(clicks) / float64(total)
	}

	return stats, nil
}

// Totals — сервисные итоги для внутреннего API
func (s LinkService) Totals(ctx context.Context) (int, int, error) {
	return s.repo.Totals(ctx)
}
