package links

import (
	"context"
	"errors"
	"testing"

	"github.com/Popolzen/tinylink/internal/generator"
	"github.com/Popolzen/tinylink/internal/model"
	"github.com/Popolzen/tinylink/internal/repository/memory"
	"github.com/Popolzen/tinylink/internal/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func newTestService(repo *mocks.MockRepository) LinkService {
	return NewLinkService(repo, generator.New(7), 5, 10, zap.NewNop().Sugar())
}

// echoCreate возвращает ту же ссылку, что пришла на вставку, с проставленным id
func echoCreate(id int) func(context.Context, model.Link) (model.Link, error) {
	return func(_ context.Context, link model.Link) (model.Link, error) {
		link.ID = id
		return link, nil
	}
}

// === Allocate: случайный код ===

func TestAllocate_RandomCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate(1))

	service := newTestService(repo)
	link, err := service.Allocate(context.Background(), 5, "https://example.com", "", true)

	require.NoError(t, err)
	assert.Len(t, link.Code, 7)
	assert.Equal(t, 5, link.UserID)
	assert.True(t, link.IsActive)
	assert.Zero(t, link.Clicks)
}

func TestAllocate_RetryOnCollision(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)

	// Первые 2 вставки упираются в занятый код, третья проходит
	gomock.InOrder(
		repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).Return(model.Link{}, model.ErrCodeTaken),
		repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).Return(model.Link{}, model.ErrCodeTaken),
		repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate(3)),
	)

	service := newTestService(repo)
	link, err := service.Allocate(context.Background(), 5, "https://example.com", "", true)

	require.NoError(t, err)
	assert.Len(t, link.Code, 7)
}

func TestAllocate_CodeSpaceExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).
		Return(model.Link{}, model.ErrCodeTaken).Times(10)

	service := newTestService(repo)
	_, err := service.Allocate(context.Background(), 5, "https://example.com", "", true)

	assert.ErrorIs(t, err, model.ErrCodeSpaceExhausted)
}

func TestAllocate_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).
		Return(model.Link{}, errors.New("db error"))

	service := newTestService(repo)
	_, err := service.Allocate(context.Background(), 5, "https://example.com", "", true)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

// === Allocate: нормализация ===

func TestAllocate_SchemeNormalization(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate(1))

	service := newTestService(repo)
	link, err := service.Allocate(context.Background(), 5, "example.com", "", true)

	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.Destination)
}

func TestAllocate_SchemeKept(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate(1))

	service := newTestService(repo)
	link, err := service.Allocate(context.Background(), 5, "http://example.com", "", true)

	require.NoError(t, err)
	assert.Equal(t, "http://example.com", link.Destination)
}

func TestAllocate_EmptyDestination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)

	service := newTestService(repo)
	_, err := service.Allocate(context.Background(), 5, "   ", "", true)

	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

// === Allocate: кастомный код ===

func TestAllocate_CustomCode_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "mycode1").Return(model.Link{}, model.ErrNotFound)
	repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).DoAndReturn(echoCreate(1))

	service := newTestService(repo)
	link, err := service.Allocate(context.Background(), 5, "example.com", "mycode1", true)

	require.NoError(t, err)
	assert.Equal(t, "mycode1", link.Code)
}

func TestAllocate_CustomCode_AnonymousForbidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)

	service := newTestService(repo)
	_, err := service.Allocate(context.Background(), model.AnonymousUserID, "example.com", "abcde", true)

	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestAllocate_CustomCode_TooShort(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)

	service := newTestService(repo)
	_, err := service.Allocate(context.Background(), 5, "example.com", "ab", true)

	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestAllocate_CustomCode_Taken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "busy123").Return(model.Link{ID: 2, Code: "busy123"}, nil)

	service := newTestService(repo)
	_, err := service.Allocate(context.Background(), 5, "example.com", "busy123", true)

	assert.ErrorIs(t, err, model.ErrCodeTaken)
}

// Гонку двух вставок ловит constraint хранилища, а не pre-check:
// сервис переводит конфликт вставки в ту же ошибку ErrCodeTaken
func TestAllocate_CustomCode_RaceCaughtByStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "race123").Return(model.Link{}, model.ErrNotFound)
	repo.EXPECT().CreateLink(gomock.Any(), gomock.Any()).Return(model.Link{}, model.ErrCodeTaken)

	service := newTestService(repo)
	_, err := service.Allocate(context.Background(), 5, "example.com", "race123", true)

	assert.ErrorIs(t, err, model.ErrCodeTaken)
}

// === Resolve ===

func TestResolve_Active(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "abc1234").
		Return(model.Link{ID: 1, Destination: "https://example.org", IsActive: true}, nil)
	repo.EXPECT().IncrementClicks(gomock.Any(), 1).Return(nil)

	service := newTestService(repo)
	destination, err := service.Resolve(context.Background(), "abc1234")

	require.NoError(t, err)
	assert.Equal(t, "https://example.org", destination)
}

func TestResolve_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "missing").Return(model.Link{}, model.ErrNotFound)

	service := newTestService(repo)
	_, err := service.Resolve(context.Background(), "missing")

	assert.ErrorIs(t, err, model.ErrNotFound)
}

// Неактивная ссылка снаружи неотличима от несуществующей,
// и ее счетчик не трогается: IncrementClicks не ожидается вовсе
func TestResolve_InactiveLooksLikeMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "off1234").
		Return(model.Link{ID: 1, Destination: "https://hidden.com", IsActive: false}, nil)

	service := newTestService(repo)
	_, err := service.Resolve(context.Background(), "off1234")

	assert.ErrorIs(t, err, model.ErrNotFound)
}

// Редирект важнее аналитики: ошибка инкремента не валит переход
func TestResolve_IncrementFailureStillRedirects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "abc1234").
		Return(model.Link{ID: 1, Destination: "https://example.org", IsActive: true}, nil)
	repo.EXPECT().IncrementClicks(gomock.Any(), 1).Return(errors.New("db error"))

	service := newTestService(repo)
	destination, err := service.Resolve(context.Background(), "abc1234")

	require.NoError(t, err)
	assert.Equal(t, "https://example.org", destination)
}

func TestResolve_StoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "abc1234").
		Return(model.Link{}, model.ErrStoreUnavailable)

	service := newTestService(repo)
	_, err := service.Resolve(context.Background(), "abc1234")

	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

// === Update ===

func TestUpdate_OwnCodeNoConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	current := model.Link{ID: 1, Destination: "https://old.com", Code: "same123", UserID: 5, IsActive: true}

	repo.EXPECT().GetLink(gomock.Any(), 1).Return(current, nil)
	// Код не меняется — проверки занятости нет
	repo.EXPECT().UpdateLink(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, link model.Link) (model.Link, error) {
			return link, nil
		})

	service := newTestService(repo)
	newURL := "https://new.com"
	sameCode := "same123"
	updated, err := service.Update(context.Background(), 5, 1, model.LinkChanges{
		Destination: &newURL,
		Code:        &sameCode,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://new.com", updated.Destination)
	assert.Equal(t, "same123", updated.Code)
}

func TestUpdate_CodeTakenByOther(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLink(gomock.Any(), 1).
		Return(model.Link{ID: 1, Code: "mine123", UserID: 5}, nil)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "their12").
		Return(model.Link{ID: 2, Code: "their12"}, nil)

	service := newTestService(repo)
	otherCode := "their12"
	_, err := service.Update(context.Background(), 5, 1, model.LinkChanges{Code: &otherCode})

	assert.ErrorIs(t, err, model.ErrCodeTaken)
}

func TestUpdate_NotOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLink(gomock.Any(), 1).
		Return(model.Link{ID: 1, Code: "mine123", UserID: 5}, nil)

	service := newTestService(repo)
	active := false
	_, err := service.Update(context.Background(), 6, 1, model.LinkChanges{IsActive: &active})

	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

// У всех анонимов один sentinel id — без явного запрета любой
// неавторизованный посетитель мог бы править анонимные ссылки других
func TestUpdate_Anonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// В репозиторий идти не должны вообще
	repo := mocks.NewMockRepository(ctrl)

	service := newTestService(repo)
	active := false
	_, err := service.Update(context.Background(), model.AnonymousUserID, 1, model.LinkChanges{IsActive: &active})

	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestUpdate_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLink(gomock.Any(), 99).Return(model.Link{}, model.ErrNotFound)

	service := newTestService(repo)
	_, err := service.Update(context.Background(), 5, 99, model.LinkChanges{})

	assert.ErrorIs(t, err, model.ErrNotFound)
}

// === Delete ===

func TestDelete_Owner(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLink(gomock.Any(), 1).Return(model.Link{ID: 1, UserID: 5}, nil)
	repo.EXPECT().DeleteLink(gomock.Any(), 1).Return(nil)

	service := newTestService(repo)
	assert.NoError(t, service.Delete(context.Background(), 5, 1))
}

func TestDelete_NotOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLink(gomock.Any(), 1).Return(model.Link{ID: 1, UserID: 5}, nil)

	service := newTestService(repo)
	err := service.Delete(context.Background(), 6, 1)

	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

// Аноним, создавший ссылку, не может удалить чужую анонимную:
// ссылки с sentinel-владельцем не удаляет никто из неавторизованных
func TestDelete_Anonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)

	service := newTestService(repo)
	err := service.Delete(context.Background(), model.AnonymousUserID, 1)

	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestDelete_AnonymousLinkSurvivesAnonymousCaller(t *testing.T) {
	repo := memory.NewRepository()
	service := NewLinkService(repo, generator.New(7), 5, 10, zap.NewNop().Sugar())
	ctx := context.Background()

	// Один аноним создал ссылку, другой пытается ее удалить
	link, err := service.Allocate(ctx, model.AnonymousUserID, "https://example.com", "", true)
	require.NoError(t, err)

	err = service.Delete(ctx, model.AnonymousUserID, link.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	// Ссылка на месте
	_, err = repo.GetLink(ctx, link.ID)
	assert.NoError(t, err)
}

// === Stats ===

func TestStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().CountUserLinks(gomock.Any(), 5).Return(4, nil)
	repo.EXPECT().SumUserClicks(gomock.Any(), 5).Return(10, nil)

	service := newTestService(repo)
	stats, err := service.Stats(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalLinks)
	assert.Equal(t, 10, stats.TotalClicks)
	assert.InDelta(t, 2.5, stats.AverageClicks, 0.0001)
}

func TestStats_NoLinks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().CountUserLinks(gomock.Any(), 5).Return(0, nil)
	repo.EXPECT().SumUserClicks(gomock.Any(), 5).Return(0, nil)

	service := newTestService(repo)
	stats, err := service.Stats(context.Background(), 5)

	require.NoError(t, err)
	assert.Zero(t, stats.TotalLinks)
	assert.Zero(t, stats.TotalClicks)
	assert.Zero(t, stats.AverageClicks) // деления на ноль нет
}

func TestStats_Anonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)

	service := newTestService(repo)
	_, err := service.Stats(context.Background(), model.AnonymousUserID)

	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

// === List ===

func TestList_Anonymous(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockRepository(ctrl)

	service := newTestService(repo)
	_, err := service.List(context.Background(), model.AnonymousUserID)

	assert.ErrorIs(t, err, model.ErrUnauthorized)
}
