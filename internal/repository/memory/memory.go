package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Popolzen/tinylink/internal/model"
)

// Repository хранит все в памяти. Используется в тестах
// и при запуске без DSN и файлового хранилища.
type Repository struct {
	mu          sync.RWMutex
	links       map[int]model.Link
	users       map[int]model.User
	linkCounter int
	userCounter int
}

func NewRepository() *Repository {
	return &Repository{
		links: map[int]model.Link{},
		users: map[int]model.User{},
	}
}

func (r *Repository) GetLink(_ context.Context, id int) (model.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, exists := r.links[id]
	if !exists {
		return model.Link{}, model.ErrNotFound
	}
	return link, nil
}

func (r *Repository) GetLinkByCode(_ context.Context, code string) (model.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, link := range r.links {
		if link.Code == code {
			return link, nil
		}
	}
	return model.Link{}, model.ErrNotFound
}

func (r *Repository) GetUserLinks(_ context.Context, userID int) ([]model.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []model.Link{}
	for _, link := range r.links {
		if link.UserID == userID {
			result = append(result, link)
		}
	}
	// Порядок обхода map случайный, выдаем как БД — по id
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *Repository) CreateLink(_ context.Context, link model.Link) (model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Уникальность кода проверяем здесь же, под одним локом —
	// в памяти это и есть "constraint" хранилища
	for _, existing := range r.links {
		if existing.Code == link.Code {
			return model.Link{}, model.ErrCodeTaken
		}
	}

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	r.linkCounter++
	link.ID = r.linkCounter
	r.links[link.ID] = link
	return link, nil
}

func (r *Repository) UpdateLink(_ context.Context, link model.Link) (model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[link.ID]; !exists {
		return model.Link{}, model.ErrNotFound
	}

	// Код может занять любая другая ссылка, кроме самой обновляемой
	for _, existing := range r.links {
		if existing.Code == link.Code && existing.ID != link.ID {
			return model.Link{}, model.ErrCodeTaken
		}
	}

	r.links[link.ID] = link
	return link, nil
}

func (r *Repository) DeleteLink(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[id]; !exists {
		return model.ErrNotFound
	}
	delete(r.links, id)
	return nil
}

func (r *Repository) IncrementClicks(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[id]
	if !exists {
		return model.ErrNotFound
	}
	link.Clicks++
	r.links[id] = link
	return nil
}

func (r *Repository) CountUserLinks(_ context.Context, userID int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, link := range r.links {
		if link.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *Repository) SumUserClicks(_ context.Context, userID int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sum := 0
	for _, link := range r.links {
		if link.UserID == userID {
			sum += link.Clicks
		}
	}
	return sum, nil
}

func (r *Repository) GetUser(_ context.Context, id int) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return model.User{}, model.ErrNotFound
	}
	return user, nil
}

func (r *Repository) GetUserByExternalID(_ context.Context, externalID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ExternalID == externalID {
			return user, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (r *Repository) CreateUser(_ context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.ExternalID == user.ExternalID {
			return model.User{}, model.ErrUserExists
		}
	}

	r.userCounter++
	user.ID = r.userCounter
	r.users[user.ID] = user
	return user, nil
}

func (r *Repository) Totals(_ context.Context) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links), len(r.users), nil
}

func (r *Repository) Close() error {
	return nil
}

// Snapshot возвращает копию всего содержимого.
// Нужен файловому хранилищу для записи на диск.
func (r *Repository) Snapshot() ([]model.Link, []model.User) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	links := make([]model.Link, 0, len(r.links))
	for _, link := range r.links {
		links = append(links, link)
	}
	users := make([]model.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	return links, users
}

// Restore заменяет содержимое данными снапшота
func (r *Repository) Restore(links []model.Link, users []model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.links = map[int]model.Link{}
	r.users = map[int]model.User{}
	r.linkCounter = 0
	r.userCounter = 0

	for _, link := range links {
		r.links[link.ID] = link
		if link.ID > r.linkCounter {
			r.linkCounter = link.ID
		}
	}
	for _, user := range users {
		r.users[user.ID] = user
		if user.ID > r.userCounter {
			r.userCounter = user.ID
		}
	}
}
