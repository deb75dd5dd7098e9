package filestorage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Popolzen/tinylink/internal/model"
	"github.com/Popolzen/tinylink/internal/repository/memory"
	"github.com/google/uuid"
)

// snapshot формат файла хранилища
type snapshot struct {
	UUID  string       `json:"uuid"`
	Links []model.Link `json:"links"`
	Users []model.User `json:"users"`
}

// Repository — in-memory хранилище с сохранением в JSON-файл.
// Загружается при старте, пишется на диск при Close.
type Repository struct {
	*memory.Repository
	path string
}

func NewRepository(path string) *Repository {
	repo := &Repository{
		Repository: memory.NewRepository(),
		path:       path,
	}

	// Отсутствующий или битый файл — не ошибка, начинаем с пустого состояния
	if err := repo.load(); err != nil {
		return &Repository{
			Repository: memory.NewRepository(),
			path:       path,
		}
	}
	return repo
}

// load читает снапшот из файла в память
func (r *Repository) load() error {
	file, err := os.OpenFile(r.path, os.O_RDONLY, 0644)
	if err != nil {
		return fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("ошибка десериализации JSON: %w", err)
	}

	r.Restore(snap.Links, snap.Users)
	return nil
}

// Save пишет текущее состояние на диск
func (r *Repository) Save() error {
	links, users := r.Snapshot()
	snap := snapshot{
		UUID:  uuid.New().String(),
		Links: links,
		Users: users,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("ошибка сериализации JSON: %w", err)
	}

	file, err := os.OpenFile(r.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644) // создаем файл если его нет
	if err != nil {
		return fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("ошибка записи файла: %w", err)
	}

	return nil
}

// Close сохраняет состояние перед остановкой
func (r *Repository) Close() error {
	return r.Save()
}
