package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Popolzen/tinylink/internal/model"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository хранит пользователей и ссылки в PostgreSQL.
// Уникальность короткого кода держит constraint links_code_key —
// pre-check в аллокаторе не спасает от гонки двух вставок,
// поэтому нарушение constraint'а переводится в model.ErrCodeTaken.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// translateErr переводит ошибки драйвера в ошибки ядра
func translateErr(err error, onUnique error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return fmt.Errorf("%w: %s", onUnique, pgErr.ConstraintName)
		}
		if pgerrcode.IsConnectionException(pgErr.Code) {
			return fmt.Errorf("%w: %s", model.ErrStoreUnavailable, pgErr.Message)
		}
	}

	return err
}

const linkColumns = "id, destination, code, user_id, is_active, created_at, clicks"

func scanLink(row *sql.Row) (model.Link, error) {
	var link model.Link
	err := row.Scan(&link.ID, &link.Destination, &link.Code,
		&link.UserID, &link.IsActive, &link.CreatedAt, &link.Clicks)
	if err != nil {
		return model.Link{}, translateErr(err, model.ErrCodeTaken)
	}
	return link, nil
}

// GetLink получает ссылку по внутреннему id
func (r *Repository) GetLink(ctx context.Context, id int) (model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`
	return scanLink(r.DB.QueryRowContext(ctx, query, id))
}

// GetLinkByCode получает ссылку по короткому коду
func (r *Repository) GetLinkByCode(ctx context.Context, code string) (model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE code = $1`
	return scanLink(r.DB.QueryRowContext(ctx, query, code))
}

// GetUserLinks возвращает все ссылки пользователя
func (r *Repository) GetUserLinks(ctx context.Context, userID int) ([]model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE user_id = $1 ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении ссылок: %w", err)
	}
	defer rows.Close()

	links := []model.Link{}
	for rows.Next() {
		var link model.Link
		if err := rows.Scan(&link.ID, &link.Destination, &link.Code,
			&link.UserID, &link.IsActive, &link.CreatedAt, &link.Clicks); err != nil {
			return nil, fmt.Errorf("ошибка при чтении строки: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при чтении ссылок: %w", err)
	}

	return links, nil
}

// CreateLink вставляет новую ссылку. Дубликат кода вернет ErrCodeTaken.
func (r *Repository) CreateLink(ctx context.Context, link model.Link) (model.Link, error) {
	query := `
    INSERT INTO links (destination, code, user_id, is_active, created_at, clicks)
    VALUES ($1, $2, $3, $4, $5, 0)
    RETURNING ` + linkColumns

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	return scanLink(r.DB.QueryRowContext(ctx, query,
		link.Destination, link.Code, link.UserID, link.IsActive, link.CreatedAt))
}

// UpdateLink перезаписывает destination, code и is_active
func (r *Repository) UpdateLink(ctx context.Context, link model.Link) (model.Link, error) {
	query := `
    UPDATE links
    SET destination = $2, code = $3, is_active = $4
    WHERE id = $1
    RETURNING ` + linkColumns

	return scanLink(r.DB.QueryRowContext(ctx, query,
		link.ID, link.Destination, link.Code, link.IsActive))
}

// DeleteLink удаляет ссылку по id
func (r *Repository) DeleteLink(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении ссылки: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// IncrementClicks — одно атомарное выражение на стороне БД,
// никакого read-modify-write: параллельные переходы не теряются
func (r *Repository) IncrementClicks(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE links SET clicks = clicks + 1 WHERE id = $1`, id)
	if err != nil {
		return translateErr(err, model.ErrCodeTaken)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// CountUserLinks считает ссылки пользователя
func (r *Repository) CountUserLinks(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM links WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчете ссылок: %w", err)
	}
	return count, nil
}

// SumUserClicks суммирует переходы по ссылкам пользователя
func (r *Repository) SumUserClicks(ctx context.Context, userID int) (int, error) {
	var sum int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(clicks), 0) FROM links WHERE user_id = $1`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчете переходов: %w", err)
	}
	return sum, nil
}

// GetUser получает пользователя по внутреннему id
func (r *Repository) GetUser(ctx context.Context, id int) (model.User, error) {
	var user model.User
	query := `SELECT id, external_id, name, email FROM users WHERE id = $1`

	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.ExternalID, &user.Name, &user.Email)
	if err != nil {
		return model.User{}, translateErr(err, model.ErrUserExists)
	}
	return user, nil
}

// GetUserByExternalID получает пользователя по внешнему идентификатору
func (r *Repository) GetUserByExternalID(ctx context.Context, externalID string) (model.User, error) {
	var user model.User
	query := `SELECT id, external_id, name, email FROM users WHERE external_id = $1`

	err := r.DB.QueryRowContext(ctx, query, externalID).
		Scan(&user.ID, &user.ExternalID, &user.Name, &user.Email)
	if err != nil {
		return model.User{}, translateErr(err, model.ErrUserExists)
	}
	return user, nil
}

// CreateUser вставляет нового пользователя.
// Дубликат external_id вернет ErrUserExists.
func (r *Repository) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	query := `
    INSERT INTO users (external_id, name, email)
    VALUES ($1, $2, $3)
    RETURNING id, external_id, name, email`

	var created model.User
	err := r.DB.QueryRowContext(ctx, query, user.ExternalID, user.Name, user.Email).
		Scan(&created.ID, &created.ExternalID, &created.Name, &created.Email)
	if err != nil {
		return model.User{}, translateErr(err, model.ErrUserExists)
	}
	return created, nil
}

// Totals возвращает количество ссылок и пользователей во всем сервисе
func (r *Repository) Totals(ctx context.Context) (int, int, error) {
	var links, users int
	err := r.DB.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM links), (SELECT COUNT(*) FROM users)`).
		Scan(&links, &users)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка при подсчете итогов: %w", err)
	}
	return links, users, nil
}

func (r *Repository) Close() error {
	return r.DB.Close()
}
