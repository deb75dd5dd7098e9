package db

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/Popolzen/tinylink/internal/config"
	migration "github.com/Popolzen/tinylink/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// DataBase представляет подключение к базе данных
type DataBase struct {
	*sql.DB
	schema string
}

// NewDataBase открывает подключение и создает схему из конфигурации.
// Все соединения пула получают search_path на эту схему через DSN,
// поэтому запросы репозитория ходят по неквалифицированным именам таблиц.
func NewDataBase(cfg config.Config) (*DataBase, error) {
	setup, err := sql.Open("pgx", cfg.DBurl)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть подключение: %w", err)
	}

	_, err = setup.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(cfg.DBSchema))
	setup.Close()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать схему %s: %w", cfg.DBSchema, err)
	}

	dsn, err := withSearchPath(cfg.DBurl, cfg.DBSchema)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть подключение: %w", err)
	}

	return &DataBase{
		DB:     db,
		schema: cfg.DBSchema,
	}, nil
}

// withSearchPath добавляет в DSN опцию search_path=<schema>,public
func withSearchPath(dsn, schema string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("невалидный DSN: %w", err)
	}

	q := u.Query()
	q.Set("options", fmt.Sprintf("-csearch_path=%s,public", schema))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Ping проверяет что база отвечает
func (d *DataBase) Ping() error {
	return d.DB.Ping()
}

// Migrate накатывает миграции в схему подключения
func (d *DataBase) Migrate() error {
	return migration.MigrateUp(d.DB, d.schema)
}
