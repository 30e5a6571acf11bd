package store

import (
	"database/sql"
	"embed"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tmshv/untrack/internal"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ Store = (*SqliteStore)(nil)

type SqliteStore struct {
	logger *zap.Logger
	db     *sql.DB
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) setup() error {
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{
		MigrationsTable: "migrations",
	})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	if err != nil {
		if err == migrate.ErrNoChange {
			s.logger.Debug("Nothing to migrate")
			return nil
		}
		return err
	}

	s.logger.Info("Successfully migrated to the latest version")
	return nil
}

// AddLink stores a cleaned link. A pair of original and cleaned urls is kept
// once, the returned count is 0 for a repeated pair.
func (s *SqliteStore) AddLink(link internal.Link) (int64, error) {
	stmt, err := s.db.Prepare(`
        INSERT OR IGNORE INTO
        links(id, original, cleaned, source, created_at)
        VALUES
        (?, ?, ?, ?, ?)
    `)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	res, err := stmt.Exec(link.ID, link.Original, link.Cleaned, link.Source, link.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SqliteStore) FindLinkByOriginal(original string) (internal.Link, error) {
	var link internal.Link
	row := s.db.QueryRow(`
        SELECT id, original, cleaned, source, created_at
        FROM links
        WHERE original = ?
        ORDER BY created_at DESC
        LIMIT 1
        ;
    `, original)
	err := row.Scan(
		&link.ID,
		&link.Original,
		&link.Cleaned,
		&link.Source,
		&link.CreatedAt,
	)
	if err != nil {
		return internal.Link{}, err
	}
	return link, nil
}

// GetLinks returns the newest links first. A non-positive limit returns all
// of them.
func (s *SqliteStore) GetLinks(limit int) ([]internal.Link, error) {
	if limit <= 0 {
		limit = -1
	}

	result := make([]internal.Link, 0)
	rows, err := s.db.Query(`
        SELECT id, original, cleaned, source, created_at
        FROM links
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
        ;
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var link internal.Link
		err := rows.Scan(
			&link.ID,
			&link.Original,
			&link.Cleaned,
			&link.Source,
			&link.CreatedAt,
		)
		if err != nil {
			s.logger.Warn("Failed to get row", zap.Error(err))
			continue
		}
		result = append(result, link)
	}

	return result, rows.Err()
}

func (s *SqliteStore) AddFeed(slug string, url string, title string) error {
	stmt, err := s.db.Prepare(`
        INSERT OR IGNORE INTO
        feeds(id, slug, url, title, created_at)
        VALUES
        (?, ?, ?, ?, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	id := uuid.NewString()
	now := time.Now()
	res, err := stmt.Exec(id, slug, url, title, now)
	if err != nil {
		return err
	}

	x, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if x == 0 {
		var known string
		err = s.db.QueryRow(`SELECT url FROM feeds WHERE slug = ?`, slug).Scan(&known)
		switch {
		case errors.Is(err, sql.ErrNoRows), err == nil && known == url:
			s.logger.Debug("Feed is already added", zap.String("url", url))
		case err != nil:
			return err
		default:
			s.logger.Warn("Feed is not added, slug is taken",
				zap.String("slug", slug),
				zap.String("url", url),
				zap.String("taken_by", known),
			)
		}
	}

	return nil
}

func (s *SqliteStore) GetFeeds() ([]internal.Feed, error) {
	result := make([]internal.Feed, 0)

	rows, err := s.db.Query(`
        SELECT
        id, slug, url, title, created_at
        FROM feeds
        ORDER BY slug
        ;
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		feed := internal.Feed{}
		err := rows.Scan(
			&feed.ID,
			&feed.Slug,
			&feed.Url,
			&feed.Title,
			&feed.CreatedAt,
		)
		if err != nil {
			s.logger.Warn("Failed to get row", zap.Error(err))
			continue
		}

		result = append(result, feed)
	}

	return result, rows.Err()
}

func NewSqliteStore(dbpath string, logger *zap.Logger) (*SqliteStore, error) {
	// Connect to the SQLite database.
	db, err := sql.Open("sqlite3", dbpath)
	if err != nil {
		return nil, err
	}

	store := SqliteStore{
		db:     db,
		logger: logger,
	}

	err = store.setup()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &store, nil
}
