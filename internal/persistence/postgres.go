package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"enhancer/internal/core"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PoolOptions sizes the connection pool. Zero values select the defaults.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PostgresStore implements ArticleStore for PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

var _ ArticleStore = (*PostgresStore)(nil)

// NewPostgresStore opens and verifies a PostgreSQL connection pool
func NewPostgresStore(connectionString string, pool PoolOptions) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = 25
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = 5
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const articleColumns = `id, title, content, source_url, type, original_article_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, article *core.Article) error {
	article.Kind = article.Kind.Normalize()
	if err := article.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO articles (title, content, source_url, type, original_article_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		article.Title, article.Content, article.SourceURL, string(article.Kind), nullableID(article.OriginalArticleID),
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		return translateError(err, article.SourceURL)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, article *core.Article) error {
	article.Kind = article.Kind.Normalize()
	if err := article.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO articles (title, content, source_url, type, original_article_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_url) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			type = EXCLUDED.type,
			original_article_id = EXCLUDED.original_article_id,
			updated_at = GREATEST(NOW(), articles.updated_at + INTERVAL '1 microsecond')
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		article.Title, article.Content, article.SourceURL, string(article.Kind), nullableID(article.OriginalArticleID),
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		return translateError(err, article.SourceURL)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*core.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	article, err := scanArticle(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", core.ErrNotFound, id)
		}
		return nil, err
	}
	return article, nil
}

func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]core.Article, error) {
	kind := ""
	if opts.Kind != "" {
		kind = string(opts.Kind.Normalize())
	}

	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE ($1 = '' OR LOWER(type) = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT NULLIF($2::int, 0) OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, kind, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := []core.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}
	return articles, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, id int64, update ArticleUpdate) (*core.Article, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged, err := update.apply(*current)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE articles
		SET title = $1, content = $2, type = $3, updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
		WHERE id = $4
		RETURNING ` + articleColumns
	article, err := scanArticle(s.db.QueryRowContext(ctx, query, merged.Title, merged.Content, string(merged.Kind), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", core.ErrNotFound, id)
		}
		return nil, err
	}
	return article, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", core.ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) CountByKind(ctx context.Context, kind core.Kind) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE LOWER(type) = $1`, string(kind.Normalize())).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*core.Article, error) {
	var article core.Article
	var kind string
	var originalID sql.NullInt64

	err := row.Scan(&article.ID, &article.Title, &article.Content, &article.SourceURL,
		&kind, &originalID, &article.CreatedAt, &article.UpdatedAt)
	if err != nil {
		return nil, err
	}

	article.Kind = core.Kind(kind)
	if originalID.Valid {
		article.OriginalArticleID = core.Int64Ptr(originalID.Int64)
	}
	return &article, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// translateError maps driver constraint violations onto the core error taxonomy.
func translateError(err error, sourceURL string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", core.ErrDuplicate, sourceURL)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: original article does not exist: %s", core.ErrInvalidArticle, pqErr.Message)
		}
	}
	return err
}
