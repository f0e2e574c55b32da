package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	app "spotserv/src/app"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id          TEXT PRIMARY KEY,
	author_id   TEXT NOT NULL,
	place_name  TEXT NOT NULL,
	place_id    TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL,
	caption     TEXT NOT NULL DEFAULT '',
	rating      SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	hashtags    TEXT[] NOT NULL DEFAULT '{}',
	image_url   TEXT NOT NULL,
	image_urls  TEXT[] NOT NULL,
	lat         DOUBLE PRECISION,
	lng         DOUBLE PRECISION,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS posts_created_idx ON posts (created_at DESC);
CREATE INDEX IF NOT EXISTS posts_category_idx ON posts (category, created_at DESC);
CREATE INDEX IF NOT EXISTS posts_author_idx ON posts (author_id, created_at DESC);
CREATE INDEX IF NOT EXISTS posts_hashtags_idx ON posts USING GIN (hashtags);
CREATE INDEX IF NOT EXISTS posts_geo_idx ON posts (lat, lng) WHERE lat IS NOT NULL;

CREATE TABLE IF NOT EXISTS profiles (
	id          TEXT PRIMARY KEY,
	email       TEXT NOT NULL DEFAULT '',
	full_name   TEXT NOT NULL DEFAULT '',
	bio         TEXT NOT NULL DEFAULT '',
	avatar_url  TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id     TEXT PRIMARY KEY,
	data        JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const postColumns = `id, author_id, place_name, place_id, category, caption, rating, hashtags, image_url, image_urls, lat, lng, created_at`

// NewPool opens a pgx pool and checks connectivity.
func NewPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	cfg.ConnConfig.StatementCacheCapacity = 256
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// multi-statement scripts need the simple protocol
	if _, err := pool.Exec(ctx, schema, pgx.QueryExecModeSimpleProtocol); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type PostgresPostStore struct {
	DB *pgxpool.Pool
}

func (s *PostgresPostStore) Create(ctx context.Context, p app.Post) error {
	const q = `INSERT INTO posts (` + postColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := s.DB.Exec(ctx, q,
		p.ID, p.AuthorID, p.PlaceName, p.PlaceID, p.Category, p.Caption, p.Rating,
		p.Hashtags, p.ImageURL, p.ImageURLs, p.Lat, p.Lng, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PostgresPostStore) Get(ctx context.Context, id string) (app.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(s.DB.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return app.Post{}, ErrNotFound
	}
	if err != nil {
		return app.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

func (s *PostgresPostStore) List(ctx context.Context, filter PostFilter) ([]app.Post, error) {
	q, args := buildListQuery(filter)
	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	return collectPosts(rows)
}

func (s *PostgresPostStore) Within(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]app.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts
	WHERE lat IS NOT NULL AND lng IS NOT NULL
	AND lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4`
	rows, err := s.DB.Query(ctx, q, minLat, maxLat, minLng, maxLng)
	if err != nil {
		return nil, fmt.Errorf("query nearby posts: %w", err)
	}
	return collectPosts(rows)
}

func (s *PostgresPostStore) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildListQuery renders the filtered, newest-first listing query.
func buildListQuery(filter PostFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.AuthorIDs != nil {
		where = append(where, "author_id = ANY("+arg(filter.AuthorIDs)+")")
	}
	if filter.IDs != nil {
		where = append(where, "id = ANY("+arg(filter.IDs)+")")
	}
	if filter.Hashtag != "" {
		where = append(where, arg(filter.Hashtag)+" = ANY(hashtags)")
	}
	if !filter.Before.IsZero() {
		where = append(where, "created_at < "+arg(filter.Before))
	}

	var b strings.Builder
	b.WriteString("SELECT " + postColumns + " FROM posts")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT " + arg(filter.NormalizedLimit()))
	return b.String(), args
}

func scanPost(row pgx.Row) (app.Post, error) {
	var p app.Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.PlaceName, &p.PlaceID, &p.Category, &p.Caption, &p.Rating,
		&p.Hashtags, &p.ImageURL, &p.ImageURLs, &p.Lat, &p.Lng, &p.CreatedAt)
	return p, err
}

func collectPosts(rows pgx.Rows) ([]app.Post, error) {
	defer rows.Close()
	result := make([]app.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type PostgresProfileStore struct {
	DB *pgxpool.Pool
}

const profileColumns = `id, email, full_name, bio, avatar_url, updated_at`

func scanProfile(row pgx.Row) (app.Profile, error) {
	var p app.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Bio, &p.AvatarURL, &p.UpdatedAt)
	return p, err
}

func (s *PostgresProfileStore) Get(ctx context.Context, id string) (app.Profile, error) {
	profile, err := scanProfile(s.DB.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return app.Profile{}, ErrNotFound
	}
	if err != nil {
		return app.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresProfileStore) Upsert(ctx context.Context, p app.Profile) (app.Profile, error) {
	const q = `INSERT INTO profiles (id, email, full_name, avatar_url)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET
		email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE profiles.email END,
		full_name = CASE WHEN profiles.full_name = '' THEN EXCLUDED.full_name ELSE profiles.full_name END,
		avatar_url = CASE WHEN profiles.avatar_url = '' THEN EXCLUDED.avatar_url ELSE profiles.avatar_url END,
		updated_at = now()
	RETURNING ` + profileColumns
	profile, err := scanProfile(s.DB.QueryRow(ctx, q, p.ID, p.Email, p.FullName, p.AvatarURL))
	if err != nil {
		return app.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresProfileStore) Update(ctx context.Context, id string, u app.ProfileUpdate) (app.Profile, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return app.Profile{}, err
	}
	u.Apply(&current)
	const q = `UPDATE profiles SET full_name = $2, bio = $3, avatar_url = $4, updated_at = now()
	WHERE id = $1 RETURNING ` + profileColumns
	profile, err := scanProfile(s.DB.QueryRow(ctx, q, id, current.FullName, current.Bio, current.AvatarURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return app.Profile{}, ErrNotFound
	}
	if err != nil {
		return app.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresProfileStore) GetSettings(ctx context.Context, id string) (app.Settings, error) {
	var settings app.Settings
	err := s.DB.QueryRow(ctx, `SELECT data FROM user_settings WHERE user_id = $1`, id).Scan(&settings)
	if errors.Is(err, pgx.ErrNoRows) {
		return app.DefaultSettings(), nil
	}
	if err != nil {
		return app.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

func (s *PostgresProfileStore) PutSettings(ctx context.Context, id string, settings app.Settings) error {
	const q = `INSERT INTO user_settings (user_id, data) VALUES ($1, $2)
	ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	if _, err := s.DB.Exec(ctx, q, id, settings); err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}
