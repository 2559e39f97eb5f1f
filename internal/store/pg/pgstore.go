package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"inkpost.dev/internal/blog"
	"inkpost.dev/internal/ids"
)

const uniqueViolation = "23505"

// Store implements blog.Store on PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ blog.Store = (*Store)(nil)

// Open connects with the pgx driver and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) CreateUser(ctx context.Context, u *blog.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users(id, email, password, created_at)
		values ($1, $2, $3, $4)
	`, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return blog.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*blog.User, error) {
	var u blog.User
	err := s.db.QueryRowContext(ctx, `
		select id, email, password, created_at
		from users
		where lower(email) = lower($1) and deleted = false
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (s *Store) CreatePost(ctx context.Context, p *blog.Post) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		insert into posts(id, title, content, user_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Title, p.Content, p.UserID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (blog.Post, error) {
	var p blog.Post
	err := s.db.QueryRowContext(ctx, `
		select p.id, p.title, p.content, p.user_id, u.email, p.created_at, p.updated_at
		from posts p
		join users u on u.id = p.user_id
		where p.id = $1 and p.deleted = false
	`, id).Scan(&p.ID, &p.Title, &p.Content, &p.UserID, &p.AuthorEmail, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return blog.Post{}, blog.ErrNotFound
	}
	if err != nil {
		return blog.Post{}, fmt.Errorf("select post: %w", err)
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, limit, offset int) ([]blog.Post, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from posts where deleted = false`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		select p.id, p.title, p.content, p.user_id, u.email, p.created_at, p.updated_at
		from posts p
		join users u on u.id = p.user_id
		where p.deleted = false
		order by p.created_at desc, p.id desc
		limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select posts: %w", err)
	}
	defer rows.Close()

	posts := make([]blog.Post, 0, limit)
	for rows.Next() {
		var p blog.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.UserID, &p.AuthorEmail, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, total, nil
}

func (s *Store) UpdatePost(ctx context.Context, p blog.Post) error {
	res, err := s.db.ExecContext(ctx, `
		update posts set title = $2, content = $3, updated_at = $4
		where id = $1 and deleted = false
	`, p.ID, p.Title, p.Content, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return expectOne(res)
}

// DeletePost removes the post's comments and then the post in one transaction.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from comments where post_id = $1`, id); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `delete from posts where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) CreateComment(ctx context.Context, c *blog.Comment) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		insert into comments(id, content, user_id, post_id, created_at)
		select $1, $2, $3, id, $5 from posts where id = $4 and deleted = false
	`, c.ID, c.Content, c.UserID, c.PostID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return blog.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
