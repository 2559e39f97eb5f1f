package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpost.dev/internal/blog"
)

var stamp = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := New(db)
	s.now = func() time.Time { return stamp }
	return s, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestCreateUser(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(q("insert into users(id, email, password, created_at)")).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "hash", stamp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	u := &blog.User{Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, stamp, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(q("insert into users")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_live_idx"})

	err := s.CreateUser(context.Background(), &blog.User{Email: "alice@example.com", PasswordHash: "hash"})
	require.ErrorIs(t, err, blog.ErrDuplicate)
}

func TestCreateUserOtherError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(q("insert into users")).WillReturnError(errors.New("conn reset"))

	err := s.CreateUser(context.Background(), &blog.User{Email: "alice@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, blog.ErrDuplicate)
	assert.Contains(t, err.Error(), "conn reset")
}

func TestFindUserByEmail(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("where lower(email) = lower($1) and deleted = false")).
		WithArgs("Alice@Example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "created_at"}).
			AddRow("01HUSER", "alice@example.com", "hash", stamp))

	u, err := s.FindUserByEmail(context.Background(), "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "01HUSER", u.ID)
	assert.Equal(t, "hash", u.PasswordHash)

	mock.ExpectQuery(q("from users")).WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "created_at"}))
	_, err = s.FindUserByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, blog.ErrNotFound)
}

func TestGetPost(t *testing.T) {
	s, mock := newMockStore(t)
	cols := []string{"id", "title", "content", "user_id", "email", "created_at", "updated_at"}
	mock.ExpectQuery(q("where p.id = $1 and p.deleted = false")).
		WithArgs("01HPOST").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("01HPOST", "t", "c", "01HUSER", "alice@example.com", stamp, stamp))

	p, err := s.GetPost(context.Background(), "01HPOST")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", p.AuthorEmail)
	assert.Equal(t, "c", p.Content)

	mock.ExpectQuery(q("from posts p")).WithArgs("01HNONE").WillReturnRows(sqlmock.NewRows(cols))
	_, err = s.GetPost(context.Background(), "01HNONE")
	require.ErrorIs(t, err, blog.ErrNotFound)
}

func TestListPosts(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("select count(*) from posts where deleted = false")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(q("order by p.created_at desc, p.id desc")).
		WithArgs(10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "user_id", "email", "created_at", "updated_at"}).
			AddRow("01HB", "b", "second", "01HUSER", "alice@example.com", stamp, stamp).
			AddRow("01HA", "a", "first", "01HUSER", "alice@example.com", stamp.Add(-time.Hour), stamp))

	posts, total, err := s.ListPosts(context.Background(), 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, posts, 2)
	assert.Equal(t, "01HB", posts[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePost(t *testing.T) {
	s, mock := newMockStore(t)
	p := blog.Post{ID: "01HPOST", Title: "new", Content: "body", UpdatedAt: stamp}

	mock.ExpectExec(q("update posts set title = $2, content = $3, updated_at = $4")).
		WithArgs("01HPOST", "new", "body", stamp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UpdatePost(context.Background(), p))

	mock.ExpectExec(q("update posts")).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, s.UpdatePost(context.Background(), p), blog.ErrNotFound)
}

func TestDeletePostRemovesCommentsFirst(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("delete from comments where post_id = $1")).WithArgs("01HPOST").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("delete from posts where id = $1")).WithArgs("01HPOST").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeletePost(context.Background(), "01HPOST"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePostMissingRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("delete from comments")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("delete from posts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	require.ErrorIs(t, s.DeletePost(context.Background(), "01HNONE"), blog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateComment(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(q("insert into comments(id, content, user_id, post_id, created_at)")).
		WithArgs(sqlmock.AnyArg(), "nice", "01HUSER", "01HPOST", stamp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c := &blog.Comment{Content: "nice", UserID: "01HUSER", PostID: "01HPOST"}
	require.NoError(t, s.CreateComment(context.Background(), c))
	assert.NotEmpty(t, c.ID)

	mock.ExpectExec(q("insert into comments")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := s.CreateComment(context.Background(), &blog.Comment{Content: "x", UserID: "01HUSER", PostID: "01HNONE"})
	require.ErrorIs(t, err, blog.ErrNotFound)
}
