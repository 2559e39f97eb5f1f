package blog

import (
	"errors"
	"time"
)

// User is an account able to author posts and comments.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Deleted      bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Post is a blog entry. AuthorEmail is resolved from the owning user on reads.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	UserID      string    `json:"user_id"`
	AuthorEmail string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Comment belongs to exactly one post.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	PageSize   int `json:"pageSize"`
	PageNum    int `json:"pageNum"`
	TotalPosts int `json:"totalPosts"`
	TotalPages int `json:"totalPages"`
}

// PostPage is a page of post previews, newest first.
type PostPage struct {
	Posts      []Post     `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

const (
	DefaultPageNum  = 1
	DefaultPageSize = 10
	MaxPageSize     = 50
	// PreviewLength caps listed post content, in characters.
	PreviewLength = 1000
	// MaxTitleLength caps post titles, in characters.
	MaxTitleLength = 255
)

var (
	ErrNotFound          = errors.New("blog: not found")
	ErrDuplicate         = errors.New("blog: duplicate")
	ErrForbidden         = errors.New("blog: forbidden")
	ErrUnauthorized      = errors.New("blog: unknown author")
	ErrInvalidInput      = errors.New("blog: invalid input")
	ErrInvalidPagination = errors.New("pageSize must be between 1 and 50, and pageNum must be positive")
)

// inputError is a validation failure whose message is safe to show clients.
// It matches ErrInvalidInput under errors.Is.
type inputError struct{ msg string }

func invalid(msg string) error { return &inputError{msg: msg} }

func (e *inputError) Error() string { return "blog: " + e.msg }
func (e *inputError) Is(target error) bool { return target == ErrInvalidInput }
func (e *inputError) PublicMessage() string { return e.msg }
