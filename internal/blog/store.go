package blog

import "context"

// UserStore persists accounts. Lookups never return soft-deleted users.
type UserStore interface {
	// CreateUser assigns an ID when empty and fails with ErrDuplicate for a taken email.
	CreateUser(ctx context.Context, u *User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
}

// Store persists users, posts and comments. Missing rows are reported as ErrNotFound.
type Store interface {
	UserStore

	CreatePost(ctx context.Context, p *Post) error
	// GetPost returns a live post with AuthorEmail populated.
	GetPost(ctx context.Context, id string) (Post, error)
	// ListPosts returns live posts newest first together with the total count.
	ListPosts(ctx context.Context, limit, offset int) ([]Post, int, error)
	UpdatePost(ctx context.Context, p Post) error
	// DeletePost removes a post and all of its comments atomically.
	DeletePost(ctx context.Context, id string) error

	CreateComment(ctx context.Context, c *Comment) error
}
