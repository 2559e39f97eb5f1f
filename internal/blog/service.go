// Package blog holds the post and comment rules: pagination, previews,
// input limits and ownership checks. Persistence sits behind Store.
package blog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"inkpost.dev/internal/ids"
)

// Service applies blog rules on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the time source for created/updated stamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPosts returns one page of previews, newest first. Zero pageNum or
// pageSize select the defaults.
func (s *Service) ListPosts(ctx context.Context, pageNum, pageSize int) (PostPage, error) {
	if pageNum == 0 {
		pageNum = DefaultPageNum
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < 0 || pageNum < 0 || pageSize > MaxPageSize {
		return PostPage{}, ErrInvalidPagination
	}

	posts, total, err := s.store.ListPosts(ctx, pageSize, pageOffset(pageNum, pageSize))
	if err != nil {
		return PostPage{}, fmt.Errorf("list posts: %w", err)
	}
	for i := range posts {
		posts[i].Content = truncate(posts[i].Content, PreviewLength)
	}
	return PostPage{
		Posts: posts,
		Pagination: Pagination{
			PageSize:   pageSize,
			PageNum:    pageNum,
			TotalPosts: total,
			TotalPages: (total + pageSize - 1) / pageSize,
		},
	}, nil
}

// GetPost returns a post with its full content.
func (s *Service) GetPost(ctx context.Context, id string) (Post, error) {
	id, ok := ids.Normalize(id)
	if !ok {
		return Post{}, ErrNotFound
	}
	return s.store.GetPost(ctx, id)
}

// CreatePost publishes a post owned by the user with email.
func (s *Service) CreatePost(ctx context.Context, email, title, content string) (Post, error) {
	title, content, err := validatePost(title, content)
	if err != nil {
		return Post{}, err
	}
	author, err := s.author(ctx, email)
	if err != nil {
		return Post{}, err
	}
	now := s.now()
	p := Post{
		Title:     title,
		Content:   content,
		UserID:    author.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePost(ctx, &p); err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	p.AuthorEmail = author.Email
	return p, nil
}

// UpdatePost replaces title and content of a post owned by email.
func (s *Service) UpdatePost(ctx context.Context, email, id, title, content string) (Post, error) {
	title, content, err := validatePost(title, content)
	if err != nil {
		return Post{}, err
	}
	p, err := s.owned(ctx, email, id)
	if err != nil {
		return Post{}, err
	}
	p.Title = title
	p.Content = content
	p.UpdatedAt = s.now()
	if err := s.store.UpdatePost(ctx, p); err != nil {
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	return p, nil
}

// DeletePost removes a post owned by email together with its comments.
func (s *Service) DeletePost(ctx context.Context, email, id string) error {
	p, err := s.owned(ctx, email, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, p.ID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// CreateComment adds a comment by email to an existing post.
func (s *Service) CreateComment(ctx context.Context, email, postID, content string) (Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, invalid("Comment content is required")
	}
	author, err := s.author(ctx, email)
	if err != nil {
		return Comment{}, err
	}
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return Comment{}, err
	}
	c := Comment{
		Content:   content,
		UserID:    author.ID,
		PostID:    post.ID,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateComment(ctx, &c); err != nil {
		return Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

func (s *Service) author(ctx context.Context, email string) (*User, error) {
	u, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("find author: %w", err)
	}
	return u, nil
}

// owned loads post id and checks it belongs to the user with email.
func (s *Service) owned(ctx context.Context, email, id string) (Post, error) {
	author, err := s.author(ctx, email)
	if err != nil {
		return Post{}, err
	}
	p, err := s.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if p.UserID != author.ID {
		return Post{}, ErrForbidden
	}
	return p, nil
}

func validatePost(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	switch {
	case title == "":
		return "", "", invalid("Title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return "", "", invalid(fmt.Sprintf("Title must be less than %d characters", MaxTitleLength))
	case content == "":
		return "", "", invalid("Content is required")
	}
	return title, content, nil
}

// pageOffset is (pageNum-1)*pageSize, saturating at math.MaxInt so huge
// page numbers land past the last post instead of wrapping negative.
func pageOffset(pageNum, pageSize int) int {
	if pageNum-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (pageNum - 1) * pageSize
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
