package blog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"inkpost.dev/internal/ids"
)

var _ Store = (*InMemory)(nil)

// InMemory implements Store with in-process concurrency safety.
// It backs tests and local runs without a database.
type InMemory struct {
	mu       sync.RWMutex
	users    map[string]*User // id -> user
	byEmail  map[string]string
	posts    map[string]*Post
	comments map[string]*Comment
	now      func() time.Time
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		posts:    make(map[string]*Post),
		comments: make(map[string]*Comment),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemory) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if id, ok := s.byEmail[key]; ok && !s.users[id].Deleted {
		return ErrDuplicate
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[key] = u.ID
	return nil
}

func (s *InMemory) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.users[id]
	if u.Deleted {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) CreatePost(ctx context.Context, p *Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.UserID]; !ok {
		return ErrNotFound
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	cp := *p
	cp.AuthorEmail = ""
	s.posts[p.ID] = &cp
	return nil
}

func (s *InMemory) GetPost(ctx context.Context, id string) (Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return s.withAuthor(*p), nil
}

func (s *InMemory) ListPosts(ctx context.Context, limit, offset int) ([]Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return []Post{}, total, nil
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}
	out := make([]Post, 0, end-offset)
	for _, p := range all[offset:end] {
		out = append(out, s.withAuthor(p))
	}
	return out, total, nil
}

func (s *InMemory) UpdatePost(ctx context.Context, p Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.posts[p.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Title = p.Title
	cur.Content = p.Content
	cur.UpdatedAt = p.UpdatedAt
	return nil
}

func (s *InMemory) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
	delete(s.posts, id)
	return nil
}

func (s *InMemory) CreateComment(ctx context.Context, c *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[c.PostID]; !ok {
		return ErrNotFound
	}
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	cp := *c
	s.comments[c.ID] = &cp
	return nil
}

// CommentCount reports how many comments post id has.
func (s *InMemory) CommentCount(postID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

// caller holds mu
func (s *InMemory) withAuthor(p Post) Post {
	if u, ok := s.users[p.UserID]; ok {
		p.AuthorEmail = u.Email
	}
	return p
}
