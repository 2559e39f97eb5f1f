package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"inkpost.dev/internal/audit"
	"inkpost.dev/internal/auth"
	"inkpost.dev/internal/blog"
)

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type commentRequest struct {
	Content string `json:"content"`
}

func (a *API) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := a.blog.ListPosts(r.Context(), queryInt(q.Get("pageNum")), queryInt(q.Get("pageSize")))
	if err != nil {
		blogError(w, r, "list posts", err, "")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) handleGetPost(w http.ResponseWriter, r *http.Request) {
	p, err := a.blog.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		blogError(w, r, "get post", err, "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, r, err)
		return
	}
	email, _ := auth.EmailFromContext(r.Context())
	p, err := a.blog.CreatePost(r.Context(), email, req.Title, req.Content)
	if err != nil {
		blogError(w, r, "create post", err, "")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.PostCreated, map[string]any{"post_id": p.ID, "title": p.Title})
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, r, err)
		return
	}
	email, _ := auth.EmailFromContext(r.Context())
	p, err := a.blog.UpdatePost(r.Context(), email, r.PathValue("id"), req.Title, req.Content)
	if err != nil {
		blogError(w, r, "update post", err, "Forbidden: You can only edit your own posts")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.PostUpdated, map[string]any{"post_id": p.ID})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.EmailFromContext(r.Context())
	id := r.PathValue("id")
	if err := a.blog.DeletePost(r.Context(), email, id); err != nil {
		blogError(w, r, "delete post", err, "Forbidden: You can only delete your own posts")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.PostDeleted, map[string]any{"post_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"message": "Post and related comments deleted"})
}

func (a *API) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, r, err)
		return
	}
	email, _ := auth.EmailFromContext(r.Context())
	c, err := a.blog.CreateComment(r.Context(), email, r.PathValue("id"), req.Content)
	if err != nil {
		blogError(w, r, "create comment", err, "")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.CommentCreated, map[string]any{"post_id": c.PostID, "comment_id": c.ID})
	writeJSON(w, http.StatusCreated, c)
}

func blogError(w http.ResponseWriter, r *http.Request, op string, err error, forbidden string) {
	if msg, ok := asPublic(err); ok {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}
	switch {
	case errors.Is(err, blog.ErrInvalidPagination):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, blog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Post not found")
	case errors.Is(err, blog.ErrForbidden):
		if forbidden == "" {
			forbidden = "Forbidden"
		}
		writeError(w, r, http.StatusForbidden, forbidden)
	case errors.Is(err, blog.ErrUnauthorized):
		unauthorized(w, r, "Unauthorized")
	default:
		serverError(w, r, op, err)
	}
}

// queryInt parses a pagination parameter; anything unparsable selects the
// default.
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
