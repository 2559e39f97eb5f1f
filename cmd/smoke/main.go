package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

type client struct {
	base  string
	http  *http.Client
	token string
}

func (c *client) call(method, path string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		var msg map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		log.Fatalf("%s %s: status %d, want %d: %v", method, path, resp.StatusCode, want, msg["message"])
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func main() {
	base := os.Getenv("INKPOST_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	c := &client{base: base, http: &http.Client{Timeout: 5 * time.Second}}

	email := fmt.Sprintf("smoke-%s@example.com", uuid.NewString()[:8])
	creds := map[string]string{"email": email, "password": "smoke-pass"}

	c.call(http.MethodPost, "/api/auth/signup", creds, nil, http.StatusOK)

	var pair struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	c.call(http.MethodPost, "/api/auth/login", creds, &pair, http.StatusOK)

	var refreshed struct {
		AccessToken string `json:"accessToken"`
	}
	c.call(http.MethodPost, "/api/auth/refresh", map[string]string{"refreshToken": pair.RefreshToken}, &refreshed, http.StatusOK)
	c.token = refreshed.AccessToken

	var post struct {
		ID string `json:"id"`
	}
	c.call(http.MethodPost, "/api/posts", map[string]string{"title": "smoke", "content": "hello from smoke"}, &post, http.StatusCreated)
	c.call(http.MethodPost, "/api/posts/"+post.ID+"/comments", map[string]string{"content": "first"}, nil, http.StatusCreated)

	var page struct {
		Pagination struct {
			TotalPosts int `json:"totalPosts"`
		} `json:"pagination"`
	}
	c.call(http.MethodGet, "/api/posts?pageSize=1", nil, &page, http.StatusOK)
	if page.Pagination.TotalPosts < 1 {
		log.Fatalf("listing does not include the new post")
	}

	c.call(http.MethodDelete, "/api/posts/"+post.ID, nil, nil, http.StatusOK)
	c.call(http.MethodGet, "/api/posts/"+post.ID, nil, nil, http.StatusNotFound)

	log.Printf("smoke OK: %s created and removed post %s", email, post.ID)
}
