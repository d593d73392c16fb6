package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bryan-buckman/blogfront/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListPosts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "6", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"message":     "Posts retrieved",
			"data":        []map[string]any{{"_id": "a", "title": "A", "image": map[string]any{"data": "AAAA"}}, {"_id": "b", "title": "B", "image": "/uploads/b.jpg"}},
			"currentPage": 2,
			"totalPages":  3,
			"totalPosts":  13,
			"hasNextPage": true,
			"hasPrevPage": true,
			"limit":       6,
		})
	})

	page, err := c.ListPosts(context.Background(), 2, 6)
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, "a", page.Posts[0].ID)
	assert.Equal(t, model.BinaryImage(true), page.Posts[0].Image)
	assert.Equal(t, model.LegacyImage("/uploads/b.jpg"), page.Posts[1].Image)
	assert.Equal(t, "Posts retrieved", page.Message)
	assert.True(t, page.Success)
	assert.Equal(t, model.ServerPagination{CurrentPage: 2, TotalPages: 3, TotalPosts: 13, HasNextPage: true, HasPrevPage: true, Limit: 6}, page.Pagination)
}

func TestGetPost(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts/p%2F1", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"_id": "p/1", "title": "T"}})
	})

	p, msg, err := c.GetPost(context.Background(), "p/1")
	require.NoError(t, err)
	assert.Equal(t, "p/1", p.ID)
	assert.Equal(t, "T", p.Title)
	assert.Empty(t, msg)
}

func TestCreatePost_JSONWithoutImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"title": "T", "content": "C", "author": "A"}, body)
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Post created", "data": map[string]any{"_id": "new", "title": "T"}})
	})

	p, msg, err := c.CreatePost(context.Background(), model.PostInput{Title: "T", Content: "C", Author: "A"})
	require.NoError(t, err)
	assert.Equal(t, "new", p.ID)
	assert.Equal(t, "Post created", msg)
	assert.Equal(t, model.ImageAbsent, p.Image.Kind)
}

func TestUpdatePost_MultipartWithImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/posts/x", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "T", r.FormValue("title"))
		assert.Equal(t, "C", r.FormValue("content"))
		assert.Equal(t, "A", r.FormValue("author"))

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cat.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		assert.Equal(t, []byte("png-bytes"), data)

		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"_id": "x", "image": map[string]any{"data": "cG5n"}}})
	})

	in := model.PostInput{Title: "T", Content: "C", Author: "A", Image: &model.Upload{Filename: "cat.png", ContentType: "image/png", Size: 9, Data: []byte("png-bytes")}}
	p, _, err := c.UpdatePost(context.Background(), "x", in)
	require.NoError(t, err)
	assert.Equal(t, model.BinaryImage(true), p.Image)
}

func TestDeletePost(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Post deleted"})
	})

	msg, err := c.DeletePost(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Post deleted", msg)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		kind   Kind
		want   string
	}{
		{"400 with message", 400, map[string]any{"message": "Bad title"}, KindValidation, "Bad title"},
		{"400 with field errors", 400, map[string]any{"message": "ignored", "errors": []map[string]string{{"msg": "Title is required"}, {"msg": "Author is required"}}}, KindValidation, "Title is required, Author is required"},
		{"400 bare", 400, map[string]any{}, KindValidation, "Invalid request. Please check your input."},
		{"401", 401, map[string]any{"message": "nope"}, KindAuth, "Unauthorized. Please log in."},
		{"403", 403, nil, KindAuth, "Access denied. You don't have permission for this action."},
		{"404 with message", 404, map[string]any{"message": "Post not found"}, KindNotFound, "Post not found"},
		{"404 bare", 404, nil, KindNotFound, "Resource not found."},
		{"409", 409, nil, KindConflict, "Conflict. This resource already exists."},
		{"422", 422, map[string]any{"errors": []map[string]string{{"msg": "Content too long"}}}, KindValidation, "Content too long"},
		{"500 hides message", 500, map[string]any{"message": "stack trace"}, KindServer, "Server error. Please try again later."},
		{"502", 502, nil, KindUnknown, "Server error (502). Please try again."},
		{"503 with message", 503, map[string]any{"message": "Maintenance"}, KindUnknown, "Maintenance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.DeletePost(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, tt.kind, KindOf(err))

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	var outcomes []string
	c := New(base+"/api", WithObserver(func(op, outcome string, _ time.Duration) {
		outcomes = append(outcomes, op+":"+outcome)
	}))
	_, err := c.ListPosts(context.Background(), 1, 6)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, "Network error. Please check your internet connection.", err.Error())
	assert.Equal(t, []string{"list:network"}, outcomes)
}

func TestCanceledRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.GetPost(ctx, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestObserverReportsSuccess(t *testing.T) {
	var outcomes []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
	}, WithObserver(func(op, outcome string, _ time.Duration) {
		outcomes = append(outcomes, op+":"+outcome)
	}))

	_, err := c.ListPosts(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"list:ok"}, outcomes)
}
