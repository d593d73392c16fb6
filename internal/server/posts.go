package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bryan-buckman/blogfront/internal/form"
	"github.com/bryan-buckman/blogfront/internal/model"
	"github.com/bryan-buckman/blogfront/internal/pagination"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// --- Page Handlers ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	requested := pageParam(r)
	data := map[string]interface{}{"Title": "Blog Posts"}

	list, err := s.backend.ListPosts(r.Context(), requested, pagination.PageSize)
	if err != nil {
		if s.abandoned(r) {
			return
		}
		msg := errorText(err, "Failed to fetch posts. Please try again.")
		s.logger.Warn("Error fetching posts", zap.Int("page", requested), zap.Error(err))
		s.queue.Error(msg)
		data["Error"] = msg
		data["Posts"] = []postView{}
		data["Pager"] = newPagerView(pagination.Initial())
		data["Back"] = listURL(requested)
		s.render(w, r, statusFor(err), "index.html", data)
		return
	}

	state := pagination.Reconcile(list.Pagination)
	if page := state.Request(requested); len(list.Posts) == 0 && state.TotalPosts > 0 && page != requested {
		// The requested page no longer exists, e.g. after deleting the last
		// post on the last page.
		http.Redirect(w, r, listURL(page), http.StatusSeeOther)
		return
	}

	if list.Message != "" && list.Success {
		s.queue.Info(list.Message)
	} else if len(list.Posts) == 0 {
		s.queue.Info("No posts found. Create your first post!")
	}

	posts := make([]postView, 0, len(list.Posts))
	for _, p := range list.Posts {
		posts = append(posts, s.postView(p))
	}
	data["Posts"] = posts
	data["Pager"] = newPagerView(state)
	data["Back"] = listURL(state.CurrentPage)
	s.render(w, r, http.StatusOK, "index.html", data)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	post, msg, err := s.backend.GetPost(r.Context(), id)
	if err != nil {
		if s.abandoned(r) {
			return
		}
		s.renderFetchError(w, r, err, "/", "Back to Posts")
		return
	}
	if msg != "" {
		s.queue.Info(msg)
	}

	s.render(w, r, http.StatusOK, "post.html", map[string]interface{}{
		"Title": post.Title,
		"Post":  s.postView(*post),
	})
}

func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, http.StatusOK, "Create New Post", s.newFormView("/posts/new", "Create Post"), "")
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	fv := s.newFormView("/posts/new", "Create Post")
	in, ok := s.readSubmission(w, r, &fv)
	if !ok {
		s.renderForm(w, r, http.StatusUnprocessableEntity, "Create New Post", fv, "")
		return
	}

	_, msg, err := s.backend.CreatePost(r.Context(), in)
	if err != nil {
		if s.abandoned(r) {
			return
		}
		text := errorText(err, "Failed to create post. Please try again.")
		s.logger.Warn("Error creating post", zap.Error(err))
		s.queue.Error(text)
		s.renderForm(w, r, statusFor(err), "Create New Post", fv, text)
		return
	}

	if msg == "" {
		msg = "Post created successfully!"
	}
	s.queue.Success(msg)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	post, msg, err := s.backend.GetPost(r.Context(), id)
	if err != nil {
		if s.abandoned(r) {
			return
		}
		s.renderFetchError(w, r, err, "/posts/"+id, "Back to Post")
		return
	}
	if msg != "" {
		s.queue.Info(msg)
	}

	fv := s.editFormView(id)
	fv.Values = model.PostInput{Title: post.Title, Content: post.Content, Author: post.Author}
	fv.Preview = s.resolver.Resolve(post.Image, post.ID)
	fv.HasExisting = !s.resolver.IsDefault(fv.Preview)
	s.renderForm(w, r, http.StatusOK, "Edit Post", fv, "")
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fv := s.editFormView(id)

	in, ok := s.readSubmission(w, r, &fv)
	if !ok {
		s.renderForm(w, r, http.StatusUnprocessableEntity, "Edit Post", fv, "")
		return
	}

	_, msg, err := s.backend.UpdatePost(r.Context(), id, in)
	if err != nil {
		if s.abandoned(r) {
			return
		}
		text := errorText(err, "Failed to update post. Please try again.")
		s.logger.Warn("Error updating post", zap.String("id", id), zap.Error(err))
		s.queue.Error(text)
		s.renderForm(w, r, statusFor(err), "Edit Post", fv, text)
		return
	}

	if msg == "" {
		msg = "Post updated successfully!"
	}
	s.queue.Success(msg)
	http.Redirect(w, r, "/posts/"+id, http.StatusSeeOther)
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := localPath(r.URL.Query().Get("from"), "/posts/"+id)

	// The title is only used for the prompt; a failed lookup falls back to
	// the generic wording.
	var title string
	if post, _, err := s.backend.GetPost(r.Context(), id); err == nil {
		title = post.Title
	} else if s.abandoned(r) {
		return
	}

	s.render(w, r, http.StatusOK, "delete.html", map[string]interface{}{
		"Title":     "Delete Post",
		"ID":        id,
		"PostTitle": title,
		"Back":      back,
		"Next":      deleteTarget(id, back),
		"Deleting":  s.deleting.has(id),
	})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := localPath(r.PostFormValue("back"), "/")
	next := localPath(r.PostFormValue("next"), deleteTarget(id, back))

	if !s.deleting.acquire(id) {
		s.queue.Warning("This post is already being deleted.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	msg, err := func() (string, error) {
		defer s.deleting.release(id)
		return s.backend.DeletePost(r.Context(), id)
	}()

	if err != nil {
		if s.abandoned(r) {
			return
		}
		s.logger.Warn("Error deleting post", zap.String("id", id), zap.Error(err))
		s.queue.Error(errorText(err, "Failed to delete post. Please try again."))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if msg == "" {
		msg = "Post deleted successfully!"
	}
	s.queue.Success(msg)
	// The redirect makes the browser re-fetch the page it came from, strictly
	// after the delete completed.
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// --- Form Helpers ---

func (s *Server) editFormView(id string) formView {
	fv := s.newFormView("/posts/"+id+"/edit", "Update Post")
	fv.Editing = true
	fv.BackURL = "/posts/" + id
	fv.BackText = "Back to Post"
	return fv
}

// readSubmission parses and validates a create or update form into fv. It
// returns false when the submission must not be sent to the backend; fv then
// carries the field and file errors along with the submitted values.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request, fv *formView) (model.PostInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, form.MaxRequestSize)

	sub, err := form.ReadSubmission(r)
	if err != nil {
		s.logger.Debug("Unreadable form", zap.Error(err))
		fv.FileError = "Could not read the submitted form. Please try again."
		if errors.Is(err, form.ErrFormTooLarge) {
			fv.FileError = form.ErrFormTooLarge.Error()
		}
	}

	in := model.PostInput{
		Title:   sub.Values.Get("title"),
		Content: sub.Values.Get("content"),
		Author:  sub.Values.Get("author"),
	}
	if fv.Editing {
		if cur := localImage(sub.Values.Get("current_image"), s.resolver.DefaultURL()); cur != "" {
			fv.Preview = cur
			fv.HasExisting = !s.resolver.IsDefault(cur)
		}
	}

	if fv.FileError == "" && sub.Image != nil {
		if verr := form.ValidateImage(*sub.Image); verr != nil {
			fv.FileError = verr.Error()
		} else {
			in.Image = sub.Image
		}
	}

	fv.Values = model.PostInput{Title: in.Title, Content: in.Content, Author: in.Author}
	fv.Errors = form.ValidatePost(in)
	return in, fv.Errors.OK() && fv.FileError == ""
}

// localImage accepts a preview URL echoed back by the edit form only if it
// is an http(s) URL or a site path.
func localImage(raw, fallback string) string {
	switch {
	case raw == "":
		return fallback
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	default:
		return localPath(raw, fallback)
	}
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, title string, fv formView, errText string) {
	s.render(w, r, status, "form.html", map[string]interface{}{
		"Title": title,
		"Form":  fv,
		"Error": errText,
	})
}

// renderFetchError shows a failed post lookup inline and as a notification.
func (s *Server) renderFetchError(w http.ResponseWriter, r *http.Request, err error, back, backText string) {
	msg := errorText(err, "Failed to fetch post. Please try again.")
	s.logger.Warn("Error fetching post", zap.String("path", r.URL.Path), zap.Error(err))
	s.queue.Error(msg)
	s.render(w, r, statusFor(err), "error.html", map[string]interface{}{
		"Title":    "Post",
		"Error":    msg,
		"Back":     back,
		"BackText": backText,
	})
}

// deleteTarget is where to go after a successful delete: back to the list
// when the delete started on the post's own page, else where it started.
func deleteTarget(id, from string) string {
	if from == "/posts/"+id || strings.HasPrefix(from, "/posts/"+id+"?") {
		return "/"
	}
	return from
}
