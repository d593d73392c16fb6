package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/blogfront/internal/api"
	"github.com/bryan-buckman/blogfront/internal/form"
	"github.com/bryan-buckman/blogfront/internal/model"
	"github.com/bryan-buckman/blogfront/internal/notify"
	"github.com/bryan-buckman/blogfront/internal/pagination"
)

// toastView is a notification as the layout renders it.
type toastView struct {
	ID          string
	Text        string
	Severity    notify.Severity
	Offset      int
	RemainingMs int64
}

// toastViews computes stacking from the current order on every render.
func toastViews(ns []notify.Notification, now time.Time) []toastView {
	out := make([]toastView, 0, len(ns))
	for i, n := range ns {
		out = append(out, toastView{
			ID:          n.ID,
			Text:        n.Text,
			Severity:    n.Severity,
			Offset:      notify.Offset(i),
			RemainingMs: n.Remaining(now).Milliseconds(),
		})
	}
	return out
}

// postView is a post with its resolved image URL.
type postView struct {
	model.Post
	ImageURL string
	Deleting bool
}

func (s *Server) postView(p model.Post) postView {
	return postView{
		Post:     p,
		ImageURL: s.resolver.Resolve(p.Image, p.ID),
		Deleting: s.deleting.has(p.ID),
	}
}

// pagerView is the pagination block of the list page.
type pagerView struct {
	pagination.State
	Start int
	End   int
	Items []pagination.Item
}

func newPagerView(st pagination.State) pagerView {
	start, end := st.DisplayRange()
	return pagerView{State: st, Start: start, End: end, Items: st.Items()}
}

// formView backs form.html for both create and edit.
type formView struct {
	Action      string
	SubmitText  string
	Editing     bool
	Values      model.PostInput
	Errors      form.FieldErrors
	FileError   string
	Preview     string
	HasExisting bool
	BackURL     string
	BackText    string
	MaxTitle    int
	MaxContent  int
	MaxAuthor   int
	MaxFileSize int64
}

func (s *Server) newFormView(action, submit string) formView {
	return formView{
		Action:      action,
		SubmitText:  submit,
		Errors:      form.FieldErrors{},
		Preview:     s.resolver.DefaultURL(),
		BackURL:     "/",
		BackText:    "Back to Posts",
		MaxTitle:    form.MaxTitle,
		MaxContent:  form.MaxContent,
		MaxAuthor:   form.MaxAuthor,
		MaxFileSize: form.MaxImageSize,
	}
}

// errorText is the message shown for a failed backend call.
func errorText(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// statusFor picks the response status for a page whose backend call failed.
func statusFor(err error) int {
	switch api.KindOf(err) {
	case api.KindValidation:
		return http.StatusUnprocessableEntity
	case api.KindNotFound:
		return http.StatusNotFound
	case api.KindConflict:
		return http.StatusConflict
	case api.KindAuth:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

// pageParam reads ?page=, defaulting to 1 for anything that is not a positive integer.
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func listURL(page int) string {
	if page <= 1 {
		return "/"
	}
	return "/?page=" + strconv.Itoa(page)
}

// localPath returns raw's path and query when it names a page on this site,
// otherwise fallback. Absolute URLs are reduced to their path.
func localPath(raw, fallback string) string {
	if raw == "" {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	p := u.EscapedPath()
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return fallback
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
