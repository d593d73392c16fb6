// Package form validates post submissions before anything reaches the backend.
package form

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/bryan-buckman/blogfront/internal/model"
)

// Field limits, counted in characters.
const (
	MaxTitle   = 200
	MaxContent = 5000
	MaxAuthor  = 100
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 15 << 20

// MaxRequestSize bounds a whole multipart request: the largest accepted image
// plus room for the text fields, so an oversized file still parses far enough
// to be reported as too large.
const MaxRequestSize = MaxImageSize + 2<<20

var (
	ErrImageTooLarge = errors.New("File size must be less than 15MB")
	ErrNotAnImage    = errors.New("Please select an image file")
)

// FieldErrors maps a form field name to its message.
type FieldErrors map[string]string

// Has reports whether field has an error.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Get returns the message for field, or "".
func (fe FieldErrors) Get(field string) string {
	return fe[field]
}

// OK reports whether there are no errors.
func (fe FieldErrors) OK() bool {
	return len(fe) == 0
}

// ValidatePost checks the text fields of a submission.
func ValidatePost(in model.PostInput) FieldErrors {
	fe := FieldErrors{}
	check := func(field, label, value string, limit int) {
		switch {
		case strings.TrimSpace(value) == "":
			fe[field] = label + " is required"
		case utf8.RuneCountInString(value) > limit:
			if field == "author" {
				label = "Author name"
			}
			fe[field] = fmt.Sprintf("%s cannot exceed %d characters", label, limit)
		}
	}
	check("title", "Title", in.Title, MaxTitle)
	check("content", "Content", in.Content, MaxContent)
	check("author", "Author", in.Author, MaxAuthor)
	return fe
}

// ValidateImage checks a selected file's size and type.
func ValidateImage(u model.Upload) error {
	if u.Size > MaxImageSize {
		return ErrImageTooLarge
	}
	if !strings.HasPrefix(strings.ToLower(u.ContentType), "image/") {
		return ErrNotAnImage
	}
	return nil
}

// maxFieldSize bounds a single text field of a multipart submission.
const maxFieldSize = 1 << 20

// ErrFormTooLarge is returned when a text field or the request body exceeds
// its limit before the image part.
var ErrFormTooLarge = errors.New("The submitted form is too large")

// Submission is a parsed create or update form.
type Submission struct {
	Values url.Values
	// Image is nil when no file was chosen. An oversized file is reported
	// with Size above MaxImageSize and no Data.
	Image *model.Upload
}

// ReadSubmission parses a urlencoded or multipart form. Multipart bodies are
// streamed part by part: at most MaxImageSize+1 bytes of the image are kept
// and the rest is discarded, so a file that is too large never costs the text
// fields sent before it. The returned Submission is never nil; on error it
// holds whatever was read.
func ReadSubmission(r *http.Request) (*Submission, error) {
	sub := &Submission{Values: url.Values{}}

	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return sub, fmt.Errorf("parse form: %w", err)
		}
		sub.Values = r.PostForm
		return sub, nil
	}
	if err != nil {
		return sub, fmt.Errorf("read form: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return sub, nil
		}
		if err != nil {
			if sub.Image != nil && sub.Image.Size > MaxImageSize {
				// The body limit cut into the remainder of an oversized file.
				return sub, nil
			}
			return sub, fmt.Errorf("read form: %w", err)
		}

		name := part.FormName()
		switch {
		case name == "":
		case name == "image" && part.FileName() != "":
			upload, err := readUpload(part)
			if err != nil {
				part.Close()
				return sub, err
			}
			sub.Image = upload
			if upload.Size > MaxImageSize {
				// Drain what the body limit allows; the file is rejected anyway.
				if _, err := io.Copy(io.Discard, part); err != nil {
					part.Close()
					return sub, nil
				}
			}
		case part.FileName() != "":
			// Stray file fields are ignored.
		default:
			v, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
			if err != nil {
				part.Close()
				return sub, fmt.Errorf("read field %s: %w", name, err)
			}
			if len(v) > maxFieldSize {
				part.Close()
				return sub, ErrFormTooLarge
			}
			sub.Values.Add(name, string(v))
		}
		part.Close()
	}
}

// readUpload loads the image part. The content type comes from the part
// header, or is sniffed when the browser did not send one.
func readUpload(part *multipart.Part) (*model.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(part, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	u := &model.Upload{
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Size:        int64(len(data)),
	}
	if u.Size > MaxImageSize {
		return u, nil
	}
	u.Data = data
	if u.ContentType == "" || u.ContentType == "application/octet-stream" {
		u.ContentType = http.DetectContentType(u.Data)
	}
	return u, nil
}
