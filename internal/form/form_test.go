package form

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/bryan-buckman/blogfront/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePost(t *testing.T) {
	ok := model.PostInput{Title: "T", Content: "C", Author: "A"}
	assert.True(t, ValidatePost(ok).OK())

	fe := ValidatePost(model.PostInput{Title: "  ", Content: "", Author: ""})
	assert.Equal(t, "Title is required", fe.Get("title"))
	assert.Equal(t, "Content is required", fe.Get("content"))
	assert.Equal(t, "Author is required", fe.Get("author"))

	fe = ValidatePost(model.PostInput{
		Title:   strings.Repeat("a", MaxTitle+1),
		Content: strings.Repeat("b", MaxContent+1),
		Author:  strings.Repeat("c", MaxAuthor+1),
	})
	assert.Equal(t, "Title cannot exceed 200 characters", fe.Get("title"))
	assert.Equal(t, "Content cannot exceed 5000 characters", fe.Get("content"))
	assert.Equal(t, "Author name cannot exceed 100 characters", fe.Get("author"))
}

func TestValidatePost_CountsCharactersNotBytes(t *testing.T) {
	in := model.PostInput{Title: strings.Repeat("é", MaxTitle), Content: "C", Author: "A"}
	assert.False(t, ValidatePost(in).Has("title"))
}

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage(model.Upload{Size: 1024, ContentType: "image/png"}))
	assert.NoError(t, ValidateImage(model.Upload{Size: MaxImageSize, ContentType: "image/jpeg"}))

	err := ValidateImage(model.Upload{Size: 16 << 20, ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrImageTooLarge)
	assert.Equal(t, "File size must be less than 15MB", err.Error())

	err = ValidateImage(model.Upload{Size: 10, ContentType: "text/plain"})
	assert.ErrorIs(t, err, ErrNotAnImage)
	assert.Equal(t, "Please select an image file", err.Error())
}

func multipartRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "T"))
	require.NoError(t, w.WriteField("content", "Body"))
	if filename != "" || data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/posts/new", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r
}

func TestReadSubmission_Multipart(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")

	sub, err := ReadSubmission(multipartRequest(t, "a.png", "image/png", png))
	require.NoError(t, err)
	assert.Equal(t, "T", sub.Values.Get("title"))
	assert.Equal(t, "Body", sub.Values.Get("content"))
	require.NotNil(t, sub.Image)
	assert.Equal(t, "a.png", sub.Image.Filename)
	assert.Equal(t, "image/png", sub.Image.ContentType)
	assert.Equal(t, int64(len(png)), sub.Image.Size)
	assert.Equal(t, png, sub.Image.Data)

	sub, err = ReadSubmission(multipartRequest(t, "a.png", "", png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", sub.Image.ContentType)

	sub, err = ReadSubmission(multipartRequest(t, "notes.txt", "text/plain", []byte("hello")))
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateImage(*sub.Image), ErrNotAnImage)

	sub, err = ReadSubmission(multipartRequest(t, "", "", nil))
	require.NoError(t, err)
	assert.Nil(t, sub.Image)
	assert.Equal(t, "T", sub.Values.Get("title"))
}

func TestReadSubmission_URLEncoded(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/posts/new", strings.NewReader("title=T&author=A"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	sub, err := ReadSubmission(r)
	require.NoError(t, err)
	assert.Equal(t, "T", sub.Values.Get("title"))
	assert.Equal(t, "A", sub.Values.Get("author"))
	assert.Nil(t, sub.Image)
}

func TestReadSubmission_OversizedImageKeepsFields(t *testing.T) {
	r := multipartRequest(t, "big.png", "image/png", make([]byte, 20<<20))
	rec := httptest.NewRecorder()
	r.Body = http.MaxBytesReader(rec, r.Body, MaxRequestSize)

	sub, err := ReadSubmission(r)
	require.NoError(t, err)
	assert.Equal(t, "T", sub.Values.Get("title"))
	assert.Equal(t, "Body", sub.Values.Get("content"))
	require.NotNil(t, sub.Image)
	assert.Nil(t, sub.Image.Data)
	assert.ErrorIs(t, ValidateImage(*sub.Image), ErrImageTooLarge)
}

func TestReadSubmission_OversizedField(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "T"))
	require.NoError(t, w.WriteField("content", strings.Repeat("x", maxFieldSize+1)))
	require.NoError(t, w.Close())
	r := httptest.NewRequest(http.MethodPost, "/posts/new", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())

	sub, err := ReadSubmission(r)
	assert.ErrorIs(t, err, ErrFormTooLarge)
	assert.Equal(t, "T", sub.Values.Get("title"))
}
