// Package model defines shared data structures.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Post is a blog article as returned by the backend.
type Post struct {
	ID        string
	Title     string
	Content   string
	Author    string
	Image     ImageRef
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Edited reports whether the post was updated after it was created.
func (p Post) Edited() bool {
	return !p.UpdatedAt.IsZero() && !p.UpdatedAt.Equal(p.CreatedAt)
}

type postJSON struct {
	MongoID   string    `json:"_id"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Image     ImageRef  `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UnmarshalJSON decodes the backend representation, which keys posts by "_id".
func (p *Post) UnmarshalJSON(data []byte) error {
	var raw postJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Post{
		ID:        raw.MongoID,
		Title:     raw.Title,
		Content:   raw.Content,
		Author:    raw.Author,
		Image:     raw.Image,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	if p.ID == "" {
		p.ID = raw.ID
	}
	return nil
}

// ImageKind tags which representation an ImageRef holds.
type ImageKind int

const (
	ImageAbsent ImageKind = iota
	ImageLegacyPath
	ImageBinary
)

func (k ImageKind) String() string {
	switch k {
	case ImageLegacyPath:
		return "legacy"
	case ImageBinary:
		return "binary"
	default:
		return "absent"
	}
}

// ImageRef is the normalized image field of a post. Exactly one kind applies.
type ImageRef struct {
	Kind    ImageKind
	Path    string // set for ImageLegacyPath
	HasData bool   // set for ImageBinary
}

// NoImage returns an absent image reference.
func NoImage() ImageRef { return ImageRef{Kind: ImageAbsent} }

// LegacyImage returns a reference to a historical file path.
func LegacyImage(path string) ImageRef { return ImageRef{Kind: ImageLegacyPath, Path: path} }

// BinaryImage returns a reference to an image stored by the backend.
func BinaryImage(hasData bool) ImageRef { return ImageRef{Kind: ImageBinary, HasData: hasData} }

// UnmarshalJSON maps the backend's three image shapes onto ImageRef:
// null or "" is absent, a string is a legacy path, an object is binary data.
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = NoImage()
		return nil
	}
	switch data[0] {
	case '"':
		var path string
		if err := json.Unmarshal(data, &path); err != nil {
			return fmt.Errorf("decode image path: %w", err)
		}
		if path == "" {
			*r = NoImage()
		} else {
			*r = LegacyImage(path)
		}
		return nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode image object: %w", err)
		}
		*r = BinaryImage(hasPayload(obj["data"]))
		return nil
	default:
		*r = NoImage()
		return nil
	}
}

func hasPayload(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	switch {
	case len(v) == 0, bytes.Equal(v, []byte("null")), bytes.Equal(v, []byte(`""`)),
		bytes.Equal(v, []byte("[]")), bytes.Equal(v, []byte("{}")), bytes.Equal(v, []byte("false")):
		return false
	}
	return true
}

// ServerPagination is the pagination block of the backend list response, verbatim.
type ServerPagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalPosts  int  `json:"totalPosts"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
	Limit       int  `json:"limit"`
}

// ListPage is one page of posts plus the backend's envelope fields.
type ListPage struct {
	Posts      []Post
	Pagination ServerPagination
	Message    string
	Success    bool
}

// Upload is an image file attached to a create or update.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// PostInput is the candidate field set submitted for create or update.
type PostInput struct {
	Title   string
	Content string
	Author  string
	Image   *Upload
}
