// Package images turns a post's stored image reference into a URL the page can load.
package images

import (
	"net/url"
	"strings"

	"github.com/bryan-buckman/blogfront/internal/model"
)

// DefaultImage is the file name of the placeholder under the assets path.
const DefaultImage = "blog.svg"

// Resolver builds image URLs for posts.
type Resolver struct {
	apiURL     string
	defaultURL string
}

// NewResolver creates a resolver. apiURL is the backend API root (".../api"),
// assetsPath the public prefix the default image is served under.
func NewResolver(apiURL, assetsPath string) *Resolver {
	if !strings.HasSuffix(assetsPath, "/") {
		assetsPath += "/"
	}
	return &Resolver{
		apiURL:     strings.TrimRight(apiURL, "/"),
		defaultURL: assetsPath + DefaultImage,
	}
}

// Resolve returns the URL to request for a post's image. It never fails:
// anything that cannot be served by the backend maps to the default asset.
// Legacy file paths are never resolvable.
func (r *Resolver) Resolve(ref model.ImageRef, postID string) string {
	switch ref.Kind {
	case model.ImageBinary:
		if ref.HasData && postID != "" {
			return r.apiURL + "/posts/" + url.PathEscape(postID) + "/image"
		}
	}
	return r.defaultURL
}

// DefaultURL is the placeholder the browser swaps in when an image fails to load.
func (r *Resolver) DefaultURL() string {
	return r.defaultURL
}

// IsDefault reports whether u points at the placeholder.
func (r *Resolver) IsDefault(u string) bool {
	return u == "" || u == r.defaultURL
}
