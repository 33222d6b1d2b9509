// ABOUTME: Stable article and feed identity derived from a link's host and path
// ABOUTME: Case-insensitive, ignores scheme, query, fragment, and user info

package identity

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoHost is returned when a link has no host component to derive an identity from.
var ErrNoHost = errors.New("link has no host")

// Identity is the dedup key for a link: its lower-cased host and unescaped path.
// The zero value means "no identity" and never matches anything.
type Identity struct {
	host string
	path string
}

// FromLink derives the identity of a raw link.
func FromLink(link string) (Identity, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return Identity{}, fmt.Errorf("parse link: %w", err)
	}
	return FromURL(u)
}

// FromURL derives the identity of an already parsed URL.
func FromURL(u *url.URL) (Identity, error) {
	if u == nil || u.Hostname() == "" {
		return Identity{}, ErrNoHost
	}
	// Path is already unescaped by net/url; an empty path and "/" name the same resource.
	path := u.Path
	if path == "" {
		path = "/"
	}
	return Identity{
		host: strings.ToLower(u.Hostname()),
		path: strings.ToLower(path),
	}, nil
}

// MustFromLink is FromLink for links known to be valid, such as constants in tests.
func MustFromLink(link string) Identity {
	id, err := FromLink(link)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether the identity is empty.
func (i Identity) IsZero() bool {
	return i.host == ""
}

// Host returns the normalized host.
func (i Identity) Host() string {
	return i.host
}

// Path returns the normalized path.
func (i Identity) Path() string {
	return i.path
}

func (i Identity) String() string {
	return i.host + i.path
}
