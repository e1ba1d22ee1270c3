package pmtiles

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Scheme identifies which blob backend a path should be routed to.
type Scheme uint8

const (
	UnknownScheme Scheme = iota
	FileScheme
	S3Scheme
)

var schemeStrings = map[Scheme]string{
	FileScheme:    "file",
	S3Scheme:      "s3",
	UnknownScheme: "unknown",
}

func (s Scheme) String() string {
	return schemeStrings[s]
}

// URI is a parsed archive path: either a filesystem path or an s3://
// bucket/key reference. The archive access state machine never
// constructs one directly — it is consumed by dispatchFetcher to decide
// which backend fetcher handles a given path.
type URI struct {
	host     string
	path     string
	fullPath string
	scheme   Scheme
}

func (u *URI) Host() string     { return u.host }
func (u *URI) Path() string     { return u.path }
func (u *URI) FullPath() string { return u.fullPath }
func (u *URI) Scheme() string   { return u.scheme.String() }

func newURI(u *url.URL, scheme Scheme) *URI {
	p := filepath.FromSlash(filepath.Join(u.Host, u.Path))
	return &URI{
		host:     u.Host,
		path:     u.Path,
		fullPath: p,
		scheme:   scheme,
	}
}

// ParseURI parses raw into a URI, trimming whitespace and resolving the
// supported schemes (bare path / "file://" / "s3://"). Any other scheme
// is rejected — the core only ever dispatches to the backends it has a
// Fetcher implementation for.
func ParseURI(raw string) (*URI, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return newURI(&url.URL{Path: "."}, FileScheme), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing URI %q: %v", ErrMalformed, raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "", "file":
		return newURI(u, FileScheme), nil
	case "s3":
		return newURI(u, S3Scheme), nil
	default:
		return nil, fmt.Errorf("%w: URI scheme %q", ErrUnsupported, u.Scheme)
	}
}
