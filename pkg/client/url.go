package client

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vaultkit/vault-client/pkg/api"
)

// ErrInvalidURL is returned when the joined address is not an absolute URL.
var ErrInvalidURL = errors.New("invalid URL")

// ResolveURL joins a base address and any number of path fragments into one
// absolute URL. Surrounding whitespace and slashes are trimmed from every
// part, empty parts are dropped and the rest are joined with a single slash.
//
// The first part is parsed as the address. Every later fragment is escaped
// segment by segment, so characters such as '?', '#' and '%' stay part of
// the path.
func ResolveURL(parts ...string) (*url.URL, error) {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.Wrap(ErrInvalidURL, "no address")
	}

	u, err := url.Parse(cleaned[0])
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURL, "%s: %v", cleaned[0], err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(ErrInvalidURL, "%s", cleaned[0])
	}

	path, rawPath := u.Path, u.EscapedPath()
	for _, fragment := range cleaned[1:] {
		escaped, err := escapeSegments(fragment)
		if err != nil {
			return nil, err
		}
		path += "/" + fragment
		rawPath += "/" + escaped
	}
	u.Path = path
	u.RawPath = rawPath
	return u, nil
}

// escapeSegments escapes each '/'-separated segment of fragment.
func escapeSegments(fragment string) (string, error) {
	segments := strings.Split(fragment, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		escaped, err := api.PathParam("segment", s)
		if err != nil {
			return "", errors.Wrapf(ErrInvalidURL, "%s: %v", fragment, err)
		}
		segments[i] = escaped
	}
	return strings.Join(segments, "/"), nil
}
