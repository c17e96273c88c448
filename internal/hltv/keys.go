// Package hltv derives natural keys from HLTV forum URLs and builds URLs back
// from keys.
//
// Keys have the shape "<numeric-id>/<slug>". Post keys append "#<anchor>" to
// the owning thread's key for replies; a thread's root post shares the thread
// key verbatim.
package hltv

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// BaseURL is the default site root.
const BaseURL = "https://www.hltv.org"

// ErrMalformedKey is returned for URLs or keys that do not match the
// "<numeric-id>/<slug>" shape.
var ErrMalformedKey = errors.New("malformed natural key")

// ForumKeyFromURL parses https://www.hltv.org/forums/17/off-topic into "17/off-topic".
func ForumKeyFromURL(raw string) (string, error) {
	return keyAfter(raw, "forums")
}

// ThreadKeyFromURL parses https://www.hltv.org/forums/threads/2329019/whos-dumber
// into "2329019/whos-dumber". A trailing "#fragment" is ignored.
func ThreadKeyFromURL(raw string) (string, error) {
	return keyAfter(raw, "forums", "threads")
}

// ProfileKeyFromURL parses https://www.hltv.org/profile/766189/nabaski into "766189/nabaski".
func ProfileKeyFromURL(raw string) (string, error) {
	return keyAfter(raw, "profile")
}

// ValidateKey checks that key is "<numeric-id>/<slug>".
func ValidateKey(key string) error {
	id, slug, ok := strings.Cut(key, "/")
	if !ok || slug == "" || strings.ContainsAny(slug, "/#?") {
		return fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return fmt.Errorf("%w: %q has non-numeric id", ErrMalformedKey, key)
	}
	return nil
}

// PostKey returns the natural key of a post. An empty anchor denotes the
// thread's root post, whose key is the thread key itself.
func PostKey(threadKey, anchor string) string {
	if anchor == "" {
		return threadKey
	}
	return threadKey + "#" + anchor
}

// ForumURL returns the forum index URL for a forum key.
func ForumURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/forums/" + key
}

// ThreadURL returns the thread page URL for a thread key.
func ThreadURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/forums/threads/" + key
}

// ProfileURL returns the profile URL for an author key.
func ProfileURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/profile/" + key
}

// keyAfter extracts the two path segments following prefix and validates them.
func keyAfter(raw string, prefix ...string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != len(prefix)+2 {
		return "", fmt.Errorf("%w: unexpected path %q", ErrMalformedKey, u.Path)
	}
	for i, p := range prefix {
		if segments[i] != p {
			return "", fmt.Errorf("%w: path %q does not start with /%s", ErrMalformedKey, u.Path, strings.Join(prefix, "/"))
		}
	}

	key := segments[len(prefix)] + "/" + segments[len(prefix)+1]
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}
