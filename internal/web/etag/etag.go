// Package etag answers conditional GET requests for immutable resources
package etag

import (
	"net/http"
	"strings"
	"time"
)

// Strong quotes v as a strong entity tag
func Strong(v string) string {
	return `"` + v + `"`
}

// Parse splits an If-None-Match header into its entity tags. "*" is
// returned as a single element.
func Parse(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	if header == "*" {
		return []string{"*"}
	}

	var tags []string
	for i := 0; i < len(header); {
		for i < len(header) && (header[i] == ' ' || header[i] == ',') {
			i++
		}
		if i >= len(header) {
			break
		}

		start := i
		if strings.HasPrefix(header[i:], "W/") {
			i += 2
		}
		if i >= len(header) || header[i] != '"' {
			// not a tag; skip to the next separator
			for i < len(header) && header[i] != ',' {
				i++
			}
			continue
		}
		end := strings.IndexByte(header[i+1:], '"')
		if end < 0 {
			break
		}
		i += end + 2
		tags = append(tags, header[start:i])
	}
	return tags
}

// Match reports whether tag matches any of tags using weak comparison
func Match(tag string, tags []string) bool {
	if len(tags) == 1 && tags[0] == "*" {
		return true
	}
	opaque := strings.TrimPrefix(tag, "W/")
	for _, t := range tags {
		if strings.TrimPrefix(t, "W/") == opaque {
			return true
		}
	}
	return false
}

// NotModified sets ETag, Last-Modified and Cache-Control, then answers 304
// when the request's validators still match. It reports whether the
// response was written. If-None-Match takes precedence over
// If-Modified-Since.
func NotModified(w http.ResponseWriter, r *http.Request, tag string, modified time.Time, cacheControl string) bool {
	h := w.Header()
	if tag != "" {
		h.Set("ETag", tag)
	}
	if !modified.IsZero() {
		h.Set("Last-Modified", modified.UTC().Format(http.TimeFormat))
	}
	if cacheControl != "" {
		h.Set("Cache-Control", cacheControl)
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if tag != "" && Match(tag, Parse(inm)) {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
		return false
	}

	if ims := r.Header.Get("If-Modified-Since"); ims != "" && !modified.IsZero() {
		since, err := http.ParseTime(ims)
		if err == nil && !modified.Truncate(time.Second).After(since) {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}
