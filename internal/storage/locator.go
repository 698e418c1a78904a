package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// Public URL styles.
const (
	URLStyleS3       = "s3"
	URLStyleSupabase = "supabase"
	URLStylePath     = "path"
)

// FormatLocator returns the scheme://bucket/key address of an object.
func FormatLocator(scheme, bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", scheme, bucket, strings.TrimPrefix(key, "/"))
}

// ParseLocator splits a scheme://bucket/key locator into its bucket and key.
func ParseLocator(locator string) (bucket, key string, err error) {
	scheme, rest, ok := strings.Cut(locator, "://")
	if !ok || scheme == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return bucket, key, nil
}

// PublicURLBuilder derives browser-accessible URLs for stored objects.
type PublicURLBuilder struct {
	Style    string
	BaseURL  string
	Bucket   string
	Region   string
	Endpoint string
	UseSSL   bool
}

// URL returns the public URL of key.
func (b PublicURLBuilder) URL(key string) string {
	escaped := escapeKey(key)
	base := strings.TrimSuffix(b.BaseURL, "/")

	switch b.Style {
	case URLStyleSupabase:
		return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", base, b.Bucket, escaped)
	case URLStyleS3:
		if base != "" {
			return fmt.Sprintf("%s/%s/%s", base, b.Bucket, escaped)
		}
		if b.Endpoint != "" {
			scheme := "http"
			if b.UseSSL {
				scheme = "https"
			}
			return fmt.Sprintf("%s://%s/%s/%s", scheme, b.Endpoint, b.Bucket, escaped)
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.Bucket, b.Region, escaped)
	default:
		return fmt.Sprintf("%s/%s/%s", base, b.Bucket, escaped)
	}
}

// escapeKey percent-encodes each path segment of key.
func escapeKey(key string) string {
	segments := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
