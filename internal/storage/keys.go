package storage

import (
	"net/url"
	"path"
	"strings"

	"github.com/bobmcallan/insight/internal/models"
)

// keyReplacer makes a display string safe for a flat object key.
var keyReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// sanitizeSegment lower-cases s and replaces spaces and slashes with underscores.
func sanitizeSegment(s string) string {
	return keyReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// DocumentKey derives the flat object key for a document:
//
//	{company}_{date}_{title}_{kind}.{ext}
//
// The same inputs always yield the same key. Transcripts are always pdf;
// other kinds take the extension of the source URL, defaulting to pdf.
func DocumentKey(companyName, eventDate, eventTitle string, kind models.DocumentKind, sourceURL string) string {
	date, _, _ := strings.Cut(strings.TrimSpace(eventDate), "T")

	ext := "pdf"
	if kind != models.KindTranscript {
		ext = ExtensionFromURL(sourceURL)
	}

	return sanitizeSegment(companyName) + "_" +
		date + "_" +
		sanitizeSegment(eventTitle) + "_" +
		string(kind) + "." + ext
}

// ExtensionFromURL returns the lower-case extension (without dot) of the last
// path segment of rawURL, ignoring any query string. Defaults to "pdf".
func ExtensionFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if before, _, ok := strings.Cut(rawURL, "?"); ok {
		p = before
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(path.Base(p))), ".")
	if ext == "" || strings.ContainsAny(ext, "/ ") {
		return "pdf"
	}
	return ext
}

// BaseName returns the final path segment of a key.
func BaseName(key string) string {
	return path.Base(key)
}
