package models

import "time"

// DocumentKind identifies the type of investor-relations document.
type DocumentKind string

const (
	KindTranscript DocumentKind = "transcript"
	KindReport     DocumentKind = "report"
	KindSlides     DocumentKind = "slides"
)

// DocumentKinds lists every kind in acquisition order.
var DocumentKinds = []DocumentKind{KindTranscript, KindReport, KindSlides}

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	switch k {
	case KindTranscript, KindReport, KindSlides:
		return true
	}
	return false
}

// DocumentRecord is one manifest entry produced by an acquisition run.
// Records are never updated in place.
type DocumentRecord struct {
	Filename       string       `json:"filename"`
	Kind           DocumentKind `json:"kind"`
	EventDate      string       `json:"event_date"`
	EventTitle     string       `json:"event_title"`
	StorageLocator string       `json:"storage_locator"`
	PublicURL      string       `json:"public_url,omitempty"`
	ContentType    string       `json:"content_type,omitempty"`
	Size           int          `json:"size,omitempty"`
	Pages          int          `json:"pages,omitempty"`
	StoredAt       time.Time    `json:"stored_at"`
}

// Manifest is the ordered list of records from one acquisition run.
type Manifest struct {
	Company   Company          `json:"company"`
	Documents []DocumentRecord `json:"documents"`
	Elapsed   string           `json:"elapsed,omitempty"`
}

// CountByKind returns how many records of each kind the manifest holds.
func (m Manifest) CountByKind() map[DocumentKind]int {
	counts := make(map[DocumentKind]int, len(DocumentKinds))
	for _, d := range m.Documents {
		counts[d.Kind]++
	}
	return counts
}

// FetchedDocument is a raw document body downloaded from a URL.
type FetchedDocument struct {
	URL         string
	ContentType string
	Data        []byte
}

// DocumentPart is one binary attachment sent to the language model.
type DocumentPart struct {
	Name     string
	MIMEType string
	Data     []byte
}
