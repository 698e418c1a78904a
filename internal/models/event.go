package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Event is one disclosure occasion returned by the document provider.
// Events are read-only; the acquisition step filters and sorts copies.
type Event struct {
	ID              int             `json:"id,omitempty"`
	CompanyID       int             `json:"companyId,omitempty"`
	EventDate       string          `json:"eventDate"`
	EventTitle      string          `json:"eventTitle"`
	EventType       string          `json:"eventType,omitempty"`
	TranscriptURL   string          `json:"transcriptUrl,omitempty"`
	Transcripts     *TranscriptMeta `json:"transcripts,omitempty"`
	LiveTranscripts *TranscriptMeta `json:"liveTranscripts,omitempty"`
	ReportURL       string          `json:"reportUrl,omitempty"`
	PdfURL          string          `json:"pdfUrl,omitempty"`
	AudioURL        string          `json:"audioUrl,omitempty"`
}

// TranscriptMeta carries the provider's transcript locations for an event.
type TranscriptMeta struct {
	TranscriptURL             string          `json:"transcriptUrl,omitempty"`
	FinishedLiveTranscriptURL string          `json:"finishedLiveTranscriptUrl,omitempty"`
	LiveTranscripts           *TranscriptMeta `json:"liveTranscripts,omitempty"`
}

// UnmarshalJSON accepts an object; arrays, strings and null decode as empty metadata.
func (m *TranscriptMeta) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*m = TranscriptMeta{}
		return nil
	}
	type plain TranscriptMeta
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*m = TranscriptMeta(p)
	return nil
}

// IsEmpty reports whether the metadata names no transcript location.
func (m *TranscriptMeta) IsEmpty() bool {
	if m == nil {
		return true
	}
	return m.TranscriptURL == "" && m.FinishedLiveTranscriptURL == "" && m.LiveTranscripts.IsEmpty()
}

// Date returns the calendar date of the event (YYYY-MM-DD), dropping any time part.
func (e Event) Date() string {
	date, _, _ := strings.Cut(e.EventDate, "T")
	return date
}

// Title returns the event title, or a placeholder when the provider sent none.
func (e Event) Title() string {
	if strings.TrimSpace(e.EventTitle) == "" {
		return "Unknown Event"
	}
	return e.EventTitle
}

// TranscriptMetadata returns the transcript metadata, falling back to the
// live transcript block when the regular one is empty.
func (e Event) TranscriptMetadata() TranscriptMeta {
	if !e.Transcripts.IsEmpty() {
		return *e.Transcripts
	}
	if e.LiveTranscripts != nil {
		return *e.LiveTranscripts
	}
	return TranscriptMeta{}
}

// EventsResponse is the envelope of the provider's event listing.
type EventsResponse struct {
	Data       []Event `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}
