package models

import "time"

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn in a session transcript.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the public view of a conversation.
type Session struct {
	ID               string           `json:"id"`
	Company          *Company         `json:"company,omitempty"`
	Documents        []DocumentRecord `json:"documents"`
	DocumentsFetched bool             `json:"documents_fetched"`
	Messages         []ChatMessage    `json:"messages"`
	CreatedAt        time.Time        `json:"created_at"`
	LastActive       time.Time        `json:"last_active"`
}

// Source is a citation appended to an answer.
type Source struct {
	Filename   string       `json:"filename"`
	Kind       DocumentKind `json:"kind"`
	EventTitle string       `json:"event_title"`
	EventDate  string       `json:"event_date"`
	URL        string       `json:"url"`
}

// Answer is the language model's reply plus the documents it was given.
type Answer struct {
	Text      string   `json:"text"`
	Sources   []Source `json:"sources"`
	Model     string   `json:"model,omitempty"`
	Documents int      `json:"documents"`
}
