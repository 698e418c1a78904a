package tui

import "github.com/bobmcallan/insight/internal/models"

// SessionCreatedMsg is sent once the chat session exists.
type SessionCreatedMsg struct {
	Session *models.Session
}

// CompanySelectedMsg carries the session after a company was bound to it.
type CompanySelectedMsg struct {
	Session *models.Session
}

// ReplyMsg carries the assistant's reply to a question.
type ReplyMsg struct {
	Message *models.ChatMessage
}

// ErrorMsg reports a failed session operation.
type ErrorMsg struct {
	Err error
}

// SpinnerTickMsg advances the busy indicator.
type SpinnerTickMsg struct{}
