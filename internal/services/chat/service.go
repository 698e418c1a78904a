// Package chat holds conversational sessions: the selected company, its
// document manifest and the message history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/insight/internal/common"
	"github.com/bobmcallan/insight/internal/interfaces"
	"github.com/bobmcallan/insight/internal/models"
	"github.com/bobmcallan/insight/internal/services/answer"
)

// Assistant replies for turns that never reach the model.
const (
	SelectCompanyMessage  = "Please select a company first."
	NoDocumentsMessage    = "No documents found for this company. Please try another company or check your Quartr API key."
	NoDocumentsAvailable  = "No documents are available for this company. Please try another company."
	ModelUnavailableReply = "The language model is not configured, so questions cannot be answered right now."
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session is already answering a question")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrUnknownCompany  = errors.New("company not found in directory")
)

type session struct {
	data models.Session
	busy bool
}

// Service implements ChatService with in-memory sessions.
type Service struct {
	resolver    interfaces.CompanyResolver
	acquisition interfaces.AcquisitionService
	answers     interfaces.AnswerService
	logger      *common.Logger
	ttl         time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

var _ interfaces.ChatService = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithSessionTTL sets how long an idle session survives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a chat service.
func NewService(resolver interfaces.CompanyResolver, acquisition interfaces.AcquisitionService, answers interfaces.AnswerService, logger *common.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Service{
		resolver:    resolver,
		acquisition: acquisition,
		answers:     answers,
		logger:      logger,
		ttl:         common.FreshnessSession,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession starts an empty session.
func (s *Service) CreateSession(ctx context.Context) (*models.Session, error) {
	now := s.now()
	sess := &session{data: models.Session{
		ID:         uuid.NewString(),
		Documents:  []models.DocumentRecord{},
		Messages:   []models.ChatMessage{},
		CreatedAt:  now,
		LastActive: now,
	}}

	s.mu.Lock()
	s.sessions[sess.data.ID] = sess
	s.mu.Unlock()

	s.logger.WithContext(ctx).Debug().Str("session_id", sess.data.ID).Msg("Session created")
	return snapshot(sess), nil
}

// GetSession returns a copy of a live session.
func (s *Service) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

// DeleteSession discards a session. Stored documents are untouched.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(id); err != nil {
		return err
	}
	delete(s.sessions, id)
	return nil
}

// SelectCompany binds a company to the session. Choosing a different company
// discards the history and manifest; choosing the same one is a no-op.
func (s *Service) SelectCompany(ctx context.Context, id, companyName string) (*models.Session, error) {
	s.mu.Lock()
	if _, err := s.lookup(id); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	company, err := s.resolver.Resolve(ctx, strings.TrimSpace(companyName))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownCompany, companyName, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if sess.busy {
		return nil, ErrSessionBusy
	}

	if sess.data.Company == nil || sess.data.Company.Name != company.Name {
		sess.data.Company = company
		sess.data.Messages = []models.ChatMessage{}
		sess.data.Documents = []models.DocumentRecord{}
		sess.data.DocumentsFetched = false
		s.logger.WithContext(ctx).Info().Str("session_id", id).Str("company", company.Name).Msg("Company selected")
	}
	sess.data.LastActive = s.now()
	return snapshot(sess), nil
}

// Ask answers one question in the session. Documents are acquired on the
// first question after a company is chosen. Every turn records an assistant
// message; only session errors are returned.
func (s *Service) Ask(ctx context.Context, id, question string) (*models.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	s.mu.Lock()
	sess, err := s.lookup(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if sess.busy {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	sess.busy = true
	sess.data.LastActive = s.now()
	sess.data.Messages = append(sess.data.Messages, models.ChatMessage{Role: models.RoleUser, Content: question, CreatedAt: s.now()})
	company := sess.data.Company
	fetched := sess.data.DocumentsFetched
	records := append([]models.DocumentRecord(nil), sess.data.Documents...)
	s.mu.Unlock()

	ctx = common.WithRequestContext(ctx, &common.RequestContext{
		CorrelationID: common.ResolveCorrelationID(ctx),
		SessionID:     id,
	})

	reply := s.turn(ctx, company, fetched, &records, question)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.busy = false
	if company != nil && !fetched && records != nil {
		sess.data.Documents = records
		sess.data.DocumentsFetched = true
	}
	sess.data.Messages = append(sess.data.Messages, reply)
	sess.data.LastActive = s.now()
	return &reply, nil
}

// turn produces the assistant reply. records is filled in when this turn
// performs the acquisition; it is set to nil if acquisition failed.
func (s *Service) turn(ctx context.Context, company *models.Company, fetched bool, records *[]models.DocumentRecord, question string) models.ChatMessage {
	logger := s.logger.WithContext(ctx)
	reply := func(text string, sources []models.Source) models.ChatMessage {
		return models.ChatMessage{Role: models.RoleAssistant, Content: text, Sources: sources, CreatedAt: s.now()}
	}

	if company == nil {
		return reply(SelectCompanyMessage, nil)
	}

	if !fetched {
		docs, err := s.acquisition.Acquire(ctx, *company)
		if err != nil {
			logger.Warn().Err(err).Str("company", company.Name).Msg("Document acquisition failed")
			*records = nil
			return reply(fmt.Sprintf("Documents for %s could not be retrieved: %v", company.Name, err), nil)
		}
		if docs == nil {
			docs = []models.DocumentRecord{}
		}
		*records = docs
		if len(docs) == 0 {
			return reply(NoDocumentsMessage, nil)
		}
	}

	if len(*records) == 0 {
		return reply(NoDocumentsAvailable, nil)
	}

	ans, err := s.answers.Answer(ctx, question, *records)
	if err != nil {
		if errors.Is(err, answer.ErrModelUnavailable) {
			return reply(ModelUnavailableReply, nil)
		}
		logger.Warn().Err(err).Str("company", company.Name).Msg("Answer generation failed")
		return reply("An error occurred while processing your query: "+err.Error(), nil)
	}
	return reply(ans.Text, ans.Sources)
}

// Sweep removes sessions idle for longer than the TTL and returns how many went.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if !sess.busy && s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("Expired sessions swept")
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// lookup finds a live session, dropping it if it has expired. Caller holds s.mu.
func (s *Service) lookup(id string) (*session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !sess.busy && s.expired(sess) {
		delete(s.sessions, id)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) expired(sess *session) bool {
	return s.now().Sub(sess.data.LastActive) > s.ttl
}

// snapshot copies a session so callers never share its slices.
func snapshot(sess *session) *models.Session {
	out := sess.data
	if sess.data.Company != nil {
		c := *sess.data.Company
		out.Company = &c
	}
	out.Documents = append([]models.DocumentRecord{}, sess.data.Documents...)
	out.Messages = append([]models.ChatMessage{}, sess.data.Messages...)
	return &out
}
