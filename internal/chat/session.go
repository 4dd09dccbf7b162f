package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// MaxDocumentChars bounds how much of each uploaded document is quoted
	// into the prompt.
	MaxDocumentChars = 3000
	defaultMaxTurns  = 20
)

// Document is uploaded text offered to the assistant as context.
type Document struct {
	FileName  string `json:"file_name"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count,omitempty"`
}

// Turn is one answered query.
type Turn struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds one conversation. It is safe for concurrent use.
type Session struct {
	mu           sync.Mutex
	systemPrompt string
	turns        []Turn
	maxTurns     int
	lastUsed     time.Time
}

// NewSession keeps at most maxTurns turns; older turns are dropped first.
func NewSession(systemPrompt string, maxTurns int) *Session {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &Session{
		systemPrompt: systemPrompt,
		maxTurns:     maxTurns,
		lastUsed:     time.Now(),
	}
}

// BuildMessages assembles the system prompt, document context, prior turns
// and the new query, in that order.
func (s *Session) BuildMessages(query string, docs []Document) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	messages := make([]Message, 0, 3+2*len(s.turns))
	messages = append(messages, Message{Role: RoleSystem, Content: s.systemPrompt})
	if len(docs) > 0 {
		messages = append(messages, Message{Role: RoleSystem, Content: documentContext(docs)})
	}
	for _, t := range s.turns {
		messages = append(messages,
			Message{Role: RoleUser, Content: t.Query},
			Message{Role: RoleAssistant, Content: t.Response},
		)
	}
	return append(messages, Message{Role: RoleUser, Content: query})
}

func (s *Session) Record(query, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, Turn{Query: query, Response: response, Timestamp: time.Now()})
	if over := len(s.turns) - s.maxTurns; over > 0 {
		s.turns = append(s.turns[:0:0], s.turns[over:]...)
	}
	s.lastUsed = time.Now()
}

func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func documentContext(docs []Document) string {
	var b strings.Builder
	b.WriteString("Uploaded documents follow. Prefer them over general knowledge when they answer the question.\n\n")
	for i, d := range docs {
		words := d.WordCount
		if words == 0 {
			words = len(strings.Fields(d.Text))
		}
		fmt.Fprintf(&b, "Document %d: %s\nWord count: %d\nContent:\n%s\n\n---\n\n", i+1, d.FileName, words, Truncate(d.Text, MaxDocumentChars))
	}
	return b.String()
}

// Truncate cuts s to at most n characters, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
