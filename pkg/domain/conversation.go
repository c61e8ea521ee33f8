package domain

import (
	"strings"
	"time"
)

// Output is one model turn: what the character says and three replies offered to the visitor.
type Output struct {
	Response string    `json:"response"`
	Replies  [3]string `json:"replies"`
}

// IsEndOfConversation reports whether the model signalled the end of the chat.
// An empty reply in any slot means there is nothing left to offer.
func (o Output) IsEndOfConversation() bool {
	for _, r := range o.Replies {
		if r == "" {
			return true
		}
	}
	return false
}

// Role names the author of a model history message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the model's chat history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Speaker names the author of a transcript line.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerCharacter Speaker = "character"
)

// TranscriptEntry is one human-readable line of a chat.
type TranscriptEntry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// EndReason records which path finished a conversation.
type EndReason string

const (
	EndPressed  EndReason = "end_pressed"
	EndTimeout  EndReason = "timeout"
	EndImplicit EndReason = "implicit_end"
	EndLLMError EndReason = "llm_error"
)

// Conversation is the archived record of one chat.
type Conversation struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	Character  Character         `json:"character"`
	Transcript []TranscriptEntry `json:"transcript"`
	History    []Message         `json:"history"`
	EndReason  EndReason         `json:"end_reason,omitempty"`
}

// NewConversation starts a record for character at startedAt.
func NewConversation(id string, character Character, startedAt time.Time) *Conversation {
	return &Conversation{
		ID:         id,
		StartedAt:  startedAt.UTC().Truncate(time.Second),
		Character:  character,
		Transcript: []TranscriptEntry{},
		History:    []Message{},
	}
}

// Key is the archive name of the record: "<RFC3339 start> - <character name>".
func (c *Conversation) Key() string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, c.Character.Name)
	return c.StartedAt.UTC().Format(time.RFC3339) + " - " + name
}

// AddTranscript appends a transcript line.
func (c *Conversation) AddTranscript(speaker Speaker, text string) {
	c.Transcript = append(c.Transcript, TranscriptEntry{Speaker: speaker, Text: text})
}

// Turns counts the visitor's replies.
func (c *Conversation) Turns() int {
	n := 0
	for _, e := range c.Transcript {
		if e.Speaker == SpeakerUser {
			n++
		}
	}
	return n
}
