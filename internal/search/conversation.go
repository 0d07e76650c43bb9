package search

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// turn is one exchange in a conversation.
type turn struct {
	Role    string
	Content string
}

type conversation struct {
	turns    []turn
	lastSeen time.Time
}

// Conversations keeps per-conversation history in memory. History is an aid
// for answer generation, not a durable record: it is bounded per conversation
// and idle conversations expire.
type Conversations struct {
	mu       sync.Mutex
	byID     map[string]*conversation
	maxTurns int
	maxIdle  time.Duration
}

// NewConversations creates a history tracker keeping at most maxTurns
// exchanges per conversation and dropping conversations idle beyond maxIdle.
func NewConversations(maxTurns int, maxIdle time.Duration) *Conversations {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	if maxIdle <= 0 {
		maxIdle = time.Hour
	}
	return &Conversations{
		byID:     make(map[string]*conversation),
		maxTurns: maxTurns,
		maxIdle:  maxIdle,
	}
}

// Ensure returns the given ID, or a fresh one when empty.
func (c *Conversations) Ensure(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// Append records one user/assistant exchange.
func (c *Conversations) Append(id, userInput, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv := c.byID[id]
	if conv == nil {
		conv = &conversation{}
		c.byID[id] = conv
	}
	conv.turns = append(conv.turns,
		turn{Role: "user", Content: userInput},
		turn{Role: "assistant", Content: answer})
	if over := len(conv.turns) - c.maxTurns*2; over > 0 {
		conv.turns = conv.turns[over:]
	}
	conv.lastSeen = time.Now()
	c.evictIdle()
}

// History renders the conversation as prompt text, oldest first.
func (c *Conversations) History(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv := c.byID[id]
	if conv == nil {
		return ""
	}
	var b strings.Builder
	for _, t := range conv.turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return b.String()
}

// Reset discards the history of one conversation.
func (c *Conversations) Reset(id string) {
	c.mu.Lock()
	delete(c.byID, id)
	c.mu.Unlock()
}

// Len returns the number of live conversations.
func (c *Conversations) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

// evictIdle removes expired conversations. Called with the lock held.
func (c *Conversations) evictIdle() {
	cutoff := time.Now().Add(-c.maxIdle)
	for id, conv := range c.byID {
		if conv.lastSeen.Before(cutoff) {
			delete(c.byID, id)
		}
	}
}
