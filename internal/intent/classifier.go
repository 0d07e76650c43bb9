// Package intent classifies incoming queries as conversation or information
// requests, and recognizes slash commands.
package intent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/internal/provider"
	"github.com/hyperjump/toiawase/pkg/utils"
)

// greetings and smalltalk phrases that mark a query conversational on sight.
var conversationMarkers = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	"how are you", "who are you", "what are you", "what can you do",
	"thank you", "thanks", "bye", "goodbye", "see you",
	"nice to meet you", "help me", "what is your name",
}

// interrogatives and request verbs that mark an information request.
var informationMarkers = []string{
	"what", "which", "when", "where", "who", "whose", "why", "how",
	"show", "list", "find", "search", "count", "give", "get", "tell",
	"compare", "summarize", "explain", "describe", "calculate", "average",
	"total", "how many", "how much",
}

// Classifier decides whether a query is conversational. A fast heuristic
// answers the obvious cases; ambiguous ones escalate to the text provider,
// whose answer is authoritative. If the provider fails, the heuristic's best
// guess stands so classification never blocks a query.
type Classifier struct {
	provider provider.Provider
	logger   *zap.Logger
}

// NewClassifier creates a Classifier. The provider may be nil, in which case
// ambiguous queries resolve by heuristic alone.
func NewClassifier(p provider.Provider, logger *zap.Logger) *Classifier {
	return &Classifier{provider: p, logger: logger}
}

// Classify returns the intent for a query. Confidence reflects which stage
// decided: provider answers carry 0.9, clear heuristics 0.8, and heuristic
// best guesses after escalation failure 0.5.
func (c *Classifier) Classify(ctx context.Context, query string) *models.QueryIntent {
	tokens := utils.Tokenize(query)
	intent := &models.QueryIntent{Query: query, Tokens: tokens}

	decision, guess := heuristic(query, tokens)
	switch decision {
	case models.DecisionConversation:
		intent.IsConversation = true
		intent.Confidence = 0.8
		return intent
	case models.DecisionInformation:
		intent.IsConversation = false
		intent.Confidence = 0.8
		return intent
	}

	if c.provider != nil {
		isConv, err := c.askProvider(ctx, query)
		if err == nil {
			intent.IsConversation = isConv
			intent.Confidence = 0.9
			return intent
		}
		c.logger.Warn("intent escalation failed, using heuristic guess", zap.Error(err))
	}
	intent.IsConversation = guess
	intent.Confidence = 0.5
	return intent
}

// heuristic performs the fast pass. The second return value is the best
// guess used when the decision is unknown and escalation fails.
func heuristic(query string, tokens []string) (models.HeuristicDecision, bool) {
	lower := strings.ToLower(utils.NormalizeText(query))

	for _, m := range conversationMarkers {
		if lower == m || strings.HasPrefix(lower, m+" ") || strings.HasPrefix(lower, m+",") ||
			strings.HasPrefix(lower, m+"!") || strings.HasPrefix(lower, m+"?") {
			return models.DecisionConversation, true
		}
	}

	for _, m := range informationMarkers {
		if strings.HasPrefix(lower, m+" ") || lower == m {
			return models.DecisionInformation, false
		}
	}
	if strings.HasSuffix(lower, "?") && len(tokens) >= 3 {
		return models.DecisionInformation, false
	}

	// Very short inputs without an interrogative lean conversational.
	if len(tokens) <= 2 {
		return models.DecisionUnknown, true
	}
	return models.DecisionUnknown, false
}

const escalationPrompt = `Decide if the following user input is smalltalk/conversation or a request for information from documents or databases.
Answer with exactly one word: "conversation" or "information".

Input: %s`

func (c *Classifier) askProvider(ctx context.Context, query string) (bool, error) {
	answer, err := c.provider.GenerateText(ctx, fmt.Sprintf(escalationPrompt, query))
	if err != nil {
		return false, err
	}
	normalized := strings.ToLower(strings.TrimSpace(answer))
	return strings.HasPrefix(normalized, "conversation"), nil
}
