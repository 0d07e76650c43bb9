package intent

import "strings"

// CommandKind identifies a recognized slash command.
type CommandKind int

const (
	// CommandNone means the input is not a command.
	CommandNone CommandKind = iota
	// CommandNewConversation resets conversation state before handling the
	// remainder of the input.
	CommandNewConversation
	// CommandForceConversation routes the remainder straight to conversation
	// handling, skipping retrieval entirely.
	CommandForceConversation
)

// commandAliases maps each accepted spelling (lowercase) to its kind.
var commandAliases = map[string]CommandKind{
	"/new":   CommandNewConversation,
	"/reset": CommandNewConversation,
	"/clear": CommandNewConversation,
	"/chat":  CommandForceConversation,
	"/talk":  CommandForceConversation,
}

// TryParseCommand checks whether the input begins with a recognized slash
// command. Matching is case-insensitive; the payload is the remainder with
// surrounding whitespace trimmed. Inputs that merely start with "/" but match
// no alias are not commands.
func TryParseCommand(input string) (kind CommandKind, payload string, ok bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return CommandNone, "", false
	}
	word := trimmed
	rest := ""
	if i := strings.IndexFunc(trimmed, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }); i >= 0 {
		word = trimmed[:i]
		rest = trimmed[i:]
	}
	kind, found := commandAliases[strings.ToLower(word)]
	if !found {
		return CommandNone, "", false
	}
	return kind, strings.TrimSpace(rest), true
}
