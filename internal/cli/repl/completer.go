package repl

import (
	"sort"
	"strings"
)

// localCommands are handled by the REPL itself.
var localCommands = []string{"exit", "help", "history", "quit"}

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over the given server command names
// plus the REPL's local commands. Matching is case-insensitive.
func NewCompleter(commands []string) *Completer {
	seen := make(map[string]struct{}, len(commands)+len(localCommands))
	all := make([]string, 0, len(commands)+len(localCommands))
	for _, c := range append(append([]string(nil), commands...), localCommands...) {
		c = strings.ToLower(c)
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		all = append(all, c)
	}
	sort.Strings(all)
	return &Completer{commands: all}
}

// Commands returns every completable command.
func (c *Completer) Commands() []string {
	return append([]string(nil), c.commands...)
}

// Complete returns completion suggestions for the given prefix. Only the
// first word of the line is completed.
func (c *Completer) Complete(prefix string) []string {
	if strings.ContainsAny(prefix, " \t") {
		return nil
	}
	prefix = strings.ToLower(prefix)

	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
