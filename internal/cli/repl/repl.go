package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultPrompt is printed before each line.
const DefaultPrompt = "jetkv> "

// Executor runs one parsed command line.
type Executor func(ctx context.Context, args []string) error

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	exec      Executor
	completer *Completer
	history   *History
}

// New creates a new REPL instance reading stdin and writing stdout.
// commands feeds tab completion.
func New(exec Executor, commands []string) *REPL {
	return &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		prompt:    DefaultPrompt,
		exec:      exec,
		completer: NewCompleter(commands),
		history:   NewHistory(),
	}
}

// SetIO replaces the input and output streams.
func (r *REPL) SetIO(in io.Reader, out io.Writer) {
	r.input = in
	r.output = out
}

// SetPrompt replaces the prompt.
func (r *REPL) SetPrompt(p string) {
	r.prompt = p
}

// SetHistory replaces the history store.
func (r *REPL) SetHistory(h *History) {
	r.history = h
}

// History returns the REPL history.
func (r *REPL) History() *History {
	return r.history
}

// Run starts the REPL loop. It returns nil on exit, quit or end of input.
func (r *REPL) Run(ctx context.Context) error {
	reader := bufio.NewReader(r.input)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt)

		raw, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if err != nil && raw == "" {
			fmt.Fprintln(r.output)
			return nil
		}

		raw = strings.TrimRight(raw, "\r\n")
		if strings.HasSuffix(raw, "\t") {
			r.printCompletions(strings.TrimLeft(raw, " \t"))
			continue
		}

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		r.history.Add(line)

		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		case "help":
			r.printHelp()
			continue
		case "history":
			r.printHistory()
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
	}
}

func (r *REPL) execute(ctx context.Context, line string) error {
	args, err := SplitArgs(line)
	if err != nil {
		return err
	}
	if r.exec == nil {
		return errors.New("no executor configured")
	}
	return r.exec(ctx, args)
}

func (r *REPL) printCompletions(raw string) {
	prefix := strings.TrimRight(raw, "\t")
	suggestions := r.completer.Complete(prefix)
	if len(suggestions) == 0 {
		fmt.Fprintln(r.output, "(no completions)")
		return
	}
	fmt.Fprintln(r.output, strings.Join(suggestions, "  "))
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.output, "Commands:")
	for _, c := range r.completer.Commands() {
		fmt.Fprintf(r.output, "  %s\n", c)
	}
	fmt.Fprintln(r.output, "End a line with TAB to list completions.")
}

func (r *REPL) printHistory() {
	entries := r.history.Entries()
	for i, e := range entries {
		fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
	}
}

// SplitArgs splits a command line on whitespace. Double-quoted words may use
// \", \\, \n, \r, \t and \xNN escapes; single-quoted words are literal.
func SplitArgs(line string) ([]string, error) {
	var (
		args   []string
		cur    strings.Builder
		inWord bool
		quote  byte
	)

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote == '\'':
			if ch == '\'' {
				quote = 0
			} else {
				cur.WriteByte(ch)
			}
		case quote == '"':
			switch ch {
			case '"':
				quote = 0
			case '\\':
				if i+1 >= len(line) {
					return nil, errors.New("unterminated escape")
				}
				i++
				switch line[i] {
				case 'n':
					cur.WriteByte('\n')
				case 'r':
					cur.WriteByte('\r')
				case 't':
					cur.WriteByte('\t')
				case 'x':
					if i+2 >= len(line) {
						return nil, errors.New("invalid \\x escape")
					}
					b, err := strconv.ParseUint(line[i+1:i+3], 16, 8)
					if err != nil {
						return nil, errors.New("invalid \\x escape")
					}
					cur.WriteByte(byte(b))
					i += 2
				default:
					cur.WriteByte(line[i])
				}
			default:
				cur.WriteByte(ch)
			}
		case ch == '"' || ch == '\'':
			quote = ch
			inWord = true
		case ch == ' ' || ch == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteByte(ch)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, errors.New("unbalanced quotes")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
