// Package cli provides the interactive command-line interface for Mindnoscape.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/session"
	"mindnoscape/editor/internal/ui"
)

// CLI runs commands typed by one user in a dedicated session.
type CLI struct {
	sessions  *session.SessionManager
	sessionID string
	ui        *ui.UI
	showIDs   bool
	logger    *log.Logger
}

// NewCLI opens a session for the CLI user.
func NewCLI(sessions *session.SessionManager, u *ui.UI, logger *log.Logger) (*CLI, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if sessions == nil || u == nil {
		return nil, fmt.Errorf("cli requires a session manager and a UI")
	}
	id, err := sessions.SessionAdd()
	if err != nil {
		return nil, fmt.Errorf("failed to start CLI session: %w", err)
	}
	logger.Info(context.Background(), "CLI session started", log.Fields{"sessionID": id})
	return &CLI{sessions: sessions, sessionID: id, ui: u, logger: logger}, nil
}

// Prompt shows the open mindmap, if any.
func (c *CLI) Prompt() string {
	s, ok := c.sessions.SessionGet(c.sessionID)
	if !ok {
		return "> "
	}
	if m := s.Mindmap(); m != nil {
		return m.Name + " > "
	}
	return "> "
}

// ParseArgs splits input on spaces, keeping double-quoted text together.
func ParseArgs(input string) []string {
	var args []string
	var currentArg strings.Builder
	inQuotes, quoted := false, false

	flush := func() {
		if currentArg.Len() > 0 || quoted {
			args = append(args, currentArg.String())
			currentArg.Reset()
		}
		quoted = false
	}
	for _, char := range input {
		switch {
		case char == '"':
			inQuotes = !inQuotes
			quoted = true
		case (char == ' ' || char == '\t') && !inQuotes:
			flush()
		default:
			currentArg.WriteRune(char)
		}
	}
	flush()
	return args
}

// ExecuteLine runs one input line. It reports true when the user asked to leave.
func (c *CLI) ExecuteLine(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false, nil
	}
	args := ParseArgs(line)

	switch strings.ToLower(args[0]) {
	case "help":
		scope := ""
		if len(args) > 1 {
			scope = strings.ToLower(args[1])
		}
		c.ui.ShowHelp(session.Commands(), scope)
		return false, nil
	case "exit", "quit":
		args = []string{"system", strings.ToLower(args[0])}
	case "ids":
		c.showIDs = !c.showIDs
		c.ui.Message("Node ids %s", map[bool]string{true: "shown", false: "hidden"}[c.showIDs])
		return false, nil
	}

	cmd := model.Command{Scope: strings.ToLower(args[0])}
	if len(args) > 1 {
		cmd.Operation = strings.ToLower(args[1])
		cmd.Args = args[2:]
	}

	result, err := c.sessions.SessionRun(ctx, c.sessionID, cmd)
	if err != nil {
		return false, err
	}
	if cmd.Scope == "system" {
		return true, nil
	}
	c.ui.Result(result, c.showIDs)
	return false, nil
}

// ExecuteScript runs every line of r, stopping at the first failing command.
func (c *CLI) ExecuteScript(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		exit, err := c.ExecuteLine(ctx, scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if exit {
			return nil
		}
	}
	return scanner.Err()
}

// Run reads commands until exit, EOF or ctx is done.
func (c *CLI) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.Prompt(),
		HistoryFile:     historyFile,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer rl.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			rl.Close()
		case <-stop:
		}
	}()

	c.ui.Title("Welcome to Mindnoscape!")
	c.ui.Message("Type 'help' for a list of commands or 'exit' to quit.")

	for {
		rl.SetPrompt(c.Prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		exit, err := c.ExecuteLine(ctx, line)
		if err != nil {
			c.ui.Error("%v", err)
			continue
		}
		if exit {
			return nil
		}
	}
}

// Close ends the CLI session.
func (c *CLI) Close() {
	c.sessions.SessionDelete(c.sessionID)
}

// completer offers every scope and operation for tab completion.
func completer() *readline.PrefixCompleter {
	ops := map[string][]readline.PrefixCompleterInterface{}
	for _, cmd := range session.Commands() {
		ops[cmd.Scope] = append(ops[cmd.Scope], readline.PcItem(cmd.Operation))
	}
	scopes := make([]string, 0, len(ops))
	for scope := range ops {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	items := []readline.PrefixCompleterInterface{readline.PcItem("help"), readline.PcItem("ids")}
	for _, scope := range scopes {
		items = append(items, readline.PcItem(scope, ops[scope]...))
	}
	return readline.NewPrefixCompleter(items...)
}
