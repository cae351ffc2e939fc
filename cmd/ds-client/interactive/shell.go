// Package interactive provides the interactive command-line interface
// for ds-client.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/deepstreamio/deepstream-go/pkg/connection"
	"github.com/deepstreamio/deepstream-go/pkg/wire"
)

// Client is the part of client.Client the shell drives.
type Client interface {
	Login(params map[string]any, cb connection.LoginCallback) error
	State() connection.State
	ConnectionID() string
}

// Shell handles interactive mode for ds-client.
type Shell struct {
	client Client
	rl     *readline.Instance
	out    io.Writer
}

// New creates a shell reading commands from the terminal.
func New(c Client) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "deepstream> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{client: c, rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the command loop. It returns when the user quits or ctx is
// cancelled; quitting calls cancel.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Execute(line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the shell should
// exit.
func (s *Shell) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "login", "l":
		s.cmdLogin(args)
	case "state", "s":
		fmt.Fprintf(s.out, "State: %s (connection %s)\n", s.client.State(), s.client.ConnectionID())
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
deepstream Client Commands:
  login [key=value ...]  - Authenticate (or: login {"user":"x"})
  state                  - Show the connection state
  help                   - Show this help
  quit                   - Close the connection and exit`)
}

func (s *Shell) cmdLogin(args []string) {
	params, err := ParseParams(args)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid parameters: %v\n", err)
		return
	}

	out := s.out
	err = s.client.Login(params, connection.LoginFuncs{
		Success: func(data map[string]any) {
			fmt.Fprintf(out, "Login succeeded (data: %v)\n", data)
		},
		Failed: func(event wire.Event, message string) {
			if message == "" {
				fmt.Fprintf(out, "Login failed: %s\n", event)
				return
			}
			fmt.Fprintf(out, "Login failed: %s (%s)\n", event, message)
		},
	})
	if err != nil {
		fmt.Fprintf(s.out, "Login not sent: %v\n", err)
	}
}

// ParseParams builds authentication parameters from command arguments.
// A single argument starting with "{" is read as a JSON object. Otherwise
// each argument is key=value, where a value that parses as JSON (numbers,
// booleans, quoted strings) keeps its type and anything else is a string.
func ParseParams(args []string) (map[string]any, error) {
	params := map[string]any{}
	if len(args) == 0 {
		return params, nil
	}

	joined := strings.Join(args, " ")
	if strings.HasPrefix(joined, "{") {
		return wire.UnmarshalData(joined)
	}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		params[key] = parseValue(value)
	}
	return params, nil
}

func parseValue(value string) any {
	wrapped, err := wire.UnmarshalData(`{"v":` + value + `}`)
	if err != nil {
		return value
	}
	return wrapped["v"]
}
