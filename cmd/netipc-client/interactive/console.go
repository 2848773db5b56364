// Package interactive provides the interactive command-line interface
// for the NETIPC reference client.
package interactive

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"

	"github.com/netipc-protocol/netipc-go/pkg/session"
)

// Console handles interactive mode for netipc-client.
type Console struct {
	sup   *session.Supervisor
	kicks func() uint64
	rl    *readline.Instance
}

// New creates a new interactive console for the supervisor. kicks
// reports the number of queue notifications received so far.
func New(sup *session.Supervisor, kicks func() uint64) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "netipc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{
		sup:   sup,
		kicks: kicks,
		rl:    rl,
	}, nil
}

// Run starts the interactive command loop. It returns when the user
// quits; the caller closes the supervisor.
func (c *Console) Run() {
	defer c.rl.Close()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status", "s":
			c.cmdStatus()

		case "session":
			c.cmdSession()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
NETIPC Client Commands:
  status   - Show session state, link status, and kick count
  session  - Show the current session ID and memory size
  help     - Show this help
  quit     - Exit client`)
}

// cmdStatus shows the session state summary.
func (c *Console) cmdStatus() {
	w := c.rl.Stdout()
	fmt.Fprintf(w, "State:   %s\n", c.sup.State())
	fmt.Fprintf(w, "Link:    %s\n", linkString(c.sup.LinkUp()))
	fmt.Fprintf(w, "Kicks:   %d\n", c.kicks())
	if !c.sup.IsConnected() {
		fmt.Fprintf(w, "Retries: %d since last connection\n", c.sup.RetryAttempts())
	}
}

// cmdSession shows identifiers of the current session.
func (c *Console) cmdSession() {
	w := c.rl.Stdout()
	id := c.sup.SessionID()
	if id == "" {
		fmt.Fprintln(w, "No session established yet")
		return
	}
	fmt.Fprintf(w, "Session: %s\n", id)
	fmt.Fprintf(w, "Memory:  %d bytes\n", c.sup.MemorySize())
}

func linkString(up bool) string {
	if up {
		return "UP"
	}
	return "DOWN"
}
