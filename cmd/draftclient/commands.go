package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/DoyleJ11/lol-draft-client/internal/champion"
	"github.com/DoyleJ11/lol-draft-client/internal/draft"
	"github.com/DoyleJ11/lol-draft-client/internal/session"
)

const helpText = `commands:
  ready            ready up
  hover <champ>    show a champion for the current ban or pick
  lock <champ>     lock in a champion
  status           print the current phase
  search <term>    list matching champions
  help             this text
  quit             leave`

// actor is the slice of *session.Session the command loop drives.
type actor interface {
	SubmitReady() bool
	Hover(k champion.Key) bool
	Lock(k champion.Key) bool
	View() session.View
}

// runCommand executes one input line and returns the text to show the user.
// quit reports whether the user asked to leave.
func runCommand(a actor, cat *champion.Catalog, line string) (reply string, quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	cmd, arg := strings.ToLower(fields[0]), strings.Join(fields[1:], " ")

	switch cmd {
	case "ready":
		if !a.SubmitReady() {
			return "not waiting on your ready", false
		}
		return "ready sent", false

	case "hover", "lock":
		if arg == "" {
			return "usage: " + cmd + " <champion>", false
		}
		k, err := cat.Resolve(arg)
		if err != nil {
			return err.Error(), false
		}
		submit := a.Hover
		if cmd == "lock" {
			submit = a.Lock
		}
		if !submit(k) {
			return fmt.Sprintf("%s not available right now", cat.Name(k)), false
		}
		return fmt.Sprintf("%s %s", cmd, cat.Name(k)), false

	case "status":
		return describe(a.View(), cat), false

	case "search":
		if cat == nil {
			return "champion data not loaded", false
		}
		var b strings.Builder
		for _, ch := range cat.Search(arg) {
			fmt.Fprintf(&b, "%-4s %s\n", ch.Key, ch.Name)
		}
		if b.Len() == 0 {
			return "no match", false
		}
		return strings.TrimRight(b.String(), "\n"), false

	case "help", "?":
		return helpText, false

	case "quit", "exit":
		return "", true

	default:
		return fmt.Sprintf("unknown command %q, try help", cmd), false
	}
}

func describe(v session.View, cat *champion.Catalog) string {
	if v.Snapshot == nil || v.Summary == nil {
		return fmt.Sprintf("session %s, connection %s", v.State, v.Connection.State)
	}
	s := v.Snapshot
	line := fmt.Sprintf("%s | %s vs %s | %s", s.Phase, s.Blue.Name, s.Red.Name, v.Summary.ActionLabel)
	if s.TimerActive {
		line += fmt.Sprintf(" | %ds", s.TimeRemaining)
	}
	if ref := v.Summary.NextActor; ref != nil {
		line += fmt.Sprintf(" | next: %s %s %d", ref.Side, ref.Kind, ref.Index+1)
	}
	if taken := s.Disallowed(); len(taken) > 0 {
		names := make([]string, len(taken))
		for i, k := range taken {
			names[i] = cat.Name(k)
		}
		line += " | out: " + strings.Join(names, ", ")
	}
	if v.Side == draft.SideNone {
		line += " | spectating"
	}
	return line
}

// commandLoop reads lines from in until EOF, quit or ctx is done. It reports
// whether the user asked to quit.
func commandLoop(ctx context.Context, a actor, cat *champion.Catalog, in io.Reader, out io.Writer) bool {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return false
		case line, ok := <-lines:
			if !ok {
				return false
			}
			reply, quit := runCommand(a, cat, line)
			if reply != "" {
				fmt.Fprintln(out, reply)
			}
			if quit {
				return true
			}
		}
	}
}
