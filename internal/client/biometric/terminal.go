package biometric

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Error codes reported by TerminalPrompter in Result.Code.
const (
	CodeNotRecognized = 7
	CodeInputClosed   = 5
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// LineSource hands out whole input lines. console.LineReader implements it.
type LineSource interface {
	ReadLine(ctx context.Context) (string, error)
}

// TerminalPrompter emulates a biometric sensor on an interactive terminal:
// the user confirms with Enter or "y" and cancels with "n" or "c".
// It is the prompter used by the CLI on machines without a sensor.
// A cancelled prompt stops reading, so the pending line goes to the next
// reader of in.
type TerminalPrompter struct {
	in  LineSource
	fd  uintptr
	out io.Writer
}

func NewTerminalPrompter(in LineSource, stdin *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, fd: stdin.Fd(), out: out}
}

func (p *TerminalPrompter) CanAuthenticate() error {
	if !isTerminal(int(p.fd)) {
		return errors.New("standard input is not a terminal")
	}
	return nil
}

func (p *TerminalPrompter) Authenticate(info PromptInfo, done func(Result)) func() {
	var (
		mu        sync.Mutex
		cancelled bool
	)
	finish := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		if !cancelled {
			done(r)
		}
	}

	fmt.Fprintf(p.out, "%s\n%s\nTouch the sensor: press Enter to confirm, or type c to %s\n> ",
		info.Title, info.Subtitle, strings.ToLower(info.NegativeLabel))

	ctx, stop := context.WithCancel(context.Background())
	go func() {
		defer stop()
		line, err := p.in.ReadLine(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			finish(Failed(CodeInputClosed, "input closed"))
		default:
			finish(parseAnswer(line))
		}
	}()

	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		stop()
	}
}

func parseAnswer(line string) Result {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return Succeeded()
	case "c", "n", "no", "cancel":
		return Cancelled()
	default:
		return Failed(CodeNotRecognized, "fingerprint not recognized")
	}
}
