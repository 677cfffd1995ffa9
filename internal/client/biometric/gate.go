// Package biometric wraps the platform biometric prompt.
//
// Gate turns the callback-based Prompter port into a blocking call that
// honours context cancellation, and allows a single pending prompt at a time.
package biometric

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/intelliworks/intellihome/internal/logging"
)

var (
	// ErrPromptPending is returned when a prompt is already on screen.
	ErrPromptPending = errors.New("biometric: prompt already pending")

	// ErrUnavailable is returned when the device cannot authenticate.
	ErrUnavailable = errors.New("biometric: authentication unavailable")
)

type Status int

const (
	StatusSucceeded Status = iota
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the terminal outcome of one prompt. Code and Message are set
// by the platform for StatusFailed only.
type Result struct {
	Status  Status
	Code    int
	Message string
}

func Succeeded() Result { return Result{Status: StatusSucceeded} }

func Cancelled() Result { return Result{Status: StatusCancelled} }

func Failed(code int, message string) Result {
	return Result{Status: StatusFailed, Code: code, Message: message}
}

// PromptInfo is what the platform shows to the user.
type PromptInfo struct {
	Title         string
	Subtitle      string
	NegativeLabel string
}

// Prompter is the platform port.
type Prompter interface {
	// CanAuthenticate returns nil when biometric authentication can be
	// offered on this device.
	CanAuthenticate() error
	// Authenticate shows the prompt and calls done exactly once with the
	// result, unless the returned cancel func is called first.
	Authenticate(info PromptInfo, done func(Result)) (cancel func())
}

type Gate struct {
	prompter Prompter
	log      logging.Logger
	pending  atomic.Bool
}

func NewGate(p Prompter, log logging.Logger) *Gate {
	return &Gate{prompter: p, log: log.With("component", "biometric")}
}

// Available reports whether the platform can authenticate.
func (g *Gate) Available() bool {
	return g.prompter.CanAuthenticate() == nil
}

// Prompt shows the biometric prompt and waits for its result. If ctx is
// cancelled first, the platform prompt is cancelled and ctx.Err() returned.
func (g *Gate) Prompt(ctx context.Context, title, subtitle string) (Result, error) {
	if !g.pending.CompareAndSwap(false, true) {
		return Result{}, ErrPromptPending
	}
	defer g.pending.Store(false)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := g.prompter.CanAuthenticate(); err != nil {
		g.log.Warn(ctx, "biometric authentication unavailable", "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ch := make(chan Result, 1)
	var once sync.Once
	cancel := g.prompter.Authenticate(PromptInfo{Title: title, Subtitle: subtitle, NegativeLabel: "Cancel"}, func(r Result) {
		once.Do(func() { ch <- r })
	})

	select {
	case r := <-ch:
		switch r.Status {
		case StatusSucceeded:
			g.log.Debug(ctx, "biometric prompt succeeded")
		case StatusCancelled:
			g.log.Info(ctx, "biometric prompt cancelled by user")
		default:
			g.log.Warn(ctx, "biometric prompt failed", "code", r.Code, "message", r.Message)
		}
		return r, nil
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		g.log.Info(ctx, "biometric prompt dismissed", "reason", ctx.Err())
		return Result{}, ctx.Err()
	}
}
