package cli

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/intelliworks/intellihome/internal/client/models"
)

func TestGetStatus(t *testing.T) {
	a := &App{}
	if got := a.getStatus(); got != "" {
		t.Fatalf("want empty status, got %q", got)
	}

	a.session = &models.Session{Identity: models.Identity{Username: "alice"}}
	if got, want := a.getStatus(), "(alice)"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestRoot_NeverStartsFingerprintLoginByItself(t *testing.T) {
	captureOutput(t)

	auth := &fakeAuth{remembered: "alice", pingErr: errors.New("connection refused")}
	bio := &fakeBiometric{available: true}
	a, out := newTestApp("help\nexit\n", auth, bio)

	a.Root(context.Background())

	if bio.loginCalls != 0 {
		t.Fatalf("fingerprint login started without a command")
	}
	if !strings.Contains(out.String(), "Type 'fp' to use it.") {
		t.Fatalf("missing fingerprint hint:\n%s", out.String())
	}
}

func TestRoot_FingerprintOnCommand(t *testing.T) {
	captureOutput(t)

	bio := &fakeBiometric{}
	a, out := newTestApp("fp\nexit\n", &fakeAuth{}, bio)

	a.Root(context.Background())

	if bio.loginCalls != 1 {
		t.Fatalf("loginCalls = %d, want 1", bio.loginCalls)
	}
	if strings.Contains(out.String(), "Type 'fp'") {
		t.Fatalf("hint shown although fingerprint login is not set up")
	}
}

func TestRun_ClosesServices(t *testing.T) {
	captureOutput(t)

	auth := &fakeAuth{}
	a, _ := newTestApp("exit\n", auth, &fakeBiometric{})

	a.Run(context.Background())

	if !auth.closed {
		t.Fatalf("identity client not closed")
	}
}
