package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intelliworks/intellihome/internal/client/biometric"
	"github.com/intelliworks/intellihome/internal/client/client"
	"github.com/intelliworks/intellihome/internal/client/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ---- fake identity client ----

// fakeClient behaves like a small identity server: registered tokens can
// be looked up afterwards.
type fakeClient struct {
	mu sync.Mutex

	RegisterErr error
	LoginErr    error
	LookupErr   error
	BindErr     error
	PingErr     error
	ResetErr    error
	QuestionErr error
	CloseErr    error

	// RegisterHook and BindHook run before the call completes; a hook
	// that cancels the caller's context makes the call fail with ctx.Err().
	RegisterHook func()
	BindHook     func()

	Registrations []models.Registration
	Lookups       []string
	Binds         []string
	BindAccess    []string
	LastLogin     [2]string
	LastReset     [3]string

	tokens map[string]models.Identity
	nextID int
}

func newFakeClient() *fakeClient {
	return &fakeClient{tokens: map[string]models.Identity{}}
}

func (f *fakeClient) Register(ctx context.Context, reg models.Registration) (*models.Identity, error) {
	if f.RegisterHook != nil {
		f.RegisterHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Registrations = append(f.Registrations, reg)
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.nextID++
	id := models.Identity{ID: "user-" + strconv.Itoa(f.nextID), Username: reg.Username, FirstName: reg.FirstName}
	if reg.AllowBiometric {
		f.tokens[reg.Token] = id
	}
	return &id, nil
}

func (f *fakeClient) Login(_ context.Context, identifier, password string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastLogin = [2]string{identifier, password}
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	return &models.Session{Identity: models.Identity{ID: "user-1", Username: identifier}, AccessToken: "jwt"}, nil
}

func (f *fakeClient) LookupByToken(_ context.Context, token string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lookups = append(f.Lookups, token)
	if f.LookupErr != nil {
		return nil, f.LookupErr
	}
	id, ok := f.tokens[token]
	if !ok {
		return nil, client.ErrNotFound
	}
	return &id, nil
}

func (f *fakeClient) BindToken(ctx context.Context, accessToken, token string) error {
	if f.BindHook != nil {
		f.BindHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Binds = append(f.Binds, token)
	f.BindAccess = append(f.BindAccess, accessToken)
	if f.BindErr != nil {
		return f.BindErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.tokens[token] = models.Identity{ID: "user-1", Username: "alice"}
	return nil
}

func (f *fakeClient) RecoveryQuestion(_ context.Context, identifier string) (*models.RecoveryQuestion, error) {
	if f.QuestionErr != nil {
		return nil, f.QuestionErr
	}
	return &models.RecoveryQuestion{Identifier: identifier, QuestionID: 1, Text: "First pet?"}, nil
}

func (f *fakeClient) ResetPassword(_ context.Context, identifier, newPassword, answer string) error {
	f.LastReset = [3]string{identifier, newPassword, answer}
	return f.ResetErr
}

func (f *fakeClient) Ping(context.Context) error { return f.PingErr }

func (f *fakeClient) Close() error { return f.CloseErr }

func (f *fakeClient) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Lookups)
}

// ---- fake biometric prompt ----

type fakePrompt struct {
	mu      sync.Mutex
	results []biometric.Result
	err     error
	calls   int

	// block, when set, holds the prompt open until closed or ctx ends.
	block   chan struct{}
	entered chan struct{}
}

// answer queues results; an empty queue answers Succeeded.
func (f *fakePrompt) answer(rs ...biometric.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, rs...)
}

func (f *fakePrompt) Prompt(ctx context.Context, _, _ string) (biometric.Result, error) {
	f.mu.Lock()
	f.calls++
	r := biometric.Succeeded()
	if len(f.results) > 0 {
		r, f.results = f.results[0], f.results[1:]
	}
	block, entered, err := f.block, f.entered, f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return biometric.Result{}, ctx.Err()
		}
	}
	return r, err
}

func (f *fakePrompt) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
