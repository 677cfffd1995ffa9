// Package services contains the application services of the IntelliHome
// client: password authentication and the biometric login orchestrator.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/intelliworks/intellihome/internal/client/biometric"
	"github.com/intelliworks/intellihome/internal/client/client"
	"github.com/intelliworks/intellihome/internal/client/keystore"
	"github.com/intelliworks/intellihome/internal/client/models"
	"github.com/intelliworks/intellihome/internal/client/repositories/credentials"
	"github.com/intelliworks/intellihome/internal/common"
	"github.com/intelliworks/intellihome/internal/cryptox"
	"github.com/intelliworks/intellihome/internal/logging"
)

// DefaultKeyAlias is the key store alias of the biometric login key.
const DefaultKeyAlias = "biometric_key"

// cleanupTimeout bounds the record and key cleanup that runs after a flow
// failed, including when the flow's context was cancelled.
const cleanupTimeout = 5 * time.Second

// ErrBusy is returned by DisableBiometricLogin while a flow is running.
var ErrBusy = errors.New("another authentication flow is in progress")

// KeyManager is the subset of keys.Manager used by the orchestrator.
type KeyManager interface {
	EnsureKey(ctx context.Context, alias string) error
	GetKey(ctx context.Context, alias string) (keystore.Handle, error)
	DeleteKey(ctx context.Context, alias string) error
}

// BiometricPrompt is implemented by biometric.Gate.
type BiometricPrompt interface {
	Prompt(ctx context.Context, title, subtitle string) (biometric.Result, error)
}

// BiometricAuthenticator runs the enrollment and biometric-login flows.
// Only one flow runs at a time; a concurrent attempt gets OutcomeBusy.
type BiometricAuthenticator struct {
	keys   KeyManager
	prompt BiometricPrompt
	store  credentials.Store
	remote client.IdentityClient
	log    logging.Logger
	alias  string

	newToken func() string

	flow  sync.Mutex
	state atomic.Int32
}

func NewBiometricAuthenticator(
	keys KeyManager,
	prompt BiometricPrompt,
	store credentials.Store,
	remote client.IdentityClient,
	log logging.Logger,
	alias string,
) *BiometricAuthenticator {
	if alias == "" {
		alias = DefaultKeyAlias
	}
	return &BiometricAuthenticator{
		keys:     keys,
		prompt:   prompt,
		store:    store,
		remote:   remote,
		log:      log.With("component", "biometric_auth"),
		alias:    alias,
		newToken: uuid.NewString,
	}
}

func (a *BiometricAuthenticator) State() State {
	return State(a.state.Load())
}

func (a *BiometricAuthenticator) setState(s State) {
	a.state.Store(int32(s))
}

// BiometricLoginAvailable reports whether a token record exists. A
// corrupted record counts as absent.
func (a *BiometricAuthenticator) BiometricLoginAvailable(ctx context.Context) (bool, error) {
	rec, err := a.store.Load(ctx)
	if errors.Is(err, credentials.ErrRecordCorrupted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// DisableBiometricLogin removes the token record. The key stays in the
// key store and is reused on the next enrollment.
func (a *BiometricAuthenticator) DisableBiometricLogin(ctx context.Context) error {
	if !a.flow.TryLock() {
		return ErrBusy
	}
	defer a.flow.Unlock()

	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	a.setState(StateIdle)
	a.log.Info(ctx, "biometric login disabled")
	return nil
}

// RegisterWithBiometrics creates the account with a biometric login token.
// If the user cancels the prompt the account is registered without one and
// the outcome is OutcomeBiometricCancelled carrying the new identity.
func (a *BiometricAuthenticator) RegisterWithBiometrics(ctx context.Context, reg models.Registration) Outcome {
	if !a.flow.TryLock() {
		return Outcome{Kind: OutcomeBusy}
	}
	defer a.flow.Unlock()

	out, cancelled := a.enroll(ctx, "Create your account", "Confirm your fingerprint to enable biometric login",
		func(ctx context.Context, token string) (*models.Identity, error) {
			reg.AllowBiometric = true
			reg.Token = token
			return a.remote.Register(ctx, reg)
		})
	if !cancelled {
		return out
	}

	reg.AllowBiometric = false
	reg.Token = ""
	id, err := a.remote.Register(ctx, reg)
	if err != nil {
		a.log.Warn(ctx, "registration without biometrics failed", "error", err)
		return remoteFailure(err)
	}
	a.log.Info(ctx, "registered without biometric login", "user_id", id.ID)
	return Outcome{Kind: OutcomeBiometricCancelled, Identity: id}
}

// EnableBiometricLogin enrolls biometric login for an account that is
// already logged in with its password.
func (a *BiometricAuthenticator) EnableBiometricLogin(ctx context.Context, session models.Session) Outcome {
	if !a.flow.TryLock() {
		return Outcome{Kind: OutcomeBusy}
	}
	defer a.flow.Unlock()

	out, cancelled := a.enroll(ctx, "Enable biometric login", "Confirm your fingerprint",
		func(ctx context.Context, token string) (*models.Identity, error) {
			if err := a.remote.BindToken(ctx, session.AccessToken, token); err != nil {
				return nil, err
			}
			id := session.Identity
			return &id, nil
		})
	if cancelled {
		return Outcome{Kind: OutcomeBiometricCancelled}
	}
	return out
}

// enroll runs the enrollment flow up to and including the remote call.
// cancelled is true when the user dismissed the prompt; nothing was
// written in that case and the state is back to Idle.
func (a *BiometricAuthenticator) enroll(
	ctx context.Context,
	title, subtitle string,
	send func(ctx context.Context, token string) (*models.Identity, error),
) (out Outcome, cancelled bool) {
	a.setState(StateIdle)

	if err := a.keys.EnsureKey(ctx, a.alias); err != nil {
		return a.fail(ctx, Outcome{Kind: OutcomeCipherInitError, Err: err}), false
	}
	key, o, ok := a.key(ctx)
	if !ok {
		return o, false
	}
	session, err := cryptox.BeginEncrypt(key)
	if err != nil {
		return a.fail(ctx, Outcome{Kind: OutcomeCipherInitError, Err: err}), false
	}

	if o, done := a.await(ctx, title, subtitle); done {
		if o.Kind == OutcomeBiometricCancelled && o.Err == nil {
			a.setState(StateIdle)
			return Outcome{}, true
		}
		return o, false
	}

	a.setState(StateEncrypting)
	token := a.newToken()
	ciphertext, err := session.Finalize([]byte(token))
	if err != nil {
		return a.fail(ctx, Outcome{Kind: OutcomeCipherInitError, Err: err}), false
	}

	previous, err := a.store.Load(ctx)
	if err != nil && !errors.Is(err, credentials.ErrRecordCorrupted) {
		return a.fail(ctx, Outcome{Kind: OutcomeStorageError, Err: err}), false
	}
	if err := a.store.Save(ctx, models.EncryptedTokenRecord{Ciphertext: ciphertext, IV: session.IV()}); err != nil {
		return a.fail(ctx, Outcome{Kind: OutcomeStorageError, Err: err}), false
	}

	a.setState(StateCallingRemote)
	id, err := send(ctx, token)
	if err != nil {
		a.restore(ctx, previous)
		return a.fail(ctx, remoteFailure(err)), false
	}

	a.setState(StateSucceeded)
	a.log.Info(ctx, "biometric login enabled", "user_id", id.ID)
	return Outcome{Kind: OutcomeSuccess, Identity: id}, false
}

// LoginWithBiometrics unlocks the stored token with a biometric prompt and
// resolves it to an identity. Without a stored record it returns
// OutcomeNotOffered without prompting or calling the server.
func (a *BiometricAuthenticator) LoginWithBiometrics(ctx context.Context) Outcome {
	if !a.flow.TryLock() {
		return Outcome{Kind: OutcomeBusy}
	}
	defer a.flow.Unlock()

	a.setState(StateIdle)

	rec, err := a.store.Load(ctx)
	if errors.Is(err, credentials.ErrRecordCorrupted) {
		a.clearRecord(ctx)
		return a.fail(ctx, Outcome{Kind: OutcomeDecryptFailure, Err: err})
	}
	if err != nil {
		return a.fail(ctx, Outcome{Kind: OutcomeStorageError, Err: err})
	}
	if rec == nil {
		return Outcome{Kind: OutcomeNotOffered}
	}

	key, o, ok := a.key(ctx)
	if !ok {
		if o.Kind == OutcomeKeyNotFound {
			a.clearRecord(ctx)
		}
		return o
	}
	session, err := cryptox.BeginDecrypt(key, rec.IV)
	if err != nil {
		return a.fail(ctx, Outcome{Kind: OutcomeCipherInitError, Err: err})
	}

	if o, done := a.await(ctx, "Log in", "Use your fingerprint to log in"); done {
		return o
	}

	a.setState(StateDecrypting)
	plain, err := session.Finalize(rec.Ciphertext)
	if err != nil {
		a.clearRecord(ctx)
		return a.fail(ctx, Outcome{Kind: OutcomeDecryptFailure, Err: err})
	}
	token := string(plain)
	common.WipeByteArray(plain)

	a.setState(StateCallingRemote)
	id, err := a.remote.LookupByToken(ctx, token)
	if err != nil {
		return a.fail(ctx, remoteFailure(err))
	}

	a.setState(StateSucceeded)
	a.log.Info(ctx, "biometric login succeeded", "user_id", id.ID)
	return Outcome{Kind: OutcomeSuccess, Identity: id}
}

// key fetches the biometric key. An invalidated key is deleted together
// with the token record, since neither can be used again.
func (a *BiometricAuthenticator) key(ctx context.Context) (keystore.Handle, Outcome, bool) {
	h, err := a.keys.GetKey(ctx, a.alias)
	switch {
	case err == nil:
		return h, Outcome{}, true
	case errors.Is(err, keystore.ErrKeyInvalidated):
		a.clearRecord(ctx)
		cctx, cancel := cleanupContext(ctx)
		if derr := a.keys.DeleteKey(cctx, a.alias); derr != nil {
			a.log.Error(ctx, "failed to delete invalidated key", "error", derr)
		}
		cancel()
		return nil, a.fail(ctx, Outcome{Kind: OutcomeKeyInvalidated, Err: err}), false
	case errors.Is(err, keystore.ErrKeyNotFound):
		return nil, a.fail(ctx, Outcome{Kind: OutcomeKeyNotFound, Err: err}), false
	default:
		return nil, a.fail(ctx, Outcome{Kind: OutcomeCipherInitError, Err: err}), false
	}
}

// await shows the prompt. done is false only when the user authenticated.
// A cancelled context moves the state back to Idle.
func (a *BiometricAuthenticator) await(ctx context.Context, title, subtitle string) (Outcome, bool) {
	a.setState(StateAwaitingBiometric)

	res, err := a.prompt.Prompt(ctx, title, subtitle)
	if err != nil {
		if ctx.Err() != nil {
			a.setState(StateIdle)
			a.log.Info(ctx, "biometric prompt abandoned", "reason", err)
			return Outcome{Kind: OutcomeBiometricCancelled, Err: err}, true
		}
		return a.fail(ctx, Outcome{Kind: OutcomeBiometricError, Err: err}), true
	}

	switch res.Status {
	case biometric.StatusSucceeded:
		return Outcome{}, false
	case biometric.StatusCancelled:
		a.setState(StateFailed)
		a.log.Info(ctx, "biometric prompt cancelled")
		return Outcome{Kind: OutcomeBiometricCancelled}, true
	default:
		err := fmt.Errorf("biometric failure %d: %s", res.Code, res.Message)
		return a.fail(ctx, Outcome{Kind: OutcomeBiometricError, Err: err}), true
	}
}

func (a *BiometricAuthenticator) fail(ctx context.Context, o Outcome) Outcome {
	a.setState(StateFailed)
	a.log.Warn(ctx, "biometric flow failed", "outcome", o.Kind.String(), "error", o.Err)
	return o
}

// cleanupContext detaches cleanup writes from the flow's cancellation, so
// an interrupted flow still leaves the store consistent.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

func (a *BiometricAuthenticator) clearRecord(ctx context.Context) {
	cctx, cancel := cleanupContext(ctx)
	defer cancel()

	if err := a.store.Clear(cctx); err != nil {
		a.log.Error(ctx, "failed to clear token record", "error", err)
	}
}

// restore puts back the record that was in place before an enrollment
// whose remote step failed.
func (a *BiometricAuthenticator) restore(ctx context.Context, previous *models.EncryptedTokenRecord) {
	if previous == nil {
		a.clearRecord(ctx)
		return
	}
	cctx, cancel := cleanupContext(ctx)
	defer cancel()

	if err := a.store.Save(cctx, *previous); err != nil {
		a.log.Error(ctx, "failed to restore previous token record", "error", err)
	}
}

// remoteFailure folds an identity client error into an outcome.
func remoteFailure(err error) Outcome {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return Outcome{Kind: OutcomeValidationFailed, Err: err, Validation: verr.Fields}
	case errors.Is(err, client.ErrNotFound), errors.Is(err, client.ErrUnauthorized):
		return Outcome{Kind: OutcomeInvalidCredentials, Err: err}
	case errors.Is(err, client.ErrAccountLocked):
		return Outcome{Kind: OutcomeAccountLocked, Err: err}
	default:
		return Outcome{Kind: OutcomeNetworkError, Err: err}
	}
}
