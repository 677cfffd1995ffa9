package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/intelliworks/intellihome/internal/client/client"
	"github.com/intelliworks/intellihome/internal/client/models"
	"github.com/intelliworks/intellihome/internal/client/services"
	"github.com/intelliworks/intellihome/internal/common"
	"github.com/intelliworks/intellihome/internal/logging"
)

// getSimpleText, getPassword and getConfirmation are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText   = GetSimpleText
	getPassword     = GetPassword
	getConfirmation = GetConfirmation
)

const birthDateLayout = "2006-01-02"

func (a *App) logger() logging.Logger {
	if a.log == nil {
		return logging.NewNopLogger()
	}
	return a.log
}

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.writer())
}

func (a *App) askPassword() (string, error) {
	pw, err := getPassword(a.writer())
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.writer(), args...)
}

// Register collects the account fields, optionally enrolling biometric
// login on the way. Input errors are returned; rejected registrations are
// reported to the user and yield nil.
func (a *App) Register(ctx context.Context) error {
	reg, err := a.readRegistration()
	if err != nil {
		return err
	}
	if reg == nil {
		return nil
	}

	withFingerprint, err := getConfirmation(a.reader, "Enable fingerprint login on this device?", a.writer())
	if err != nil {
		return err
	}

	if !withFingerprint {
		identity, err := a.authService.Register(ctx, *reg)
		if err != nil {
			a.reportError(ctx, err)
			return nil
		}
		a.println(fmt.Sprintf("Registered %s. You can log in now.", identity.Username))
		return nil
	}

	o := a.biometric.RegisterWithBiometrics(ctx, *reg)
	switch {
	case o.Kind == services.OutcomeSuccess:
		a.println(fmt.Sprintf("Registered %s. Fingerprint login is enabled.", o.Identity.Username))
	case o.Kind == services.OutcomeBiometricCancelled && o.Identity != nil:
		a.println(o.Message())
		a.println(fmt.Sprintf("Registered %s without fingerprint login.", o.Identity.Username))
	default:
		a.reportOutcome(ctx, o)
	}
	return nil
}

// readRegistration returns nil, nil when the user typed something that
// cannot be parsed; the reason has already been printed.
func (a *App) readRegistration() (*models.Registration, error) {
	var reg models.Registration
	var err error

	text := []struct {
		prompt string
		dst    *string
	}{
		{"Username", &reg.Username},
		{"E-mail", &reg.Email},
		{"Phone", &reg.Phone},
		{"First name", &reg.FirstName},
		{"Last name", &reg.LastName},
	}
	for _, f := range text {
		if *f.dst, err = a.ask(f.prompt); err != nil {
			return nil, err
		}
	}

	birth, err := a.ask("Birth date (YYYY-MM-DD)")
	if err != nil {
		return nil, err
	}
	if reg.BirthDate, err = time.Parse(birthDateLayout, birth); err != nil {
		a.println("Invalid birth date, expected YYYY-MM-DD.")
		return nil, nil
	}

	if reg.Address, err = a.ask("Address"); err != nil {
		return nil, err
	}
	if reg.Password, err = a.askPassword(); err != nil {
		return nil, err
	}

	a.println("Recovery questions:")
	for _, id := range common.RecoveryQuestionIDs() {
		a.println(fmt.Sprintf("  %d. %s", id, common.RecoveryQuestions[id]))
	}
	qid, err := a.ask("Recovery question number")
	if err != nil {
		return nil, err
	}
	if reg.RecoveryQuestionID, err = strconv.Atoi(qid); err != nil {
		a.println("Invalid question number.")
		return nil, nil
	}
	if reg.RecoveryAnswer, err = a.ask("Answer"); err != nil {
		return nil, err
	}

	return &reg, nil
}

// Login authenticates with a password. The remembered identifier, if any,
// is offered as the default.
func (a *App) Login(ctx context.Context) error {
	remembered, err := a.authService.RememberedIdentifier(ctx)
	if err != nil {
		a.logger().Warn(ctx, "reading remembered identifier", "error", err)
	}

	prompt := "Enter username, e-mail or phone"
	if remembered != "" {
		prompt += fmt.Sprintf(" [%s]", remembered)
	}
	identifier, err := a.ask(prompt)
	if err != nil {
		return err
	}
	if identifier == "" {
		identifier = remembered
	}

	password, err := a.askPassword()
	if err != nil {
		return err
	}

	remember, err := getConfirmation(a.reader, "Remember me on this device?", a.writer())
	if err != nil {
		return err
	}

	session, err := a.authService.Login(ctx, identifier, password, remember)
	if err != nil {
		a.reportError(ctx, err)
		return nil
	}

	a.session = session
	a.println(fmt.Sprintf("Welcome, %s.", session.Identity.DisplayName()))

	if ok, err := a.biometric.BiometricLoginAvailable(ctx); err == nil && !ok {
		a.println("Type 'enable-fp' to log in with your fingerprint next time.")
	}
	return nil
}

// BiometricLogin runs the fingerprint login flow. It only starts on an
// explicit command.
func (a *App) BiometricLogin(ctx context.Context) error {
	o := a.biometric.LoginWithBiometrics(ctx)
	if o.Kind == services.OutcomeSuccess && o.Identity != nil {
		a.session = &models.Session{Identity: *o.Identity}
	}
	a.reportOutcome(ctx, o)
	return nil
}

// EnableBiometric binds a new fingerprint login token to the account of
// the current password session.
func (a *App) EnableBiometric(ctx context.Context) error {
	if a.session == nil || a.session.AccessToken == "" {
		a.println("Log in with your password first.")
		return nil
	}

	o := a.biometric.EnableBiometricLogin(ctx, *a.session)
	if o.Kind == services.OutcomeSuccess {
		a.println("Fingerprint login is enabled.")
		return nil
	}
	a.reportOutcome(ctx, o)
	return nil
}

func (a *App) DisableBiometric(ctx context.Context) error {
	if err := a.biometric.DisableBiometricLogin(ctx); err != nil {
		if errors.Is(err, services.ErrBusy) {
			a.println("Another authentication is already in progress.")
			return nil
		}
		a.reportError(ctx, err)
		return nil
	}
	a.println("Fingerprint login is disabled.")
	return nil
}

// Recover resets the password after the recovery question is answered.
func (a *App) Recover(ctx context.Context) error {
	identifier, err := a.ask("Enter username, e-mail or phone")
	if err != nil {
		return err
	}

	q, err := a.authService.RecoveryQuestion(ctx, identifier)
	if err != nil {
		a.reportError(ctx, err)
		return nil
	}

	answer, err := a.ask(q.Text)
	if err != nil {
		return err
	}
	a.println("Choose a new password.")
	password, err := a.askPassword()
	if err != nil {
		return err
	}

	if err := a.authService.ResetPassword(ctx, identifier, password, answer); err != nil {
		a.reportError(ctx, err)
		return nil
	}
	a.println("Password changed. You can log in now.")
	return nil
}

// Forget drops the remembered identifier and the fingerprint login record.
func (a *App) Forget(ctx context.Context) error {
	if err := a.authService.Forget(ctx); err != nil {
		return err
	}
	if err := a.biometric.DisableBiometricLogin(ctx); err != nil {
		if errors.Is(err, services.ErrBusy) {
			a.println("Remembered identifier cleared. Another authentication is already in progress, fingerprint login was left as is.")
			return nil
		}
		return err
	}
	a.println("This device was forgotten. Remembered identifier and fingerprint login cleared.")
	return nil
}

// Logout ends the in-memory session and offers to forget the device.
func (a *App) Logout(ctx context.Context) error {
	a.session = nil
	a.println("Logged out.")

	forget, err := getConfirmation(a.reader, "Forget this device as well?", a.writer())
	if err != nil {
		return err
	}
	if !forget {
		return nil
	}
	return a.Forget(ctx)
}

func (a *App) reportOutcome(ctx context.Context, o services.Outcome) {
	if o.Err != nil {
		a.logger().Debug(ctx, "authentication outcome", "kind", o.Kind.String(), "error", o.Err)
	}
	a.println(o.Message())
	a.printFields(o.Validation)
}

// reportError prints a generic message for err. Details go to the log.
func (a *App) reportError(ctx context.Context, err error) {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		a.println("Please correct the following:")
		a.printFields(verr.Fields)
	case errors.Is(err, client.ErrUnauthorized):
		a.println("Invalid credentials.")
	case errors.Is(err, client.ErrAccountLocked):
		a.println("Account locked. Reset your password to unlock it.")
	case errors.Is(err, client.ErrNotFound):
		a.println("Account not found.")
	case errors.Is(err, client.ErrUnavailable):
		a.println("Cannot reach the server. Try again later.")
	default:
		a.logger().Error(ctx, "request failed", "error", err)
		a.println("Unexpected error.")
	}
}

func (a *App) printFields(fields map[string]string) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if k == "" {
			a.println("  " + fields[k])
			continue
		}
		a.println(fmt.Sprintf("  %s: %s", k, fields[k]))
	}
}
