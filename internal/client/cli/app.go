package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"

	"github.com/intelliworks/intellihome/internal/client/biometric"
	"github.com/intelliworks/intellihome/internal/client/client"
	"github.com/intelliworks/intellihome/internal/client/config"
	"github.com/intelliworks/intellihome/internal/client/console"
	"github.com/intelliworks/intellihome/internal/client/keys"
	"github.com/intelliworks/intellihome/internal/client/keystore"
	"github.com/intelliworks/intellihome/internal/client/models"
	"github.com/intelliworks/intellihome/internal/client/repositories/credentials"
	"github.com/intelliworks/intellihome/internal/client/services"
	"github.com/intelliworks/intellihome/internal/logging"
)

// authService is the password-based surface App needs.
type authService interface {
	Login(ctx context.Context, identifier, password string, remember bool) (*models.Session, error)
	Register(ctx context.Context, reg models.Registration) (*models.Identity, error)
	RecoveryQuestion(ctx context.Context, identifier string) (*models.RecoveryQuestion, error)
	ResetPassword(ctx context.Context, identifier, newPassword, answer string) error
	RememberedIdentifier(ctx context.Context) (string, error)
	Forget(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// biometricService is the fingerprint surface App needs.
type biometricService interface {
	RegisterWithBiometrics(ctx context.Context, reg models.Registration) services.Outcome
	EnableBiometricLogin(ctx context.Context, session models.Session) services.Outcome
	LoginWithBiometrics(ctx context.Context) services.Outcome
	BiometricLoginAvailable(ctx context.Context) (bool, error)
	DisableBiometricLogin(ctx context.Context) error
}

type App struct {
	config      *config.Config
	authService authService
	biometric   biometricService
	session     *models.Session
	reader      *bufio.Reader
	out         io.Writer
	log         logging.Logger
	db          *sql.DB
}

// logOutput receives the client's diagnostic log. Tests swap it.
var logOutput io.Writer = os.Stderr

// NewApp opens the local database, connects to the identity server and
// wires the biometric login stack.
func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()
	logger := logging.NewTextLogger(logOutput, slog.LevelInfo)

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	creds, err := client.TransportCredentials(c.TLSCAFile, c.Insecure)
	if err != nil {
		logger.Error(ctx, "error loading TLS settings", "ca", c.TLSCAFile, "error", err)
		db.Close()
		return nil, err
	}
	if c.Insecure {
		logger.Warn(ctx, "TLS is disabled, credentials travel in plaintext")
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.RequestTimeout, creds)
	if err != nil {
		db.Close()
		return nil, err
	}

	lines := console.NewLineReader(os.Stdin)
	reader := bufio.NewReader(lines)

	store := keystore.NewSQLiteStore(db, keystore.StaticEnrollment(c.EnrollmentID))
	gate := biometric.NewGate(biometric.NewTerminalPrompter(lines, os.Stdin, os.Stdout), logger.With("component", "biometric"))

	bio := services.NewBiometricAuthenticator(
		keys.NewManager(store),
		gate,
		credentials.NewSQLiteStore(db),
		apiClient,
		logger,
		c.KeyAlias,
	)

	return &App{
		config:      c,
		authService: services.NewAuthService(apiClient, db),
		biometric:   bio,
		reader:      reader,
		out:         os.Stdout,
		log:         logger,
		db:          db,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.close()
	a.Root(ctx)
}

func (a *App) close() {
	if err := a.authService.Close(); err != nil {
		a.logger().Warn(context.Background(), "closing identity client", "error", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger().Warn(context.Background(), "closing database", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

// writer returns the output stream; App values built in tests may leave it nil.
func (a *App) writer() io.Writer {
	if a.out == nil {
		return io.Discard
	}
	return a.out
}
