package cli

import (
	"context"
	"fmt"
	"time"
)

func (a *App) getStatus() string {
	if a.session == nil {
		return ""
	}
	return fmt.Sprintf("(%s)", a.session.Identity.Username)
}

// Root greets the user and runs the REPL until exit. Fingerprint login is
// never started here; the user asks for it with "fp".
func (a *App) Root(ctx context.Context) {
	a.println("Welcome to IntelliHome CLI (type 'help' for commands)")

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := a.authService.Ping(pingCtx); err != nil {
		a.logger().Warn(ctx, "identity server unreachable", "addr", a.serverAddr(), "error", err)
	}
	cancel()

	if ok, err := a.biometric.BiometricLoginAvailable(ctx); err == nil && ok {
		a.println("Fingerprint login is set up. Type 'fp' to use it.")
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) serverAddr() string {
	if a.config == nil {
		return ""
	}
	return a.config.ServerEndpointAddr
}
