package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	BiometricLogin(ctx context.Context) error
	EnableBiometric(ctx context.Context) error
	DisableBiometric(ctx context.Context) error
	Recover(ctx context.Context) error
	Forget(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts the read–eval–print loop of the IntelliHome CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF, on a read error or
// when the user types "exit" or "quit".
//
// Commands:
//
//	help        show available commands
//	register    create an account, optionally with fingerprint login
//	login       log in with a password
//	fp          log in with a fingerprint
//	enable-fp   enable fingerprint login for the logged-in account
//	disable-fp  disable fingerprint login on this device
//	recover     reset a forgotten password
//	forget      forget the remembered identifier and fingerprint login
//	logout      end the session, optionally forgetting the device
//	exit | quit leave the program
//
// Handler errors are input errors (closed stdin, terminal failure); they
// are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ih %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: enable-fp, disable-fp, forget, logout, exit")
			} else {
				printlnFn("Available commands: register, login, fp, recover, disable-fp, forget, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "fp":
			cmdErr = a.BiometricLogin(ctx)

		case "enable-fp":
			cmdErr = a.EnableBiometric(ctx)

		case "disable-fp":
			cmdErr = a.DisableBiometric(ctx)

		case "recover":
			cmdErr = a.Recover(ctx)

		case "forget":
			cmdErr = a.Forget(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
