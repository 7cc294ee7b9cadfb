package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error

	List(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Filter(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error

	Upload(ctx context.Context) error
	Download(ctx context.Context, args []string) error
	Rate(ctx context.Context, args []string) error
	AddVersion(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error

	Purge(ctx context.Context) error
}

const (
	helpGuest    = "Available commands: register, login, list [category], search <text>, filter key=value..., show <id>, purge, exit"
	helpLoggedIn = "Available commands: (l)ist [category], search <text>, filter key=value..., show <id>, upload, download <id>, " +
		"rate <id> <value>, addversion <id> <version>, delete <id>, whoami, logout, purge, exit"
)

// runREPL reads one command per line from reader and dispatches it to a.
// The loop exits on EOF, when the user types "exit" or "quit", or once ctx
// is done; a line read after cancellation is not dispatched.
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "modhub%s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(w)
			return
		}
		if ctx.Err() != nil {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpLoggedIn)
			} else {
				fmt.Fprintln(w, helpGuest)
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.Whoami(ctx)

		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "search":
			cmdErr = a.Search(ctx, args)
		case "filter":
			cmdErr = a.Filter(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)

		case "upload":
			cmdErr = a.Upload(ctx)
		case "download":
			cmdErr = a.Download(ctx, args)
		case "rate":
			cmdErr = a.Rate(ctx, args)
		case "addversion":
			cmdErr = a.AddVersion(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)

		case "purge":
			cmdErr = a.Purge(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "error:", describe(cmdErr))
		}
	}
}
