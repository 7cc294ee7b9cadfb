// Package cli provides the interactive modhub command-line front end.
//
// It is a thin collaborator over services.Facade: it prompts for input,
// keeps the session token of the logged-in user, and prints results. It
// holds no other state.
//
// Commands:
//   - register / login / logout / whoami
//   - list [category], search <text>, filter key=value..., show <id>
//   - upload, download <id>, rate <id> <value>, addversion <id> <version>, delete <id>
//   - purge (remove expired sessions)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
