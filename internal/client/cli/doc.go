// Package cli provides the interactive Stockpile command-line client.
//
// It wires configuration, the gRPC auth client and an interactive REPL.
// A background watcher pings the server and reports when it goes offline or
// comes back.
//
// Commands:
//   - signup, signin, signout
//   - whoami, refresh
//   - help, exit | quit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
