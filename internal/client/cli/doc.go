// Package cli provides the interactive weeklog command-line client.
//
// Build opens the local cache and the remote store from configuration and
// wires them into the storage gateway; App.Run then resolves the stored
// identity, starts a background connectivity watcher and runs the REPL,
// which blocks until the user exits.
//
// Commands: login, logout, whoami, show, log, target, export, import,
// cached, clear-cache, status, help, exit.
package cli
