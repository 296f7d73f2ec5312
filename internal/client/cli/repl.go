package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/weeklog/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Log(ctx context.Context, args []string) error
	Target(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Cached(ctx context.Context) error
	ClearCache(ctx context.Context) error
	Status(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, show, cached, status, clear-cache, help, exit"
	helpLoggedIn  = "Available commands: show [year week | date], log <date|today> <value> [memo], " +
		"target <year> <week> <value> [unit], export <file|s3> [-seal], import <file|s3:key>, " +
		"cached, status, clear-cache, whoami, logout, help, exit"
)

// usageError is returned by a command whose arguments do not parse.
type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit". The prompt shows statusFn(). Command errors
// are reported to the user and never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("wk %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
		case "login":
			report(a.Login(ctx))
		case "logout":
			report(a.Logout(ctx))
		case "whoami":
			report(a.WhoAmI(ctx))
		case "show":
			report(a.Show(ctx, args))
		case "log":
			report(a.Log(ctx, args))
		case "target":
			report(a.Target(ctx, args))
		case "export":
			report(a.Export(ctx, args))
		case "import":
			report(a.Import(ctx, args))
		case "cached":
			report(a.Cached(ctx))
		case "clear-cache":
			report(a.ClearCache(ctx))
		case "status":
			report(a.Status(ctx))
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func report(err error) {
	if err == nil {
		return
	}
	var u usageError
	if errors.As(err, &u) {
		printlnFn(u.Error())
		return
	}
	printlnFn("Error:", common.UserMessage(err))
}
