// Command leaguemodel resolves league model artifacts and keeps the model
// registry mirrors in sync.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/leaguemodel/internal/checker"
	"github.com/okian/leaguemodel/internal/publisher"
	"github.com/okian/leaguemodel/internal/resolver"
)

// Exit statuses.
const (
	exitOK       = 0
	exitFailure  = 1
	exitNotFound = 2
	exitPartial  = 3
	exitDrift    = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, resolver.ErrNotFound):
		return exitNotFound
	case errors.Is(err, publisher.ErrPartialPublish):
		return exitPartial
	case errors.Is(err, checker.ErrDrift):
		return exitDrift
	default:
		return exitFailure
	}
}
