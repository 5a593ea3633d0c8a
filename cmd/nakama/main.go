package main

import (
	"context"
	"database/sql"

	"frenchdomino/internal/ports/nakama"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule is the symbol Nakama resolves when loading the plugin.
// Config, RPCs and the event handler are wired by the adapter package.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}

// main is required for `go build ./...`; Nakama loads this package as a plugin and never calls it.
func main() {}
