package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/paging"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/desertthunder/cadence/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive inbox and song browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireToken(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	if err := r.SetLogger(fileLogger); err != nil {
		return err
	}

	if err := r.requireSession(ctx); err != nil {
		return err
	}

	songs := paging.NewLoader[models.Song](r.catalog.Songs, paging.LoaderOpts{
		Limit:  r.config.Library.PageSize,
		Logger: shared.WithLogger(fileLogger, "component", "songs"),
	})

	if err := ui.Run(ctx, ui.Opts{Manager: r.manager, Songs: songs, Clock: r.clock}); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
