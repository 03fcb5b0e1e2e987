package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/cadence/internal/formatter"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/paging"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) requireToken() error {
	if !r.client.Authenticated() {
		return fmt.Errorf("%w: run 'cadence auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

// writePaged prints a collected listing as JSON or via render.
func writePaged[T any](r *Runner, cmd *cli.Command, title string, snap paging.Snapshot[T], render func([]T) []byte) error {
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"content": snap.Items,
			"page":    snap.Page,
			"hasMore": snap.HasMore,
		}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d)", title, len(snap.Items)))
	if len(snap.Items) == 0 {
		return r.writePlain("Nothing here yet\n")
	}
	if err := r.writeBytes(render(snap.Items)); err != nil {
		return err
	}
	if snap.HasMore {
		r.writePlainln("More results available, use --pages to load them")
	}
	return nil
}

// SongsList prints catalog songs.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireToken(); err != nil {
		return err
	}

	snap, err := collect[models.Song](ctx, r.catalog.Songs, cmd.Int("limit"), cmd.Int("pages"), r.logger)
	if err != nil {
		return fmt.Errorf("failed to fetch songs: %w", err)
	}
	return writePaged(r, cmd, "Songs", snap, formatter.SongsToText)
}

// SongsExport writes catalog songs to a file.
func (r *Runner) SongsExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireToken(); err != nil {
		return err
	}

	snap, err := collect[models.Song](ctx, r.catalog.Songs, r.config.Library.PageSize, cmd.Int("pages"), r.logger)
	if err != nil {
		return fmt.Errorf("failed to fetch songs: %w", err)
	}

	path, err := formatter.WriteSongsExport(snap.Items, cmd.String("output"), cmd.String("format"))
	if err != nil {
		return err
	}

	r.logger.Info("songs exported", "count", len(snap.Items), "path", path)
	return r.writePlain("✓ Exported %d songs to %s\n", len(snap.Items), path)
}

// PlaylistsList prints the user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireToken(); err != nil {
		return err
	}

	snap, err := collect[models.Playlist](ctx, r.catalog.Playlists, cmd.Int("limit"), cmd.Int("pages"), r.logger)
	if err != nil {
		return fmt.Errorf("failed to fetch playlists: %w", err)
	}
	return writePaged(r, cmd, "Playlists", snap, formatter.PlaylistsToText)
}

// PlaylistsCreate creates a playlist.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireToken(); err != nil {
		return err
	}

	playlist, err := r.catalog.CreatePlaylist(ctx, models.Playlist{
		Name:        cmd.StringArg("name"),
		Description: cmd.String("description"),
		Public:      cmd.Bool("public"),
	})
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	r.logger.Info("playlist created", "id", playlist.ID)
	return r.writePlain("✓ Created %s playlist %q (%s)\n", strings.ToLower(shared.VisibilityString(playlist.Public)), playlist.Name, playlist.ID)
}

// SubmissionsList prints the user's submissions.
func (r *Runner) SubmissionsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireToken(); err != nil {
		return err
	}

	snap, err := collect[models.Submission](ctx, r.catalog.Submissions, cmd.Int("limit"), cmd.Int("pages"), r.logger)
	if err != nil {
		return fmt.Errorf("failed to fetch submissions: %w", err)
	}
	return writePaged(r, cmd, "Submissions", snap, formatter.SubmissionsToText)
}

// SubmissionsCreate submits a song for review.
func (r *Runner) SubmissionsCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireToken(); err != nil {
		return err
	}

	sub, err := r.catalog.SubmitSong(ctx, models.Submission{
		Title:    cmd.String("title"),
		Artist:   cmd.String("artist"),
		Album:    cmd.String("album"),
		Genre:    cmd.String("genre"),
		AudioURL: cmd.String("url"),
	})
	if err != nil {
		return fmt.Errorf("failed to submit song: %w", err)
	}

	r.logger.Info("song submitted", "id", sub.ID, "status", sub.Status)
	return r.writePlain("✓ Submitted %q by %s (%s, %s)\n", sub.Title, sub.Artist, sub.ID, sub.Status)
}
