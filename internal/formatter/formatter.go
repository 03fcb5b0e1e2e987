// package formatter renders catalog and inbox data as plain text, Markdown, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

// Export formats accepted by [WriteSongsExport].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatText     = "txt"
	FormatJSON     = "json"
)

// SongsToCSV converts songs to CSV with columns: ID, Title, Artist, Album, Genre, Duration
func SongsToCSV(songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Title", "Artist", "Album", "Genre", "Duration"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range songs {
		record := []string{song.ID, song.Title, song.Artist, song.Album, song.Genre, strconv.Itoa(song.DurationSec)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// SongsToMarkdown renders songs as a numbered Markdown list under title
func SongsToMarkdown(title string, songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(songs))

	for i, song := range songs {
		albumPart := ""
		if song.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", song.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, song.Artist, song.Title, albumPart, shared.FormatDuration(song.DurationSec))
	}

	return buf.Bytes(), nil
}

// SongsToText renders songs as numbered "Artist - Title [m:ss]" lines
func SongsToText(songs []models.Song) []byte {
	var buf bytes.Buffer
	for i, song := range songs {
		fmt.Fprintf(&buf, "%3d. %s - %s [%s]\n", i+1, song.Artist, song.Title, shared.FormatDuration(song.DurationSec))
	}
	return buf.Bytes()
}

// WriteSongsExport writes songs to path in the given format and returns the written path.
//
// An empty path defaults to songs.{format}.
func WriteSongsExport(songs []models.Song, path, format string) (string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if path == "" {
		path = "songs." + format
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = SongsToCSV(songs)
	case FormatMarkdown:
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		data, err = SongsToMarkdown(title, songs)
	case FormatText:
		data = SongsToText(songs)
	case FormatJSON:
		data, err = shared.MarshalJSON(songs, true)
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// NotificationsToText renders the inbox, marking unread entries with a bullet
func NotificationsToText(list []models.Notification, now time.Time) []byte {
	var buf bytes.Buffer
	for _, n := range list {
		marker := " "
		if !n.IsRead {
			marker = "●"
		}
		fmt.Fprintf(&buf, "%s %-8s %s  (%s)\n", marker, n.ID, n.Title, RelativeTime(n.CreatedAt, now))
		if n.Message != "" {
			fmt.Fprintf(&buf, "    %s\n", shared.Truncate(n.Message, 100))
		}
	}
	return buf.Bytes()
}

// PlaylistsToText renders playlists as numbered lines with song count and visibility
func PlaylistsToText(playlists []models.Playlist) []byte {
	var buf bytes.Buffer
	for i, p := range playlists {
		fmt.Fprintf(&buf, "%3d. %s (%d songs, %s)\n", i+1, p.Name, p.SongCount, shared.VisibilityString(p.Public))
		if p.Description != "" {
			fmt.Fprintf(&buf, "     %s\n", shared.Truncate(p.Description, 80))
		}
	}
	return buf.Bytes()
}

// SubmissionsToText renders submissions with their review status
func SubmissionsToText(subs []models.Submission) []byte {
	var buf bytes.Buffer
	for i, s := range subs {
		fmt.Fprintf(&buf, "%3d. [%s] %s - %s\n", i+1, s.Status, s.Artist, s.Title)
	}
	return buf.Bytes()
}

// RelativeTime describes t relative to now ("just now", "5m ago", "3h ago", "2d ago"),
// falling back to a date for anything older than a week.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
