package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/cadence/internal/formatter"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

var (
	_ list.Item = notificationItem{}
	_ list.Item = songItem{}
)

// notificationItem wraps [models.Notification] to implement [list.Item].
type notificationItem struct {
	notification models.Notification
	now          time.Time
}

func (i notificationItem) FilterValue() string { return i.notification.Title }
func (i notificationItem) Title() string {
	if i.notification.IsRead {
		return "  " + i.notification.Title
	}
	return "● " + i.notification.Title
}
func (i notificationItem) Description() string {
	desc := formatter.RelativeTime(i.notification.CreatedAt, i.now)
	if i.notification.Message != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.notification.Message)
	}
	return desc
}

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song models.Song
}

func (i songItem) FilterValue() string { return i.song.Title }
func (i songItem) Title() string       { return i.song.Title }
func (i songItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.song.Artist, shared.FormatDuration(i.song.DurationSec))
	if i.song.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.song.Album)
	}
	return desc
}
