package main

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/cadence/internal/formatter"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/notifications"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

// inboxPages loads up to pages pages into the manager. pages <= 0 loads every page.
func (r *Runner) inboxPages(ctx context.Context, pages int) (notifications.Snapshot, error) {
	if err := r.manager.FetchNotifications(ctx, 0); err != nil {
		return notifications.Snapshot{}, err
	}
	for i := 1; pages <= 0 || i < pages; i++ {
		if !r.manager.Snapshot().HasMore {
			break
		}
		if err := r.manager.FetchNextPage(ctx); err != nil {
			return notifications.Snapshot{}, err
		}
	}
	return r.manager.Snapshot(), nil
}

// findNotification pages through the inbox until id is loaded.
func (r *Runner) findNotification(ctx context.Context, id string) (models.Notification, error) {
	if id == "" {
		return models.Notification{}, fmt.Errorf("%w: notification id", shared.ErrMissingArgument)
	}
	if err := r.manager.FetchNotifications(ctx, 0); err != nil {
		return models.Notification{}, err
	}

	for {
		snap := r.manager.Snapshot()
		if i := slices.IndexFunc(snap.Notifications, func(n models.Notification) bool { return n.ID == id }); i >= 0 {
			return snap.Notifications[i], nil
		}
		if !snap.HasMore {
			return models.Notification{}, fmt.Errorf("%w: %s", shared.ErrNotificationNotFound, id)
		}
		if err := r.manager.FetchNextPage(ctx); err != nil {
			return models.Notification{}, err
		}
	}
}

// NotificationsList prints the inbox with locally read notifications merged in.
func (r *Runner) NotificationsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	snap, err := r.inboxPages(ctx, cmd.Int("pages"))
	if err != nil {
		return fmt.Errorf("failed to fetch notifications: %w", err)
	}
	if err := r.manager.FetchUnreadCount(ctx); err != nil {
		r.logger.Warn("failed to fetch unread count", "error", err)
	}
	unread := r.manager.Snapshot().UnreadCount

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"notifications": snap.Notifications,
			"unreadCount":   unread,
			"hasMore":       snap.HasMore,
		}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Notifications (%d unread)", unread))
	if len(snap.Notifications) == 0 {
		return r.writePlain("No notifications\n")
	}
	if err := r.writeBytes(formatter.NotificationsToText(snap.Notifications, r.clock.Now())); err != nil {
		return err
	}
	if snap.HasMore {
		r.writePlainln("More notifications available, use --pages to load them")
	}
	return nil
}

// NotificationsUnread prints the server-side unread count.
func (r *Runner) NotificationsUnread(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}
	if err := r.manager.FetchUnreadCount(ctx); err != nil {
		return fmt.Errorf("failed to fetch unread count: %w", err)
	}

	count := r.manager.Snapshot().UnreadCount
	if cmd.Bool("json") {
		return r.writeJSON(map[string]int{"count": count}, cmd.Bool("pretty"))
	}
	return r.writePlain("%d\n", count)
}

// NotificationsRead marks a single notification as read.
func (r *Runner) NotificationsRead(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	n, err := r.findNotification(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if n.IsRead {
		return r.writePlain("Notification %s is already read\n", n.ID)
	}

	if err := r.manager.MarkAsRead(ctx, n.ID); err != nil {
		return fmt.Errorf("failed to mark %s as read: %w", n.ID, err)
	}
	return r.writePlain("✓ Marked %q as read\n", n.Title)
}

// NotificationsReadAll marks every notification as read.
func (r *Runner) NotificationsReadAll(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}
	if err := r.manager.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to fetch notifications: %w", err)
	}
	if r.manager.Snapshot().UnreadCount == 0 {
		return r.writePlain("No unread notifications\n")
	}
	if err := r.manager.MarkAllAsRead(ctx); err != nil {
		return fmt.Errorf("failed to mark all as read: %w", err)
	}
	return r.writePlain("✓ Marked all notifications as read\n")
}

// NotificationsOpen opens a notification's link and marks it read.
func (r *Runner) NotificationsOpen(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	n, err := r.findNotification(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if n.Link == "" {
		return fmt.Errorf("%w: notification %s has no link", shared.ErrInvalidArgument, n.ID)
	}

	link, err := r.resolveLink(n.Link)
	if err != nil {
		return err
	}
	if err := shared.OpenBrowser(link); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this link in your browser:\n%s\n", link)
	}

	if !n.IsRead {
		if err := r.manager.MarkAsRead(ctx, n.ID); err != nil {
			return fmt.Errorf("failed to mark %s as read: %w", n.ID, err)
		}
	}
	return nil
}

// resolveLink turns an app-relative link into an absolute URL against the API base.
func (r *Runner) resolveLink(link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: invalid link %q", shared.ErrInvalidInput, link)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(r.client.BaseURL())
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// NotificationsWatch polls the unread count and prints it whenever it changes.
func (r *Runner) NotificationsWatch(ctx context.Context, cmd *cli.Command) error {
	if interval := cmd.Duration("interval"); interval > 0 {
		r.config.Notifications.PollInterval = interval
		if err := r.build(r.logger); err != nil {
			return err
		}
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	var mu sync.Mutex
	changes := make(chan int, 1)
	last := -1
	r.manager.OnChange(func(s notifications.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.UnreadCount == last {
			return
		}
		last = s.UnreadCount
		select {
		case <-changes:
		default:
		}
		changes <- s.UnreadCount
	})

	if err := r.manager.FetchUnreadCount(ctx); err != nil {
		return fmt.Errorf("failed to fetch unread count: %w", err)
	}

	r.logger.Info("watching unread count", "interval", r.config.Notifications.PollInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case count := <-changes:
			r.writePlain("%s  %d unread\n", r.clock.Now().Format(time.TimeOnly), count)
		}
	}
}
