package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cadence/internal/clock"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/notifications"
	"github.com/desertthunder/cadence/internal/paging"
	"github.com/desertthunder/cadence/internal/shared"
)

// Tab identifies the visible pane.
type Tab int

const (
	InboxTab Tab = iota
	SongsTab
)

// rows taken by the tab bar, status line and help
const chromeHeight = 5

// Opts wires the model to its state sources.
type Opts struct {
	Manager *notifications.Manager
	Songs   *paging.Loader[models.Song]
	Clock   clock.Clock
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	tab      Tab
	manager  *notifications.Manager
	songs    *paging.Loader[models.Song]
	sentinel *paging.Sentinel
	clock    clock.Clock
	width    int
	height   int
	inbox    list.Model
	songList list.Model
	inboxSt  notifications.Snapshot
	songsSt  paging.Snapshot[models.Song]
	status   string
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a model showing the inbox tab.
func NewModel(ctx context.Context, opts Opts) *Model {
	c := opts.Clock
	if c == nil {
		c = clock.Real()
	}

	m := &Model{
		ctx:      ctx,
		tab:      InboxTab,
		manager:  opts.Manager,
		songs:    opts.Songs,
		sentinel: opts.Songs.Sentinel(),
		clock:    c,
		inbox:    newList(),
		songList: newList(),
		help:     help.New(),
		keys:     newKeyMap(),
	}
	m.inboxSt = m.manager.Snapshot()
	m.songsSt = m.songs.Snapshot()
	m.inbox.SetItems(m.notificationItems())
	m.songList.SetItems(songItems(m.songsSt.Items))
	return m
}

func newList() list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

// Run starts the TUI and blocks until the user quits.
//
// Manager and loader changes are forwarded with [tea.Program.Send]. Send blocks until the
// event loop reads the message, so Update must never call a method that notifies listeners.
// Those calls happen inside commands.
func Run(ctx context.Context, opts Opts) error {
	m := NewModel(ctx, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	opts.Manager.OnChange(func(s notifications.Snapshot) { p.Send(inboxChangedMsg(s)) })
	opts.Songs.OnChange(func(s paging.Snapshot[models.Song]) { p.Send(songsChangedMsg(s)) })

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init refreshes the inbox and loads the first page of songs.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refreshInbox(), m.loadSongs())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(msg.Height-chromeHeight, 1)
		m.inbox.SetSize(msg.Width, h)
		m.songList.SetSize(msg.Width, h)
		return m, m.observeSentinel()
	case tea.KeyMsg:
		return m.handleKeys(msg)
	case Msg:
		return m.handleMsg(msg)
	}
	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgInboxChanged:
		return m, m.applyInbox(msg.data.(notifications.Snapshot))
	case MsgSongsChanged:
		return m, m.applySongs(msg.data.(paging.Snapshot[models.Song]))
	case MsgActionDone:
		res := msg.data.(actionResult)
		m.err = res.err
		if res.err == nil && res.status != "" {
			m.status = res.status
		}
		return m, tea.Batch(m.applyInbox(m.manager.Snapshot()), m.applySongs(m.songs.Snapshot()))
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		if m.tab == InboxTab {
			m.tab = SongsTab
		} else {
			m.tab = InboxTab
		}
		m.status = ""
		return m, m.observeSentinel()
	}

	if m.tab == InboxTab {
		switch {
		case key.Matches(msg, m.keys.read):
			if item, ok := m.inbox.SelectedItem().(notificationItem); ok && !item.notification.IsRead {
				return m, m.markRead(item.notification.ID)
			}
			return m, nil
		case key.Matches(msg, m.keys.readAll):
			return m, m.markAllRead()
		case key.Matches(msg, m.keys.more):
			return m, m.fetchOlder()
		case key.Matches(msg, m.keys.refresh):
			return m, m.refreshInbox()
		case key.Matches(msg, m.keys.open):
			if item, ok := m.inbox.SelectedItem().(notificationItem); ok && item.notification.Link != "" {
				return m, openLink(item.notification.Link)
			}
			return m, nil
		}
	} else if key.Matches(msg, m.keys.refresh) {
		return m, m.refreshSongs()
	}

	return m.updateLists(msg)
}

// updateLists forwards msg to the active list, then re-checks the sentinel.
func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.tab {
	case InboxTab:
		m.inbox, cmd = m.inbox.Update(msg)
	case SongsTab:
		m.songList, cmd = m.songList.Update(msg)
	}
	return m, tea.Batch(cmd, m.observeSentinel())
}

func (m *Model) applyInbox(s notifications.Snapshot) tea.Cmd {
	m.inboxSt = s
	if s.Err != nil {
		m.err = s.Err
	}
	return m.inbox.SetItems(m.notificationItems())
}

func (m *Model) applySongs(s paging.Snapshot[models.Song]) tea.Cmd {
	m.songsSt = s
	if s.Err != nil {
		m.err = s.Err
	}
	cmd := m.songList.SetItems(songItems(s.Items))
	return tea.Batch(cmd, m.observeSentinel())
}

// observeSentinel attaches the sentinel to the last song and reports whether that row is on the
// current page of the list. Becoming visible loads the next page in a command.
func (m *Model) observeSentinel() tea.Cmd {
	if m.tab != SongsTab {
		return nil
	}
	items := m.songList.Items()
	if len(items) == 0 {
		return nil
	}

	last := items[len(items)-1].(songItem).song.ID
	m.sentinel.Attach(last)

	_, end := m.songList.Paginator.GetSliceBounds(len(items))
	if end < len(items) {
		m.sentinel.Observe(m.ctx, last, false)
		return nil
	}

	ctx, sentinel, songs := m.ctx, m.sentinel, m.songs
	return func() tea.Msg {
		if !sentinel.Observe(ctx, last, true) {
			return nil
		}
		return songsChangedMsg(songs.Snapshot())
	}
}

func (m *Model) notificationItems() []list.Item {
	now := m.clock.Now()
	items := make([]list.Item, len(m.inboxSt.Notifications))
	for i, n := range m.inboxSt.Notifications {
		items[i] = notificationItem{notification: n, now: now}
	}
	return items
}

func songItems(songs []models.Song) []list.Item {
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{song: s}
	}
	return items
}

func (m *Model) refreshInbox() tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		if !manager.Snapshot().Authenticated {
			return actionDoneMsg("", nil)
		}
		return actionDoneMsg("Inbox refreshed", manager.Refresh(ctx))
	}
}

func (m *Model) fetchOlder() tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		return actionDoneMsg("", manager.FetchNextPage(ctx))
	}
}

func (m *Model) markRead(id string) tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		return actionDoneMsg("Marked as read", manager.MarkAsRead(ctx, id))
	}
}

func (m *Model) markAllRead() tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		return actionDoneMsg("Marked all as read", manager.MarkAllAsRead(ctx))
	}
}

func (m *Model) loadSongs() tea.Cmd {
	ctx, songs := m.ctx, m.songs
	return func() tea.Msg {
		return actionDoneMsg("", songs.Next(ctx))
	}
}

func (m *Model) refreshSongs() tea.Cmd {
	ctx, songs := m.ctx, m.songs
	return func() tea.Msg {
		return actionDoneMsg("Songs refreshed", songs.Refresh(ctx))
	}
}

func openLink(link string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg("Opened "+link, shared.OpenBrowser(link))
	}
}

// View renders the active tab.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.tab {
	case InboxTab:
		b.WriteString(m.renderInbox())
	case SongsTab:
		b.WriteString(m.renderSongs())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.helpKeys()))
	return b.String()
}

func (m *Model) renderTabs() string {
	inbox := "Inbox"
	if m.inboxSt.UnreadCount > 0 {
		inbox = fmt.Sprintf("%s %s", inbox, styles.badge.Render(fmt.Sprint(m.inboxSt.UnreadCount)))
	}
	songs := fmt.Sprintf("Songs (%d)", len(m.songsSt.Items))

	if m.tab == InboxTab {
		return styles.activeTab.Render(inbox) + styles.tab.Render(songs)
	}
	return styles.tab.Render(inbox) + styles.activeTab.Render(songs)
}

func (m *Model) renderInbox() string {
	if !m.inboxSt.Authenticated {
		return styles.warn.Render("Not signed in. Run `cadence auth login` first.")
	}
	if len(m.inboxSt.Notifications) == 0 && !m.inboxSt.Loading {
		return styles.help.Render("No notifications")
	}
	return m.inbox.View()
}

func (m *Model) renderSongs() string {
	if len(m.songsSt.Items) == 0 && m.songsSt.State == paging.StateExhausted {
		return styles.help.Render("No songs in the catalog")
	}
	return m.songList.View()
}

func (m *Model) renderStatus() string {
	loading := m.inboxSt.Loading
	if m.tab == SongsTab {
		loading = m.songsSt.Loading
	}

	switch {
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case loading:
		return styles.warn.Render("Loading...")
	case m.tab == SongsTab && m.songsSt.State == paging.StateExhausted && len(m.songsSt.Items) > 0:
		return styles.help.Render("End of catalog")
	case m.status != "":
		return styles.ok.Render(m.status)
	}
	return ""
}

func (m *Model) helpKeys() []key.Binding {
	if m.tab == InboxTab {
		return []key.Binding{m.keys.up, m.keys.down, m.keys.read, m.keys.readAll, m.keys.more, m.keys.open, m.keys.refresh, m.keys.tab, m.keys.quit}
	}
	return []key.Binding{m.keys.up, m.keys.down, m.keys.refresh, m.keys.tab, m.keys.quit}
}
