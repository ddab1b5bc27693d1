// Package tui provides the BubbleTea-based terminal dashboard for active bubbles.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/chatbubble/internal/config"
	"github.com/jmylchreest/chatbubble/internal/core"
	"github.com/jmylchreest/chatbubble/internal/dbus"
	"github.com/jmylchreest/chatbubble/internal/model"
	"github.com/jmylchreest/chatbubble/internal/output"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeSearch
	ModeHelp
)

// Backend is the subset of the bus client the dashboard needs.
type Backend interface {
	List() ([]model.SessionInfo, error)
	Hide(id model.Identity) (bool, error)
	HideAll() (int, error)
}

// Model is the main TUI model.
type Model struct {
	cfg     *config.Config
	backend Backend
	now     func() time.Time
	copy    func(text string) error

	mode Mode

	list        list.Model
	viewport    viewport.Model
	searchInput textinput.Model
	help        help.Model

	sessions    []model.SessionInfo
	selected    *model.SessionInfo
	searchQuery string
	loadErr     error
	width       int
	height      int
	ready       bool

	keys KeyMap

	statusMsg string
	statusErr bool
}

// bubbleItem wraps a session for the list component.
type bubbleItem struct {
	session model.SessionInfo
	now     time.Time
}

func (i bubbleItem) Title() string {
	if i.session.Bubble.DisplayName != "" {
		return i.session.Bubble.DisplayName
	}
	return string(i.session.Bubble.Identity)
}

func (i bubbleItem) Description() string {
	return fmt.Sprintf("%s - (%d,%d) - %s",
		i.session.Bubble.Identity,
		i.session.Position.X, i.session.Position.Y,
		output.Age(i.session.CreatedAt, i.now))
}

func (i bubbleItem) FilterValue() string {
	return string(i.session.Bubble.Identity) + " " + i.session.Bubble.DisplayName
}

// bubbleDelegate renders a bubble as an initials badge next to the title.
type bubbleDelegate struct {
	list.DefaultDelegate
}

func newBubbleDelegate() bubbleDelegate {
	return bubbleDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

var badgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("0")).
	Background(lipgloss.Color("12")).
	Padding(0, 1)

// Render renders a list item with an initials badge.
func (d bubbleDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	bi, ok := item.(bubbleItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	titleStyle := d.Styles.NormalTitle
	descStyle := d.Styles.NormalDesc
	if index == m.Index() {
		titleStyle = d.Styles.SelectedTitle
		descStyle = d.Styles.SelectedDesc
	}

	itemWidth := m.Width() - d.Styles.NormalTitle.GetHorizontalPadding()

	badge := badgeStyle.Render(bi.session.Bubble.Initials())
	title := bi.Title()
	if itemWidth > 0 && len(title)+lipgloss.Width(badge)+1 > itemWidth {
		title = truncate(title, itemWidth-lipgloss.Width(badge)-1)
	}
	desc := bi.Description()
	if itemWidth > 0 && len(desc) > itemWidth {
		desc = truncate(desc, itemWidth)
	}

	fmt.Fprint(w, titleStyle.Render(badge+" "+title))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(desc))
}

func truncate(s string, n int) string {
	if n <= 1 {
		return "…"
	}
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// New creates a new TUI model.
func New(cfg *config.Config, backend Backend) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	l := list.New(nil, newBubbleDelegate(), 0, 0)
	l.Title = "Chat Bubbles"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	searchInput := textinput.New()
	searchInput.Placeholder = "Search..."
	searchInput.CharLimit = 100

	h := help.New()
	h.ShowAll = true

	return Model{
		cfg:         cfg,
		backend:     backend,
		now:         time.Now,
		copy:        func(text string) error { return copyText(text, cfg) },
		mode:        ModeList,
		list:        l,
		searchInput: searchInput,
		help:        h,
		keys:        DefaultKeyMap(),
	}
}

// RefreshMsg asks the dashboard to re-read the bubble list.
type RefreshMsg struct{}

type sessionsMsg struct {
	sessions []model.SessionInfo
	err      error
}

type tickMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

type hideResultMsg struct {
	id      model.Identity
	removed bool
	err     error
}

type hideAllResultMsg struct {
	removed int
	err     error
}

// Init loads the bubble list and starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSessions, m.tick())
}

func (m Model) loadSessions() tea.Msg {
	if m.backend == nil {
		return sessionsMsg{}
	}
	sessions, err := m.backend.List()
	return sessionsMsg{sessions: sessions, err: err}
}

func (m Model) tick() tea.Cmd {
	interval := m.cfg.TUI.Refresh.Duration()
	if interval <= 0 {
		interval = config.DefaultRefresh
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.list.SetSize(msg.Width, msg.Height-2)
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		m.help.Width = msg.Width
		return m, nil

	case sessionsMsg:
		m.loadErr = msg.err
		if msg.err == nil {
			m.sessions = msg.sessions
			m.list.SetItems(m.buildListItems())
			m.refreshSelected()
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadSessions, m.tick())

	case RefreshMsg:
		return m, m.loadSessions

	case hideResultMsg:
		if msg.err != nil {
			return m, status("Hide failed: "+msg.err.Error(), true)
		}
		if !msg.removed {
			return m, tea.Batch(m.loadSessions, status(string(msg.id)+" was not shown", false))
		}
		return m, tea.Batch(m.loadSessions, status("Hid "+string(msg.id), false))

	case hideAllResultMsg:
		if msg.err != nil {
			return m, status("Hide all failed: "+msg.err.Error(), true)
		}
		return m, tea.Batch(m.loadSessions, status(fmt.Sprintf("Hid %d bubbles", msg.removed), false))

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	switch m.mode {
	case ModeList:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	case ModeDetail:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	case ModeSearch:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// refreshSelected keeps the detail view in sync after a reload, leaving it
// when the bubble has gone.
func (m *Model) refreshSelected() {
	if m.selected == nil {
		return
	}
	for _, s := range m.sessions {
		if s.Bubble.Identity == m.selected.Bubble.Identity {
			m.selected = &s
			m.viewport.SetContent(m.renderDetail(s))
			return
		}
	}
	m.selected = nil
	if m.mode == ModeDetail {
		m.mode = ModeList
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.mode != ModeSearch {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			if m.mode == ModeHelp {
				m.mode = ModeList
			} else {
				m.mode = ModeHelp
			}
			return m, nil
		}
	}

	switch m.mode {
	case ModeList:
		return m.handleListKey(msg)
	case ModeDetail:
		return m.handleDetailKey(msg)
	case ModeSearch:
		return m.handleSearchKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
		return m, nil
	}

	return m, nil
}

// handleListKey handles keys in list mode.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.list.SelectedItem().(bubbleItem); ok {
			m.openDetail(item.session)
		}
		return m, nil

	case key.Matches(msg, m.keys.Hide):
		if item, ok := m.list.SelectedItem().(bubbleItem); ok {
			return m, m.hide(item.session.Bubble.Identity)
		}
		return m, nil

	case key.Matches(msg, m.keys.HideAll):
		return m, m.hideAll()

	case key.Matches(msg, m.keys.Copy):
		if item, ok := m.list.SelectedItem().(bubbleItem); ok {
			return m, m.copyToClipboard(string(item.session.Bubble.Identity))
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyAllJSON):
		data, err := json.MarshalIndent(m.visibleSessions(), "", "  ")
		if err != nil {
			return m, status("Failed to marshal JSON: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.CopyAllYAML):
		data, err := yaml.Marshal(m.visibleSessions())
		if err != nil {
			return m, status("Failed to marshal YAML: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.Search):
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.list.SetItems(m.buildListItems())
		m.mode = ModeSearch
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadSessions
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleDetailKey handles keys in detail mode.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = ModeList
		m.selected = nil
		return m, nil

	case key.Matches(msg, m.keys.Hide):
		if m.selected != nil {
			id := m.selected.Bubble.Identity
			m.mode = ModeList
			m.selected = nil
			return m, m.hide(id)
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if m.selected != nil {
			return m, m.copyToClipboard(string(m.selected.Bubble.Identity))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleSearchKey handles keys in search mode.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeList
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.list.SetItems(m.buildListItems())
		return m, nil

	case tea.KeyEnter:
		m.searchInput.Blur()
		if item, ok := m.list.SelectedItem().(bubbleItem); ok {
			m.openDetail(item.session)
		} else {
			m.mode = ModeList
		}
		return m, nil

	case tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	m.searchQuery = m.searchInput.Value()
	m.list.SetItems(m.buildListItems())

	return m, cmd
}

func (m *Model) openDetail(s model.SessionInfo) {
	m.selected = &s
	m.mode = ModeDetail
	m.viewport.SetContent(m.renderDetail(s))
	m.viewport.GotoTop()
}

func (m Model) hide(id model.Identity) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		if backend == nil {
			return hideResultMsg{id: id, err: fmt.Errorf("not connected")}
		}
		removed, err := backend.Hide(id)
		return hideResultMsg{id: id, removed: removed, err: err}
	}
}

func (m Model) hideAll() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		if backend == nil {
			return hideAllResultMsg{err: fmt.Errorf("not connected")}
		}
		n, err := backend.HideAll()
		return hideAllResultMsg{removed: n, err: err}
	}
}

func (m Model) copyToClipboard(text string) tea.Cmd {
	copyFn := m.copy
	return func() tea.Msg {
		return copyResultMsg{err: copyFn(text)}
	}
}

// filteredSessions returns the sessions matching the current search query,
// which may be plain text or a filter expression such as "age<5m".
func (m Model) filteredSessions() []model.SessionInfo {
	if m.searchQuery == "" {
		return m.sessions
	}
	return core.Query(m.sessions, m.searchQuery, m.now)
}

// visibleSessions returns the sessions currently in the list.
func (m Model) visibleSessions() []model.SessionInfo {
	items := m.list.Items()
	sessions := make([]model.SessionInfo, 0, len(items))
	for _, item := range items {
		if bi, ok := item.(bubbleItem); ok {
			sessions = append(sessions, bi.session)
		}
	}
	return sessions
}

// buildListItems creates list items from the current sessions.
func (m Model) buildListItems() []list.Item {
	sessions := m.filteredSessions()
	now := m.now()
	items := make([]list.Item, len(sessions))
	for i, s := range sessions {
		items[i] = bubbleItem{session: s, now: now}
	}
	return items
}

// renderDetail renders the detail view for a bubble.
func (m Model) renderDetail(s model.SessionInfo) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	var b strings.Builder
	name := s.Bubble.DisplayName
	if name == "" {
		name = string(s.Bubble.Identity)
	}
	b.WriteString(badgeStyle.Render(s.Bubble.Initials()) + " " + headerStyle.Render(name) + "\n\n")

	b.WriteString(labelStyle.Render("User ID: ") + string(s.Bubble.Identity) + "\n")
	if s.SessionID != "" {
		b.WriteString(labelStyle.Render("Session: ") + s.SessionID + "\n")
	}
	b.WriteString(labelStyle.Render("Position: ") + fmt.Sprintf("%d, %d", s.Position.X, s.Position.Y) + "\n")
	b.WriteString(labelStyle.Render("Shown: ") + output.Age(s.CreatedAt, m.now()) + "\n")
	if s.Bubble.AvatarURL != "" {
		b.WriteString(labelStyle.Render("Avatar: ") + s.Bubble.AvatarURL + "\n")
	}

	return b.String()
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeDetail:
		return m.viewDetail()
	case ModeSearch:
		return m.viewSearch()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

func (m Model) statusLine(mode string) string {
	switch {
	case m.statusMsg != "":
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			style = style.Foreground(lipgloss.Color("9"))
		}
		return style.Render(m.statusMsg)
	case m.loadErr != nil:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Daemon unavailable: " + m.loadErr.Error())
	default:
		return m.buildKeybindBar(m.width, mode)
	}
}

func (m Model) viewList() string {
	return m.list.View() + "\n" + m.statusLine("list")
}

func (m Model) viewDetail() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Render("Bubble Detail")

	return header + "\n" + m.viewport.View() + "\n" + m.statusLine("detail")
}

func (m Model) viewSearch() string {
	countStr := fmt.Sprintf("(%d matches)", len(m.list.Items()))
	searchBar := "Search: " + m.searchInput.View() + " " +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(countStr)

	return searchBar + "\n" + m.list.View() + "\n" + m.buildKeybindBar(m.width, "search")
}

func (m Model) viewHelp() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1).
		Render("Keyboard Shortcuts")

	footer := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Press ? or esc to return")
	return title + "\n\n" + m.help.View(m.keys) + "\n\n" + footer
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
func (m Model) buildKeybindBar(width int, mode string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind
	switch mode {
	case "list":
		binds = []keybind{
			{"q", "quit", 1},
			{"enter", "view", 2},
			{"d", "hide", 3},
			{"?", "help", 4},
			{"/", "search", 5},
			{"D", "hide all", 6},
			{"c", "copy", 7},
			{"r", "refresh", 8},
		}
	case "detail":
		binds = []keybind{
			{"q", "quit", 1},
			{"esc", "back", 2},
			{"d", "hide", 3},
			{"c", "copy id", 4},
		}
	case "search":
		binds = []keybind{
			{"enter", "view", 1},
			{"esc", "close", 2},
			{"↑/↓", "navigate", 3},
		}
	}

	const separator = "  "
	var parts []string
	plainLen := 0
	for _, b := range binds {
		plain := b.key + " " + b.desc
		next := plainLen + len(plain)
		if len(parts) > 0 {
			next += len(separator)
		}
		if width > 0 && next > width {
			break
		}
		parts = append(parts, keyStyle.Render(b.key)+" "+b.desc)
		plainLen = next
	}

	return style.Render(strings.Join(parts, separator))
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config  *config.Config
	Backend Backend
	// Watch, when set, streams daemon signals so the list refreshes as
	// bubbles come and go instead of waiting for the next tick.
	Watch func(ctx context.Context, fn func(dbus.Signal)) error
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	p := tea.NewProgram(New(opts.Config, opts.Backend), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.Watch != nil {
		go func() {
			err := opts.Watch(ctx, func(dbus.Signal) {
				p.Send(RefreshMsg{})
			})
			if err != nil {
				p.Send(statusMsg{text: "Signal watch stopped: " + err.Error(), isErr: true})
			}
		}()
	}

	_, err := p.Run()
	return err
}
