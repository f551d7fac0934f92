package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog/view"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/logging"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
	"github.com/FelixdelasPozas/SuperDuck/pkg/transfer"
)

var logger = logging.Get("tui")

// AppState represents the current state of the browser.
type AppState int

const (
	StateBrowse AppState = iota
	StateFilter
	StatePrompt
	StateConfirm
	StateRunning
)

// promptKind is what a text prompt is collecting.
type promptKind int

const (
	promptMkdir promptKind = iota
	promptUpload
)

// Options configures the browser.
type Options struct {
	Model *view.Model

	// Dispatcher runs remote operations. Nil means offline: browsing,
	// filtering and saving work, remote actions report Offline.
	Dispatcher *transfer.Dispatcher
	Offline    string

	// Bucket is shown in the header.
	Bucket string

	// Save writes the catalog to its database file.
	Save func() error
	// Record stores a finished operation, if history is enabled.
	Record func(transfer.Result)

	Settings

	// Reload delivers settings changed while the browser runs.
	Reload <-chan Settings
}

// Settings are the options that can change while the browser runs.
type Settings struct {
	DisableDelete     bool
	DownloadDir       string
	DownloadFullPaths bool
}

// Messages.
type (
	resultMsg   struct{}
	tickMsg     struct{}
	settingsMsg Settings
)

// statusKind colors the status line.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

// Model is the Bubble Tea model of the browser.
type Model struct {
	state   AppState
	options Options
	tree    *TreeView

	ctx    context.Context
	cancel context.CancelFunc

	input  textinput.Model
	prompt promptKind

	// pending is the request waiting for confirmation.
	pending transfer.Request
	// running is the request being executed.
	running  transfer.Request
	progress transfer.Progress
	spinner  spinner.Model
	// collected holds a finished result until Update or Run takes it.
	collected chan transfer.Result

	status     string
	statusKind statusKind
	showLog    bool

	width  int
	height int
}

// NewModel creates the browser model.
func NewModel(opts Options) Model {
	if opts.Save == nil {
		opts.Save = func() error { return nil }
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = fg(duckYellow)

	ti := textinput.New()
	ti.CharLimit = 1024

	m := Model{
		state:     StateBrowse,
		options:   opts,
		tree:      NewTreeView(opts.Model),
		ctx:       ctx,
		cancel:    cancel,
		input:     ti,
		spinner:   s,
		collected: make(chan transfer.Result, 1),
		width:     80,
		height:    24,
	}
	if opts.Dispatcher == nil && opts.Offline != "" {
		m.setStatus(statusWarn, "offline: %s", opts.Offline)
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return waitSettings(m.options.Reload)
}

func waitSettings(ch <-chan Settings) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return settingsMsg(s)
	}
}

func (m *Model) setStatus(kind statusKind, format string, args ...any) {
	m.statusKind = kind
	m.status = fmt.Sprintf(format, args...)
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// waitResult blocks on the dispatcher's result channel. The result is
// applied in Update, on the goroutine that owns the catalog, or by Run when
// the browser quit before it arrived.
func waitResult(d *transfer.Dispatcher, collected chan<- transfer.Result) tea.Cmd {
	return func() tea.Msg {
		collected <- <-d.Results()
		return resultMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if m.state != StateRunning {
			return m, nil
		}
		m.drainProgress()
		return m, tick()

	case spinner.TickMsg:
		if m.state != StateRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case settingsMsg:
		m.options.Settings = Settings(msg)
		m.setStatus(statusInfo, "configuration reloaded")
		return m, waitSettings(m.options.Reload)

	case resultMsg:
		select {
		case res := <-m.collected:
			m.finish(res)
		default:
		}
		return m, nil
	}

	if m.state == StateFilter || m.state == StatePrompt {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) drainProgress() {
	d := m.options.Dispatcher
	for {
		select {
		case p := <-d.Progress():
			if p.RequestID == m.running.ID {
				m.progress = p
			}
		default:
			return
		}
	}
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		if m.state == StateRunning {
			m.options.Dispatcher.Abort()
		}
		m.cancel()
		return m, tea.Quit
	}

	switch m.state {
	case StateFilter:
		return m.handleFilterKey(msg)
	case StatePrompt:
		return m.handlePromptKey(msg)
	case StateConfirm:
		return m.handleConfirmKey(key)
	case StateRunning:
		if key == "esc" || key == "x" {
			m.options.Dispatcher.Abort()
			m.setStatus(statusWarn, "aborting %s...", m.running.Kind)
		}
		// browsing stays possible while an operation runs
		m.handleNavKey(key)
		return m, nil
	}

	switch key {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "/":
		m.state = StateFilter
		m.input.Placeholder = "filter"
		m.input.SetValue(m.options.Model.Catalog().Filter())
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd
	case "esc":
		if m.tree.SelectionCount() > 0 {
			m.tree.ClearSelection()
		} else if m.options.Model.Catalog().Filter() != "" {
			m.options.Model.SetFilter("")
		}
	case "s":
		// saving renumbers the catalog, so it runs here rather than in a Cmd
		if err := m.options.Save(); err != nil {
			m.setStatus(statusError, "save failed: %v", err)
		} else {
			m.setStatus(statusOK, "catalog saved")
		}
	case "L":
		m.showLog = !m.showLog
	case "m":
		return m.openPrompt(promptMkdir, "new directory name")
	case "u":
		return m.openPrompt(promptUpload, "local file or directory to upload")
	case "d":
		return m.askDelete()
	case "D":
		return m.startDownload()
	default:
		m.handleNavKey(key)
	}
	return m, nil
}

func (m *Model) handleNavKey(key string) {
	switch key {
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "pgup", "ctrl+u":
		m.tree.PageUp()
	case "pgdown", "ctrl+d":
		m.tree.PageDown()
	case "home", "g":
		m.tree.Home()
	case "end", "G":
		m.tree.End()
	case "right", "l":
		m.tree.Expand()
	case "left", "h":
		m.tree.Collapse()
	case "enter":
		m.tree.ToggleExpand()
	case " ":
		m.tree.ToggleSelect()
		m.tree.MoveDown()
	}
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.state = StateBrowse
		return m, nil
	case "enter":
		m.input.Blur()
		m.state = StateBrowse
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	// filtering is applied as the text changes
	if m.options.Model.SetFilter(m.input.Value()) {
		s := m.options.Model.Catalog().RootNode()
		m.setStatus(statusInfo, "%d files match, %s", s.FileCount(), types.FormatSize(s.Size()))
	}
	return m, cmd
}

func (m Model) openPrompt(kind promptKind, placeholder string) (tea.Model, tea.Cmd) {
	if m.options.Dispatcher == nil {
		m.setStatus(statusWarn, "offline: %s", m.options.Offline)
		return m, nil
	}
	m.state = StatePrompt
	m.prompt = kind
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.state = StateBrowse
		return m, nil
	case "enter":
		m.input.Blur()
		m.state = StateBrowse
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}
		switch m.prompt {
		case promptMkdir:
			return m.startMkdir(value)
		case promptUpload:
			return m.startUpload(value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		m.state = StateBrowse
		return m.submit(m.pending)
	case "n", "N", "esc", "q":
		m.state = StateBrowse
		m.pending = transfer.Request{}
		m.setStatus(statusInfo, "cancelled")
	}
	return m, nil
}

func (m Model) askDelete() (tea.Model, tea.Cmd) {
	switch {
	case m.options.Dispatcher == nil:
		m.setStatus(statusWarn, "offline: %s", m.options.Offline)
		return m, nil
	case m.options.DisableDelete:
		m.setStatus(statusWarn, "deleting is disabled (disable_delete in the config file)")
		return m, nil
	}
	ids := m.tree.Targets()
	req := transfer.DeleteRequest(m.options.Model.Catalog(), ids)
	if len(req.Items) == 0 {
		return m, nil
	}
	m.pending = req
	m.state = StateConfirm
	return m, nil
}

func (m Model) startDownload() (tea.Model, tea.Cmd) {
	if m.options.Dispatcher == nil {
		m.setStatus(statusWarn, "offline: %s", m.options.Offline)
		return m, nil
	}
	if m.options.DownloadDir == "" {
		m.setStatus(statusWarn, "no download directory (download.path)")
		return m, nil
	}
	req := transfer.DownloadRequest(m.options.Model.Catalog(), m.tree.Targets(), m.options.DownloadDir, m.options.DownloadFullPaths)
	if len(req.Items) == 0 {
		return m, nil
	}
	return m.submit(req)
}

func (m Model) startMkdir(name string) (tea.Model, tea.Cmd) {
	req, _, err := transfer.PrepareCreateDirectory(m.options.Model, m.tree.CurrentDir(), name)
	if err != nil {
		m.setStatus(statusError, "%v", err)
		return m, nil
	}
	return m.submit(req)
}

func (m Model) startUpload(local string) (tea.Model, tea.Cmd) {
	if rest, ok := strings.CutPrefix(local, "~"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			local = filepath.Join(home, rest)
		}
	}
	req, err := transfer.UploadRequest([]string{local}, m.tree.CurrentDir())
	if err != nil {
		m.setStatus(statusError, "%v", err)
		return m, nil
	}
	return m.submit(req)
}

// submit hands req to the dispatcher and starts waiting for its result.
func (m Model) submit(req transfer.Request) (tea.Model, tea.Cmd) {
	d := m.options.Dispatcher
	if err := d.Submit(m.ctx, req); err != nil {
		if errors.Is(err, transfer.ErrBusy) {
			m.setStatus(statusWarn, "an operation is already running")
		} else {
			m.setStatus(statusError, "%v", err)
		}
		return m, nil
	}
	m.state = StateRunning
	m.running = req
	m.progress = transfer.Progress{RequestID: req.ID, Kind: req.Kind, Total: len(req.Items), TotalBytes: req.TotalBytes()}
	m.pending = transfer.Request{}
	m.setStatus(statusInfo, "%s of %d items started", req.Kind, len(req.Items))
	logger.Info("operation submitted", "id", req.ID, "kind", req.Kind, "items", len(req.Items))
	return m, tea.Batch(waitResult(d, m.collected), tick(), m.spinner.Tick)
}

// finish applies a finished result to the catalog.
func (m *Model) finish(res transfer.Result) {
	m.state = StateBrowse
	m.running = transfer.Request{}

	applied, err := transfer.Apply(m.options.Model, res)
	if m.options.Record != nil {
		m.options.Record(res)
	}
	if res.Request.Kind == transfer.Delete {
		m.tree.ClearSelection()
	}

	switch {
	case err != nil:
		m.setStatus(statusError, "%s finished but the catalog update failed: %v", res.Request.Kind, err)
	case res.Aborted:
		m.setStatus(statusWarn, "%s aborted after %d items", res.Request.Kind, len(res.Succeeded))
	case len(res.Failed) > 0:
		m.setStatus(statusError, "%s: %d failed, first: %s", res.Request.Kind, len(res.Failed), firstFailure(res))
	default:
		m.setStatus(statusOK, "%s: %d items, %s", res.Request.Kind, len(res.Succeeded), types.FormatSize(res.Bytes()))
	}
	if len(applied.Kept) > 0 {
		logger.Info("directories kept after delete", "count", len(applied.Kept))
	}
}

func firstFailure(res transfer.Result) string {
	paths := make([]string, 0, len(res.Failed))
	for p := range res.Failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return fmt.Sprintf("%s (%v)", paths[0], res.Failed[paths[0]])
}

// View renders the browser.
func (m Model) View() string {
	contentWidth := max(m.width-4, 20)

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(rule(contentWidth))
	b.WriteString("\n")

	// header, two dividers, status, help and box borders
	rows := m.height - 8
	var logPane string
	if m.showLog {
		logPane = m.renderLog(contentWidth)
		rows -= lipgloss.Height(logPane) + 1
	}
	b.WriteString(m.tree.View(contentWidth, max(rows, 1)))

	if m.showLog {
		b.WriteString(rule(contentWidth))
		b.WriteString("\n")
		b.WriteString(logPane)
		b.WriteString("\n")
	}

	b.WriteString(rule(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderStatus(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	out := frameStyle.Width(m.width - 2).Render(b.String())
	if m.state == StateConfirm {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderConfirm())
	}
	return out
}

func (m Model) renderHeader() string {
	c := m.options.Model.Catalog()
	root := c.RootNode()
	header := brandStyle.Render(" 🦆 SUPERDUCK")
	if m.options.Bucket != "" {
		header += dimStyle.Render("  s3://" + m.options.Bucket)
	}
	header += dimStyle.Render(fmt.Sprintf("  %d files  •  %d dirs  •  %s",
		root.FileCount(), root.DirectoryCount(), types.FormatSize(root.Size())))
	if f := c.Filter(); f != "" {
		header += cautionStyle.Render(fmt.Sprintf("  filter: %q", f))
	}
	if n := m.tree.SelectionCount(); n > 0 {
		header += goodStyle.Render(fmt.Sprintf("  %d selected", n))
	}
	if c.IsDirty() {
		header += cautionStyle.Render("  ●")
	}
	return header
}

func (m Model) renderStatus(width int) string {
	switch m.state {
	case StateFilter, StatePrompt:
		return m.input.View()
	case StateRunning:
		p := m.progress
		barWidth := max(width/3, 10)
		filled := int(p.Fraction() * float64(barWidth))
		bar := barDoneStyle.Render(strings.Repeat("█", filled)) +
			barLeftStyle.Render(strings.Repeat("░", barWidth-filled))
		line := fmt.Sprintf("%s %s %d/%d %s %3d%% ", m.spinner.View(), p.Kind, p.Done, p.Total, bar, int(p.Fraction()*100))
		return line + dimStyle.Render(ellipsize(p.Path, max(width-lipgloss.Width(line), 0)))
	}

	return statusStyle(m.statusKind).Render(ellipsize(m.status, width))
}

func (m Model) renderHelp() string {
	type hint struct{ key, desc string }
	var hints []hint
	switch m.state {
	case StateFilter, StatePrompt:
		hints = []hint{{"enter", "accept"}, {"esc", "cancel"}}
	case StateRunning:
		hints = []hint{{"x", "abort"}, {"↑↓", "move"}, {"ctrl+c", "quit"}}
	default:
		hints = []hint{
			{"↑↓", "move"}, {"enter", "expand"}, {"space", "select"}, {"/", "filter"},
			{"D", "download"}, {"u", "upload"}, {"m", "mkdir"}, {"d", "delete"},
			{"s", "save"}, {"L", "log"}, {"q", "quit"},
		}
	}
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = hintKeyStyle.Render(h.key) + " " + hintStyle.Render(h.desc)
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderConfirm() string {
	req := m.pending
	var files, dirs int
	for _, it := range req.Items {
		if it.IsDir() {
			dirs++
		} else {
			files++
		}
	}

	var b strings.Builder
	b.WriteString(confirmTitleStyle.Render("Confirm Deletion"))
	b.WriteString("\n\n")
	b.WriteString(confirmBodyStyle.Render(fmt.Sprintf("Delete %d files and %d directories (%s) from the bucket?",
		files, dirs, types.FormatSize(req.TotalBytes()))))
	b.WriteString("\n\n")
	for i, it := range req.Items {
		if i == 5 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("... and %d more", len(req.Items)-5)))
			b.WriteString("\n")
			break
		}
		b.WriteString(dimStyle.Render(ellipsize(it.Path, 50)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(hintKeyStyle.Render("[y]") + " " + hintStyle.Render("delete") + "   " +
		hintKeyStyle.Render("[n]") + " " + hintStyle.Render("cancel"))
	return confirmFrameStyle.Render(b.String())
}

const logPaneRows = 6

func (m Model) renderLog(width int) string {
	entries := logging.RecentEntries(logPaneRows)
	if len(entries) == 0 {
		return dimStyle.Render("no log entries")
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		line := fmt.Sprintf("%s %-5s %-8s %s", e.Time.Format("15:04:05"), e.Level, e.Component, e.Message)
		lines[i] = levelStyle(e.Level).Render(ellipsize(line, width))
	}
	return strings.Join(lines, "\n")
}

// Run starts the browser and blocks until it exits.
func Run(opts Options) error {
	if opts.Model == nil {
		return errors.New("no catalog")
	}
	model := NewModel(opts)
	logger.Info("browser started", "nodes", opts.Model.Catalog().Len())

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(Model); ok && fm.state == StateRunning {
		// quit mid-operation: wait for the aborted result so the catalog
		// reflects what happened remotely. The pending waitResult may or
		// may not have started, so take it from whichever gets it.
		select {
		case res := <-fm.collected:
			fm.finish(res)
		case res := <-opts.Dispatcher.Results():
			fm.finish(res)
		}
	}
	return err
}

// Ensure Model implements tea.Model.
var _ tea.Model = Model{}
