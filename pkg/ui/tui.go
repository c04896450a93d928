package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/marketlive/business/market/app"
	"github.com/fd1az/marketlive/business/market/domain"
	"github.com/fd1az/marketlive/pkg/ui/components"
)

// FeedConnection is the status bar name of the price stream.
const FeedConnection = "Live prices"

// Actions are the operations the TUI triggers. They run inside tea.Cmd
// goroutines and report back through snapshots.
type Actions interface {
	ApplyFilter(ctx context.Context, q domain.ItemQuery) error
	ClearFilter(ctx context.Context) error
	OpenItem(ctx context.Context, id string) error
	CloseItem(ctx context.Context)
	ToggleOfferForm(ctx context.Context)
	SubmitOffer(ctx context.Context, form domain.OfferForm) error
	DismissAlert(ctx context.Context, id string)
	Reconnect(ctx context.Context) error
	Stats() app.ServiceStats
}

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// StartupTimeout moves on to the dashboard even if the listing never loads.
const StartupTimeout = 10 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

type focus int

const (
	focusGrid focus = iota
	focusFilter
	focusOffer
)

var (
	filterLabels = []string{"Search", "Min $", "Max $"}
	offerLabels  = []string{"Name", "Email", "Amount"}
)

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	actions Actions
	keys    KeyMap
	help    help.Model

	// Components
	grid   *components.GridComponent
	detail *components.DetailComponent
	alerts *components.AlertsComponent
	status *components.StatusComponent
	stats  *components.StatsComponent

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready      bool
	quitting   bool
	width      int
	height     int
	lastUpdate time.Time
	errors     []ErrorEntry // Persistent error panel (last 3)

	// Startup state
	startupSteps map[string]*StartupStep
	startupTime  time.Time

	// Projection state
	snap         app.Snapshot
	focus        focus
	filterInputs []textinput.Model
	filterIdx    int
	offerInputs  []textinput.Model
	offerIdx     int
	formResets   uint64
}

// New creates a new TUI model driving actions.
func New(actions Actions) Model {
	now := time.Now()

	status := components.NewStatusComponent()
	status.Update(components.ConnectionStatus{Name: FeedConnection})

	return Model{
		actions:      actions,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		grid:         components.NewGridComponent(15),
		detail:       components.NewDetailComponent(),
		alerts:       components.NewAlertsComponent(),
		status:       status,
		stats:        components.NewStatsComponent(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		errors:       make([]ErrorEntry, 0, 3),
		startupSteps: map[string]*StartupStep{
			"config": {Name: "Loading configuration", Status: "pending"},
			"feed":   {Name: "Connecting to live prices", Status: "pending"},
			"items":  {Name: "Loading items", Status: "pending"},
		},
		startupTime:  now,
		filterInputs: newInputs(filterLabels, []int{64, 12, 12}),
		offerInputs:  newInputs(offerLabels, []int{64, 128, 16}),
	}
}

func newInputs(placeholders []string, limits []int) []textinput.Model {
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = strings.ToLower(strings.TrimSuffix(p, " $"))
		ti.CharLimit = limits[i]
		ti.Width = 20
		ti.Cursor.SetMode(cursor.CursorStatic)
		inputs[i] = ti
	}
	return inputs
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// run wraps an action into a command reporting its outcome.
func (m Model) run(action string, fn func(ctx context.Context, a Actions) error) tea.Cmd {
	a := m.actions
	if a == nil {
		return nil
	}
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(context.Background(), a)}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			if key.Matches(msg, m.keys.Quit) {
				m.quitting = true
				return m, tea.Quit
			}
			m.startModules()
			return m, nil
		}
		switch m.focus {
		case focusFilter:
			return m.updateFilter(msg)
		case focusOffer:
			return m.updateOffer(msg)
		default:
			return m.updateGrid(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.detail.SetWidth(m.width/2 - 6)
		m.ready = true

	case TickMsg:
		// Check if welcome timeout has elapsed
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.startModules()
		}
		if m.phase == PhaseStartup && time.Since(m.startupTime) >= StartupTimeout {
			m.phase = PhaseDashboard
		}
		m.refreshStats()
		return m, tickCmd()

	case SnapshotMsg:
		return m.applySnapshot(msg.Snapshot)

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			LastUpdate: time.Now(),
		})
		m.lastUpdate = time.Now()

		if step, ok := m.startupSteps["feed"]; ok {
			if msg.Connected {
				step.Status = "connected"
			} else {
				step.Status = "connecting"
			}
		}
		m.startupSteps["config"].Status = "done"

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}

	case actionDoneMsg:
		// Offer, filter and detail failures are already on screen as
		// alerts or placeholders.
		if msg.err != nil && msg.action == "reconnect" {
			m.addError(msg.err)
		}
		m.refreshStats()

	case ErrorMsg:
		m.addError(msg.Error)
		if m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}
	}

	return m, nil
}

func (m *Model) startModules() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Trigger callback directly (don't use Send() from within Update)
	if OnStartModules != nil {
		go OnStartModules()
	}
}

func (m *Model) addError(err error) {
	m.errors = append(m.errors, ErrorEntry{
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

func (m *Model) refreshStats() {
	if m.actions == nil {
		return
	}
	s := m.actions.Stats()
	m.status.SetReconnectPending(FeedConnection, s.ReconnectPending)
	m.stats.Update(components.Stats{
		Items:        len(m.snap.Rows),
		Messages:     s.Connection.Messages,
		Dropped:      s.Connection.Dropped,
		DialAttempts: s.Connection.DialAttempts,
		Reconnects:   s.Connection.ReconnectsScheduled,
		Filter:       describeFilter(s.Filter),
	})
}

func describeFilter(q domain.ItemQuery) string {
	parts := make([]string, 0, 3)
	for _, p := range q.Params() {
		parts = append(parts, p.Key+"="+p.Value)
	}
	return strings.Join(parts, " ")
}

// applySnapshot installs snap unless a newer one is already shown.
func (m Model) applySnapshot(snap app.Snapshot) (tea.Model, tea.Cmd) {
	if snap.Version <= m.snap.Version {
		return m, nil
	}
	prev := m.snap
	m.snap = snap
	m.lastUpdate = time.Now()

	rows := make([]components.GridRow, len(snap.Rows))
	for i, r := range snap.Rows {
		rows[i] = components.GridRow{ID: r.ID, Name: r.Name, Price: r.Price, Highlighted: r.Highlighted}
	}
	m.grid.Update(rows, snap.Placeholder.Text())

	if d := snap.Detail; d != nil {
		m.detail.Update(&components.DetailRow{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Price:       d.Price,
			OfferCount:  d.OfferCount,
			Highlighted: d.Highlighted,
		})
	} else {
		m.detail.Update(nil)
	}

	alerts := make([]components.AlertRow, len(snap.Alerts))
	for i, a := range snap.Alerts {
		alerts[i] = components.AlertRow{ID: a.ID, Kind: a.Kind.String(), Text: a.Text}
	}
	m.alerts.Update(alerts)

	if snap.Form.Resets != m.formResets {
		m.formResets = snap.Form.Resets
		for i := range m.offerInputs {
			m.offerInputs[i].Reset()
		}
		m.offerIdx = 0
	}

	var cmd tea.Cmd
	switch {
	case snap.Form.Visible && !prev.Form.Visible:
		m.blurAll()
		m.focus = focusOffer
		m.offerIdx = 0
		cmd = m.offerInputs[0].Focus()
	case !snap.Form.Visible && m.focus == focusOffer:
		m.blurAll()
		m.focus = focusGrid
	}

	if step := m.startupSteps["items"]; step.Status != "done" {
		step.Status = "done"
		m.startupSteps["config"].Status = "done"
		if m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}
	}
	m.refreshStats()
	return m, cmd
}

func (m *Model) blurAll() {
	for i := range m.filterInputs {
		m.filterInputs[i].Blur()
	}
	for i := range m.offerInputs {
		m.offerInputs[i].Blur()
	}
}

func cycle(inputs []textinput.Model, idx, delta int) (int, tea.Cmd) {
	inputs[idx].Blur()
	idx = (idx + delta + len(inputs)) % len(inputs)
	return idx, inputs[idx].Focus()
}

func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.grid.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.grid.MoveDown()
	case key.Matches(msg, m.keys.Open):
		if id, ok := m.grid.Selected(); ok {
			return m, m.run("open", func(ctx context.Context, a Actions) error {
				return a.OpenItem(ctx, id)
			})
		}
	case key.Matches(msg, m.keys.Back):
		if m.snap.Detail != nil {
			return m, m.run("close", func(ctx context.Context, a Actions) error {
				a.CloseItem(ctx)
				return nil
			})
		}
	case key.Matches(msg, m.keys.Filter):
		m.blurAll()
		m.focus = focusFilter
		m.filterIdx = 0
		return m, m.filterInputs[0].Focus()
	case key.Matches(msg, m.keys.Clear):
		for i := range m.filterInputs {
			m.filterInputs[i].Reset()
		}
		return m, m.run("clear", func(ctx context.Context, a Actions) error {
			return a.ClearFilter(ctx)
		})
	case key.Matches(msg, m.keys.Offer):
		if m.snap.Detail != nil {
			return m, m.run("toggle", func(ctx context.Context, a Actions) error {
				a.ToggleOfferForm(ctx)
				return nil
			})
		}
	case key.Matches(msg, m.keys.Dismiss):
		if id, ok := m.alerts.Oldest(); ok {
			return m, m.run("dismiss", func(ctx context.Context, a Actions) error {
				a.DismissAlert(ctx, id)
				return nil
			})
		}
	case key.Matches(msg, m.keys.Reconnect):
		return m, m.run("reconnect", func(ctx context.Context, a Actions) error {
			return a.Reconnect(ctx)
		})
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.blurAll()
		m.focus = focusGrid
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		q := domain.ItemQuery{
			Text:     m.filterInputs[0].Value(),
			MinPrice: m.filterInputs[1].Value(),
			MaxPrice: m.filterInputs[2].Value(),
		}
		m.blurAll()
		m.focus = focusGrid
		return m, m.run("filter", func(ctx context.Context, a Actions) error {
			return a.ApplyFilter(ctx, q)
		})
	case key.Matches(msg, m.keys.NextField):
		var cmd tea.Cmd
		m.filterIdx, cmd = cycle(m.filterInputs, m.filterIdx, 1)
		return m, cmd
	case key.Matches(msg, m.keys.PrevField):
		var cmd tea.Cmd
		m.filterIdx, cmd = cycle(m.filterInputs, m.filterIdx, -1)
		return m, cmd
	}

	var cmd tea.Cmd
	m.filterInputs[m.filterIdx], cmd = m.filterInputs[m.filterIdx].Update(msg)
	return m, cmd
}

func (m Model) updateOffer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.blurAll()
		m.focus = focusGrid
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if m.snap.Form.Pending || m.snap.Detail == nil {
			return m, nil
		}
		form := domain.OfferForm{
			Name:   m.offerInputs[0].Value(),
			Email:  m.offerInputs[1].Value(),
			ItemID: m.snap.Detail.ID,
			Amount: m.offerInputs[2].Value(),
		}
		return m, m.run("offer", func(ctx context.Context, a Actions) error {
			return a.SubmitOffer(ctx, form)
		})
	case key.Matches(msg, m.keys.NextField):
		var cmd tea.Cmd
		m.offerIdx, cmd = cycle(m.offerInputs, m.offerIdx, 1)
		return m, cmd
	case key.Matches(msg, m.keys.PrevField):
		var cmd tea.Cmd
		m.offerIdx, cmd = cycle(m.offerInputs, m.offerIdx, -1)
		return m, cmd
	}

	var cmd tea.Cmd
	m.offerInputs[m.offerIdx], cmd = m.offerInputs[m.offerIdx].Update(msg)
	return m, cmd
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" marketlive "))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	b.WriteString(m.renderFilterBar())
	b.WriteString("\n\n")

	gridBox, detailBox := BoxStyle, BoxStyle
	if m.focus == focusOffer {
		detailBox = FocusBoxStyle
	} else {
		gridBox = FocusBoxStyle
	}

	leftCol := m.grid.View()
	rightCol := m.detail.View() + m.renderOfferSection()

	// Side by side if enough width
	if m.width > 100 {
		left := gridBox.Width(m.width/2 - 2).Render(leftCol)
		right := detailBox.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		w := max(m.width-4, 40)
		b.WriteString(gridBox.Width(w).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(detailBox.Width(w).Render(rightCol))
	}
	b.WriteString("\n\n")

	if alerts := m.alerts.View(); alerts != "" {
		b.WriteString(AlertBoxStyle.Render(alerts))
		b.WriteString(MutedValue.Render("  (d: dismiss)"))
		b.WriteString("\n\n")
	}

	// Persistent error panel (show last 3 errors)
	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", components.SafeText(err.Message))))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) renderFilterBar() string {
	parts := make([]string, len(m.filterInputs))
	for i, in := range m.filterInputs {
		label := LabelStyle.Render(filterLabels[i])
		if m.focus == focusFilter && i == m.filterIdx {
			label = HeaderStyle.UnsetPadding().Width(8).Render(filterLabels[i])
		}
		parts[i] = label + in.View()
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderOfferSection() string {
	if m.snap.Detail == nil {
		return ""
	}
	form := m.snap.Form

	var sb strings.Builder
	sb.WriteString("\n")
	if !form.Visible {
		sb.WriteString(HelpStyle.Render("o: " + form.ToggleLabel))
		return sb.String()
	}

	sb.WriteString(HeaderStyle.UnsetPadding().Render("MAKE AN OFFER"))
	sb.WriteString("\n")
	for i, in := range m.offerInputs {
		sb.WriteString(LabelStyle.Render(offerLabels[i]))
		sb.WriteString(in.View())
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	if form.Pending {
		sb.WriteString(ButtonDisabledStyle.Render(form.SubmitLabel))
	} else {
		sb.WriteString(ButtonStyle.Render(form.SubmitLabel))
	}
	sb.WriteString("  ")
	sb.WriteString(HelpStyle.Render("o: " + form.ToggleLabel))
	return sb.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	goldStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorWarning)

	greenStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary)

	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder

	// Center the content vertically
	sb.WriteString("\n\n\n\n")

	logo := `
   ███╗   ███╗ █████╗ ██████╗ ██╗  ██╗███████╗████████╗
   ████╗ ████║██╔══██╗██╔══██╗██║ ██╔╝██╔════╝╚══██╔══╝
   ██╔████╔██║███████║██████╔╝█████╔╝ █████╗     ██║
   ██║╚██╔╝██║██╔══██║██╔══██╗██╔═██╗ ██╔══╝     ██║
   ██║ ╚═╝ ██║██║  ██║██║  ██║██║  ██╗███████╗   ██║
   ╚═╝     ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝   ╚═╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")

	sb.WriteString(MutedValue.Render("                     L I V E   P R I C E S"))
	sb.WriteString("\n\n\n")

	sb.WriteString(goldStyle.Render("               Browse, filter and make offers"))
	sb.WriteString("\n\n\n")

	sb.WriteString(greenStyle.Render(fmt.Sprintf("                      Initializing%s", dots)))
	sb.WriteString("\n\n")

	sb.WriteString(MutedValue.Render("             Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF"))

	successStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	connectingStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	failedStyle := lipgloss.NewStyle().Foreground(ColorDanger)

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  marketlive"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, name := range []string{"config", "feed", "items"} {
		step, ok := m.startupSteps[name]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon = "✓"
			statusText = "Ready"
			style = successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon = spinners[idx]
			statusText = "Connecting..."
			style = connectingStyle
		case "failed":
			icon = "✗"
			statusText = "Failed"
			style = failedStyle
		default:
			icon = "○"
			statusText = "Pending"
			style = MutedValue
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			MutedValue.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{m.status.View()}

	if m.snap.Form.Pending {
		parts = append(parts, StatusPending.Render("Sending offer..."))
	}

	// Last update with activity indicator
	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪" // Recent activity indicator
		}
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	// Call OnStartModules callback when StartModulesMsg is sent
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
