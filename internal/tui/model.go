// Package tui provides the Bubble Tea experiment dashboard.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ishannjr/neonblue/internal/api"
	"github.com/ishannjr/neonblue/internal/model"
	"github.com/ishannjr/neonblue/internal/report"
	"github.com/ishannjr/neonblue/internal/views"
)

type healthState int

const (
	healthChecking healthState = iota
	healthOnline
	healthOffline
)

type loadState int

const (
	loadIdle loadState = iota
	loadLoading
	loadLoaded
	loadFailed
)

const (
	tabExperiments = iota
	tabOverview
	tabAllocation
	tabConversion
	tabEvents
	tabMatrix
	tabTimeSeries
)

const plotHeight = 10

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	onlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#73D13D"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	loginBoxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

type healthMsg struct {
	health model.Health
	err    error
}

type experimentsMsg struct {
	list model.ExperimentList
	err  error
}

type resultsMsg struct {
	gen     int
	results model.ExperimentResults
	err     error
}

// Model implements the Bubble Tea dashboard UI.
type Model struct {
	client *api.Client

	health  healthState
	version string

	authenticated bool
	authPending   bool
	tokenInput    textinput.Model
	authErr       string

	experiments []model.Experiment
	expTable    table.Model

	selected   *model.Experiment
	results    *model.ExperimentResults
	load       loadState
	loadErr    string
	resultsGen int

	curveWindow int

	tabs      []string
	activeTab int
	viewports []viewport.Model

	width  int
	height int
}

// NewModel constructs the dashboard model. A configured token pre-fills
// the login prompt but is not submitted automatically.
func NewModel(client *api.Client, token string, curveWindow int) *Model {
	input := textinput.New()
	input.Prompt = "Token: "
	input.EchoMode = textinput.EchoPassword
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	input.SetValue(token)

	m := &Model{
		client:      client,
		health:      healthChecking,
		tokenInput:  input,
		curveWindow: curveWindow,
		tabs:        []string{"Experiments", "Overview", "Allocation", "Conversion", "Events", "Matrix", "Time Series"},
	}
	m.expTable = buildExperimentTable(nil, 0, 1)
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(checkHealthCmd(m.client), m.tokenInput.Focus())
}

func checkHealthCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		health, err := client.CheckHealth(context.Background())
		return healthMsg{health: health, err: err}
	}
}

func listExperimentsCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		list, err := client.ListExperiments(context.Background(), api.ListOptions{})
		return experimentsMsg{list: list, err: err}
	}
}

func fetchResultsCmd(client *api.Client, id int64, gen int) tea.Cmd {
	return func() tea.Msg {
		results, err := client.GetExperimentResults(context.Background(), id, api.ResultsOptions{
			Format:            api.FormatFull,
			IncludeTimeSeries: true,
			Granularity:       api.GranularityDay,
		})
		return resultsMsg{gen: gen, results: results, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case healthMsg:
		if msg.err != nil {
			m.health = healthOffline
		} else {
			m.health = healthOnline
			m.version = msg.health.Version
		}
		return m, nil
	case experimentsMsg:
		return m.handleExperiments(msg)
	case resultsMsg:
		return m.handleResults(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if !m.authenticated {
			return m.updateLogin(msg)
		}
		return m.updateDashboard(msg)
	}
	if !m.authenticated {
		var cmd tea.Cmd
		m.tokenInput, cmd = m.tokenInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleExperiments(msg experimentsMsg) (tea.Model, tea.Cmd) {
	m.authPending = false
	if msg.err != nil {
		// Stay unauthenticated and drop any partial state.
		m.authenticated = false
		m.authErr = msg.err.Error()
		m.experiments = nil
		m.selected = nil
		m.results = nil
		m.load = loadIdle
		return m, nil
	}
	m.authenticated = true
	m.authErr = ""
	m.experiments = msg.list.Experiments
	m.activeTab = tabExperiments
	m.rebuildExperimentTable()
	m.renderTabContents()
	return m, nil
}

func (m *Model) handleResults(msg resultsMsg) (tea.Model, tea.Cmd) {
	// A response from a superseded selection must never overwrite the
	// snapshot of a later one.
	if msg.gen != m.resultsGen {
		return m, nil
	}
	if msg.err != nil {
		m.load = loadFailed
		m.loadErr = msg.err.Error()
		m.results = nil
	} else {
		m.load = loadLoaded
		m.loadErr = ""
		m.results = &msg.results
	}
	m.renderTabContents()
	return m, nil
}

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m, m.submitLogin()
	case tea.KeyEsc:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.tokenInput, cmd = m.tokenInput.Update(msg)
	return m, cmd
}

// submitLogin validates the credential locally before touching the
// network; an empty token never issues a request.
func (m *Model) submitLogin() tea.Cmd {
	if m.authPending {
		return nil
	}
	token := strings.TrimSpace(m.tokenInput.Value())
	if token == "" {
		m.authErr = "token must not be empty"
		return nil
	}
	if m.health == healthOffline {
		m.authErr = "API is offline; cannot sign in"
		return nil
	}
	m.authErr = ""
	m.authPending = true
	m.client.SetToken(token)
	return listExperimentsCmd(m.client)
}

func (m *Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.activeTab == tabExperiments {
		m.expTable.Focus()
	} else {
		m.expTable.Blur()
	}
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "right", "l":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "enter":
		if m.activeTab == tabExperiments {
			return m, m.selectCurrentRow()
		}
		return m, nil
	case "r":
		return m, m.refresh()
	case "g", "home":
		if m.activeTab == tabExperiments {
			m.expTable.GotoTop()
		} else {
			m.viewports[m.activeTab].GotoTop()
		}
		return m, nil
	case "G", "end":
		if m.activeTab == tabExperiments {
			m.expTable.GotoBottom()
		} else {
			m.viewports[m.activeTab].GotoBottom()
		}
		return m, nil
	default:
		if m.activeTab == tabExperiments {
			var cmd tea.Cmd
			m.expTable, cmd = m.expTable.Update(msg)
			return m, cmd
		}
		vp := m.viewports[m.activeTab]
		var cmd tea.Cmd
		vp, cmd = vp.Update(msg)
		m.viewports[m.activeTab] = vp
		return m, cmd
	}
}

func (m *Model) selectCurrentRow() tea.Cmd {
	idx := m.expTable.Cursor()
	if idx < 0 || idx >= len(m.experiments) {
		return nil
	}
	return m.selectExperiment(m.experiments[idx])
}

// selectExperiment sets the selection immediately so the allocation tab
// can render before results arrive, then kicks off the fetch.
func (m *Model) selectExperiment(exp model.Experiment) tea.Cmd {
	selected := exp
	m.selected = &selected
	m.load = loadLoading
	m.loadErr = ""
	m.resultsGen++
	m.activeTab = tabOverview
	m.renderTabContents()
	return fetchResultsCmd(m.client, exp.ID, m.resultsGen)
}

// refresh re-issues the action for the active view: the experiment list
// on the experiments tab, the current selection's results elsewhere.
func (m *Model) refresh() tea.Cmd {
	if m.activeTab == tabExperiments {
		return listExperimentsCmd(m.client)
	}
	if m.selected == nil {
		return nil
	}
	m.load = loadLoading
	m.loadErr = ""
	m.resultsGen++
	m.renderTabContents()
	return fetchResultsCmd(m.client, m.selected.ID, m.resultsGen)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if !m.authenticated {
		return fitLines(m.renderLogin(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.loadErr != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.expTable.SetWidth(m.width)
	m.expTable.SetHeight(maxInt(1, bodyHeight-1))
	promptWidth := lipgloss.Width(m.tokenInput.Prompt)
	m.tokenInput.Width = maxInt(10, minInt(m.width-promptWidth-8, 60))
}

func (m *Model) renderLogin() string {
	title := cardValueStyle.Render("NeonBlue Dashboard")
	body := []string{
		title,
		m.renderHealthLine(),
		"",
		m.tokenInput.View(),
		headerStyle.Render("Enter to sign in / Esc to quit"),
	}
	if m.authPending {
		body = append(body, headerStyle.Render("Signing in..."))
	}
	if m.authErr != "" {
		body = append(body, errorStyle.Render(m.authErr))
	}
	box := loginBoxStyle.Width(loginBoxWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderHealthLine() string {
	switch m.health {
	case healthOnline:
		label := "API online"
		if m.version != "" {
			label += " (v" + m.version + ")"
		}
		return onlineStyle.Render(label)
	case healthOffline:
		return errorStyle.Render("API offline")
	default:
		return headerStyle.Render("Checking API...")
	}
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := padLines(lipgloss.JoinHorizontal(lipgloss.Top, parts...), m.width)
	status := padLines(m.renderStatusLine(), m.width)
	return tabs + "\n" + status
}

func (m *Model) renderStatusLine() string {
	segments := []string{m.renderHealthLine()}
	if m.selected != nil {
		segments = append(segments, headerStyle.Render("Experiment: "+m.selected.Name))
	}
	switch m.load {
	case loadLoading:
		segments = append(segments, headerStyle.Render("Loading results..."))
	case loadLoaded:
		if m.results != nil && !m.results.GeneratedAt.IsZero() {
			segments = append(segments, headerStyle.Render("Generated "+m.results.GeneratedAt.Format("15:04:05")))
		}
	case loadFailed:
		segments = append(segments, errorStyle.Render("Load failed"))
	}
	return truncateLine(strings.Join(segments, "  "), m.width)
}

func (m *Model) renderBody() string {
	if m.activeTab == tabExperiments {
		if len(m.experiments) == 0 {
			return "No experiments found."
		}
		return tableMutedStyle.Render(m.expTable.View())
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Select: enter  Refresh: r  Scroll: up/down  Quit: q"
	if m.loadErr != "" {
		return headerStyle.Render(help) + "\n" + errorStyle.Render(m.loadErr)
	}
	return headerStyle.Render(help)
}

// renderTabContents rebuilds every viewport from the current snapshot.
// The allocation tab reads only the selection, so it fills in while
// results are still loading.
func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	m.viewports[tabOverview].SetContent(m.renderOverview())
	m.viewports[tabAllocation].SetContent(m.renderReportTab(func(buf *bytes.Buffer) error {
		return report.RenderAllocation(buf, m.selected)
	}, true))
	m.viewports[tabConversion].SetContent(m.renderReportTab(func(buf *bytes.Buffer) error {
		return report.RenderConversion(buf, m.results)
	}, false))
	m.viewports[tabEvents].SetContent(m.renderReportTab(func(buf *bytes.Buffer) error {
		return report.RenderEventTypes(buf, m.results)
	}, false))
	m.viewports[tabMatrix].SetContent(m.renderReportTab(func(buf *bytes.Buffer) error {
		return report.RenderMatrix(buf, m.results)
	}, false))
	m.viewports[tabTimeSeries].SetContent(m.renderTimeSeriesTab())
}

func (m *Model) renderReportTab(render func(*bytes.Buffer) error, selectionOnly bool) string {
	if m.selected == nil {
		return "Select an experiment."
	}
	if !selectionOnly {
		if placeholder, ok := m.resultsPlaceholder(); ok {
			return placeholder
		}
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Sprintf("Failed to render view: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) resultsPlaceholder() (string, bool) {
	switch m.load {
	case loadLoading:
		return "Loading results...", true
	case loadFailed:
		return errorStyle.Render("Failed to load results: " + m.loadErr), true
	}
	if m.results == nil {
		return "No results loaded.", true
	}
	return "", false
}

func (m *Model) renderOverview() string {
	if m.selected == nil {
		return "Select an experiment."
	}
	header := cardValueStyle.Render(m.selected.Name) + " " + headerStyle.Render("("+string(m.selected.Status)+")")
	sections := []string{header}
	if m.selected.Description != "" {
		width := m.width
		if width <= 0 {
			width = 80
		}
		sections = append(sections, headerStyle.Render(wrapText(m.selected.Description, width-2)))
	}
	if placeholder, ok := m.resultsPlaceholder(); ok {
		return strings.Join(append(sections, "", placeholder), "\n")
	}
	sections = append(sections, "", m.renderSummaryCards(), "", m.renderConfidenceLegend())
	return strings.TrimRight(strings.Join(sections, "\n"), "\n")
}

func (m *Model) renderSummaryCards() string {
	summary := m.results.Summary
	leader := "none"
	if summary.LeadingVariant != nil {
		leader = *summary.LeadingVariant
	}
	rule := views.LookupConfidence(summary.ConfidenceLevel)
	confidenceStyle := lipgloss.NewStyle().Foreground(rule.Color).Bold(true)
	cards := []string{
		metricCard("Assignments", fmt.Sprintf("%d", summary.TotalAssignments)),
		metricCard("Events", fmt.Sprintf("%d", summary.TotalEvents)),
		metricCard("Conversion", fmt.Sprintf("%.2f%%", summary.OverallConversionRate)),
		metricCard("Leader", leader),
		cardStyle.Render(cardTitleStyle.Render("Confidence") + "\n" + confidenceStyle.Render(rule.Label)),
	}
	if m.width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func (m *Model) renderConfidenceLegend() string {
	lines := []string{headerStyle.Render("Confidence levels (backend policy):")}
	for _, rule := range views.ConfidenceRules() {
		marker := lipgloss.NewStyle().Foreground(rule.Color).Render("●")
		lines = append(lines, fmt.Sprintf("%s %s — %s", marker, rule.Label, rule.Threshold))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTimeSeriesTab() string {
	if m.selected == nil {
		return "Select an experiment."
	}
	if placeholder, ok := m.resultsPlaceholder(); ok {
		return placeholder
	}
	var buf bytes.Buffer
	if err := report.RenderConversionCurve(&buf, m.results, m.curveWindow, m.width, plotHeight, false); err != nil {
		return fmt.Sprintf("Failed to render curve: %v", err)
	}
	if buf.Len() > 0 {
		buf.WriteString("\n")
	}
	if err := report.RenderTimeSeries(&buf, m.results); err != nil {
		return fmt.Sprintf("Failed to render view: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func metricCard(label, value string) string {
	content := cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value)
	return cardStyle.Render(content)
}

func (m *Model) rebuildExperimentTable() {
	_, bodyHeight, _ := m.layoutHeights()
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.expTable = buildExperimentTable(m.experiments, width, maxInt(1, bodyHeight-1))
}

func buildExperimentTable(experiments []model.Experiment, width, height int) table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Name", Width: 32},
		{Title: "Status", Width: 10},
		{Title: "Variants", Width: 8},
		{Title: "Created", Width: 10},
	}
	rows := make([]table.Row, 0, len(experiments))
	for _, exp := range experiments {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", exp.ID),
			exp.Name,
			string(exp.Status),
			fmt.Sprintf("%d", len(exp.Variants)),
			exp.CreatedAt.Format("2006-01-02"),
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height)),
	)
	if width > 0 {
		t.SetWidth(width)
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

func loginBoxWidth(width int) int {
	return maxInt(40, minInt(width-4, 72))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
