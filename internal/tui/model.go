package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/karpella/ec2console/internal/aws/ec2"
	"github.com/karpella/ec2console/internal/engine"
	"github.com/karpella/ec2console/internal/tui/theme"
	"github.com/karpella/ec2console/internal/utils"
)

// Messages
type engineEventMsg struct{ event engine.Event }
type eventsClosedMsg struct{}
type dispatchedMsg struct{ outcome engine.Outcome }
type regionsMsg struct {
	regions []ec2.Region
	err     error
}
type checksMsg struct {
	id       string
	statuses []ec2.Status
	err      error
}

type mode int

const (
	modeTable mode = iota
	modeDetail
	modeRegions
	modeConfirm
)

// pendingTerminate is the target shown in the confirmation overlay.
type pendingTerminate struct {
	id   string
	name string
}

type detailState struct {
	id       string
	loading  bool
	statuses []ec2.Status
	err      error
}

// Model is the interactive console: an instance table per collection
// key with overlays for detail, region switching and terminate
// confirmation. Data flows one way: the engine publishes events, the
// model re-reads its collection snapshot.
type Model struct {
	eng      *engine.Engine
	key      engine.Key
	binding  *engine.Binding
	events   <-chan engine.Event
	identity string

	snap    engine.Snapshot
	outcome *engine.Outcome
	err     error

	mode    mode
	confirm pendingTerminate
	detail  detailState

	table   table.Model
	spinner spinner.Model
	picker  list.Model

	width  int
	height int
	now    func() time.Time
}

// NewModel creates the console model bound to the engine's current
// region. identity is the short caller name shown in the header.
func NewModel(eng *engine.Engine, identity string) Model {
	t := table.New(
		table.WithColumns(tableColumns(76)),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	t.SetStyles(theme.DefaultTableStyles())

	m := Model{
		eng:      eng,
		key:      engine.Key{Region: eng.Region()},
		identity: identity,
		table:    t,
		spinner:  theme.NewSpinner(),
		picker:   newRegionPicker(),
		width:    80,
		height:   24,
		now:      time.Now,
	}
	m.events = eng.Subscribe()
	m.binding = eng.Bind(m.key)
	m.snap = eng.Collection(m.key)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitEvent())
}

// waitEvent re-arms the engine event subscription as a command.
func (m Model) waitEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return engineEventMsg{event: ev}
	}
}

func (m Model) loadRegions() tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		regions, err := eng.Regions(context.Background())
		return regionsMsg{regions: regions, err: err}
	}
}

func (m Model) loadChecks(id string) tea.Cmd {
	eng, region := m.eng, m.key.Region
	return func() tea.Msg {
		statuses, err := eng.Statuses(context.Background(), region, []string{id})
		return checksMsg{id: id, statuses: statuses, err: err}
	}
}

func (m Model) dispatch(id string, action ec2.Action, opts ec2.ActionOptions) tea.Cmd {
	eng, key := m.eng, m.key
	return func() tea.Msg {
		return dispatchedMsg{outcome: eng.Dispatch(context.Background(), key, id, action, opts)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.FocusMsg:
		m.eng.NotifyFocus()
		return m, nil

	case engineEventMsg:
		return m.handleEvent(msg.event)

	case eventsClosedMsg:
		return m, nil

	case dispatchedMsg:
		// the settled outcome also arrives on the event channel; this
		// message only completes the command
		return m, nil

	case regionsMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("loading regions: %w", msg.err)
			return m, nil
		}
		items := make([]list.Item, len(msg.regions))
		for i, r := range msg.regions {
			items[i] = regionItem{code: r.Code, name: r.DisplayName, optedIn: r.OptedIn}
		}
		m.picker.SetItems(items)
		m.picker.ResetFilter()
		m.picker.Select(0)
		m.mode = modeRegions
		return m, nil

	case checksMsg:
		if m.mode == modeDetail && m.detail.id == msg.id {
			m.detail.loading = false
			m.detail.statuses = msg.statuses
			m.detail.err = msg.err
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleEvent(ev engine.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case engine.EventCollectionUpdated:
		if ev.Key.String() == m.key.String() {
			m.snap = m.eng.Collection(m.key)
			m.table.SetRows(m.buildRows())
		}
	case engine.EventMutationSettled:
		if ev.Outcome != nil {
			m.outcome = ev.Outcome
			m.err = nil
		}
	}
	return m, m.waitEvent()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// while the picker filter is active it owns every keystroke
	if m.mode == modeRegions && m.picker.SettingFilter() {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	switch m.mode {
	case modeConfirm:
		switch msg.String() {
		case "y", "enter":
			target := m.confirm
			m.mode = modeTable
			return m, m.dispatch(target.id, ec2.ActionTerminate, ec2.ActionOptions{})
		case "n", "esc", "q":
			m.mode = modeTable
		}
		return m, nil

	case modeRegions:
		switch msg.String() {
		case "esc":
			m.mode = modeTable
			return m, nil
		case "enter":
			if item, ok := m.picker.SelectedItem().(regionItem); ok {
				return m.switchRegion(item.code)
			}
			return m, nil
		case "ctrl+c":
			m.close()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case modeDetail:
		switch msg.String() {
		case "esc", "q", "enter":
			m.mode = modeTable
		case "ctrl+c":
			m.close()
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.close()
		return m, tea.Quit
	case "r":
		m.eng.Invalidate(m.key)
		return m, nil
	case "R":
		return m, m.loadRegions()
	case "enter":
		if inst, ok := m.selected(); ok {
			m.mode = modeDetail
			m.detail = detailState{id: inst.ID, loading: true}
			return m, m.loadChecks(inst.ID)
		}
		return m, nil
	case "s":
		return m.dispatchSelected(ec2.ActionStart)
	case "S":
		return m.dispatchSelected(ec2.ActionStop)
	case "b":
		return m.dispatchSelected(ec2.ActionReboot)
	case "T":
		if inst, ok := m.selected(); ok {
			m.confirm = pendingTerminate{id: inst.ID, name: inst.DisplayName()}
			m.mode = modeConfirm
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) dispatchSelected(action ec2.Action) (tea.Model, tea.Cmd) {
	inst, ok := m.selected()
	if !ok {
		return m, nil
	}
	return m, m.dispatch(inst.ID, action, ec2.ActionOptions{})
}

// selected maps the table cursor back to the snapshot, which built the
// rows in the same order.
func (m Model) selected() (ec2.Instance, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.snap.Instances) {
		return ec2.Instance{}, false
	}
	return m.snap.Instances[idx], true
}

func (m Model) instanceByID(id string) (ec2.Instance, bool) {
	for _, inst := range m.snap.Instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return ec2.Instance{}, false
}

func (m Model) switchRegion(region string) (tea.Model, tea.Cmd) {
	m.mode = modeTable
	if region == m.key.Region {
		return m, nil
	}

	if m.binding != nil {
		m.binding.Close()
	}
	m.key = engine.Key{Region: region}
	m.binding = m.eng.Bind(m.key)
	m.outcome = nil
	m.err = nil
	m.snap = m.eng.Collection(m.key)
	m.table.SetRows(m.buildRows())
	m.table.SetCursor(0)

	eng := m.eng
	return m, func() tea.Msg {
		if err := eng.SetRegion(context.Background(), region); err != nil {
			return regionsMsg{err: err}
		}
		return nil
	}
}

func (m Model) close() {
	if m.binding != nil {
		m.binding.Close()
	}
	m.eng.Unsubscribe(m.events)
}

func tableColumns(width int) []table.Column {
	name := width - 62
	if name < 16 {
		name = 16
	}
	return []table.Column{
		{Title: "Name", Width: name},
		{Title: "Instance ID", Width: 20},
		{Title: "State", Width: 13},
		{Title: "Type", Width: 11},
		{Title: "Zone", Width: 12},
		{Title: "Age", Width: 6},
	}
}

func (m Model) buildRows() []table.Row {
	rows := make([]table.Row, len(m.snap.Instances))
	for i, inst := range m.snap.Instances {
		rows[i] = table.Row{
			inst.DisplayName(),
			inst.ID,
			string(inst.State),
			inst.Type,
			inst.Zone,
			utils.Age(inst.LaunchedAt, m.now()),
		}
	}
	return rows
}

func (m Model) resize() Model {
	contentWidth := m.width - 4 // dashboardStyle Padding(1,2)
	m.table.SetColumns(tableColumns(contentWidth))
	m.table.SetWidth(contentWidth)

	tableHeight := m.height - 12 // header+stats+status+help
	if tableHeight < 3 {
		tableHeight = 3
	}
	if tableHeight > 20 {
		tableHeight = 20
	}
	m.table.SetHeight(tableHeight)

	pickerWidth := contentWidth
	if pickerWidth > 64 {
		pickerWidth = 64
	}
	pickerHeight := m.height - 8
	if pickerHeight < 8 {
		pickerHeight = 8
	}
	if pickerHeight > 18 {
		pickerHeight = 18
	}
	m.picker.SetSize(pickerWidth, pickerHeight)
	return m
}

func (m Model) renderHeader() string {
	parts := []string{
		titleStyle.Render("EC2 Console"),
		"   ",
		metricLabelStyle.Render("region: ") + identityStyle.Render(m.key.Region),
	}
	if m.identity != "" {
		parts = append(parts,
			"   ",
			metricLabelStyle.Render("user: ")+identityStyle.Render(m.identity),
		)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderStats() string {
	s := m.snap.Stats
	parts := []string{
		metricLabelStyle.Render("Running: ") + metricValueStyle.Render(fmt.Sprintf("%d", s.Running)),
		metricLabelStyle.Render("Stopped: ") + metricLabelStyle.Render(fmt.Sprintf("%d", s.Stopped)),
		metricLabelStyle.Render("Total: ") + metricLabelStyle.Render(fmt.Sprintf("%d", s.Total)),
		metricLabelStyle.Render("vCPUs: ") + metricLabelStyle.Render(fmt.Sprintf("%d", s.VCPUs)),
		metricLabelStyle.Render("Est: ") + costValueStyle.Render(utils.Currency(s.HourlyUSD, "USD")+"/h") +
			metricLabelStyle.Render(fmt.Sprintf(" (%s/mo)", utils.Currency(s.MonthlyUSD, "USD"))),
	}
	return strings.Join(parts, "   ")
}

func (m Model) renderStatusLines() string {
	var lines []string
	if m.snap.Err != nil {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("refresh failed: %v", m.snap.Err)))
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render(m.err.Error()))
	}
	if m.outcome != nil {
		style := successStyle
		if !m.outcome.OK {
			style = errorStyle
		}
		lines = append(lines, style.Render(m.outcome.Message))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) View() string {
	switch m.mode {
	case modeRegions:
		return dashboardStyle.Render(
			theme.DashboardTitleStyle.Render("Switch region") + "\n\n" +
				m.picker.View() + "\n" +
				helpStyle.Render("Enter select • / filter • Esc cancel"),
		)

	case modeConfirm:
		box := theme.DashboardBoxStyle.Render(
			theme.DashboardTitleStyle.Render("Terminate instance") + "\n\n" +
				fmt.Sprintf("Terminate %s (%s)? This cannot be undone.", m.confirm.name, m.confirm.id) + "\n\n" +
				helpStyle.Render("y confirm • n cancel"),
		)
		return dashboardStyle.Render(m.renderHeader() + "\n\n" + box)

	case modeDetail:
		return dashboardStyle.Render(m.renderDetail())
	}

	header := headerStyle.Render(m.renderHeader())
	if m.snap.FetchedAt.IsZero() && m.snap.Err == nil {
		return dashboardStyle.Render(
			header + "\n\n" + m.spinner.View() + " Loading instances...\n",
		)
	}

	body := header + "\n\n" +
		m.renderStats() + "\n\n" +
		m.table.View() + "\n" +
		m.renderStatusLines() +
		helpStyle.Render("s start • S stop • b reboot • T terminate • Enter details • r refresh • R region • q quit")
	if m.snap.Fetching {
		body += "\n" + loadingStyle.Render(m.spinner.View()+" refreshing...")
	}
	return dashboardStyle.Render(body)
}
