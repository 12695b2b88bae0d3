package ui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/state"
)

var screenTitles = map[state.Screen]string{
	state.ScreenDashboard: "Dashboard",
	state.ScreenOrders:    "Orders",
	state.ScreenFleet:     "Fleet",
	state.ScreenOptimize:  "Optimize",
	state.ScreenRoutes:    "Routes",
	state.ScreenSettings:  "Settings",
}

func (m Model) renderMain() string {
	styles := m.theme.Styles()
	header := m.renderHeader(styles)
	footer := m.renderFooter(styles)
	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	var body string
	switch m.store.CurrentScreen() {
	case state.ScreenOrders:
		body = m.renderOrders(styles, bodyHeight)
	case state.ScreenFleet:
		body = m.renderFleet(styles, bodyHeight)
	case state.ScreenOptimize:
		body = m.renderOptimize(styles)
	case state.ScreenRoutes:
		body = m.renderRoutes(styles, bodyHeight)
	case state.ScreenSettings:
		body = m.renderSettings(styles, bodyHeight)
	default:
		body = m.renderDashboard(styles)
	}

	if !m.store.SidebarCollapsed() {
		sidebar := m.renderSidebar(styles, bodyHeight)
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, body)
	}
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader(styles Styles) string {
	parts := []string{
		styles.Logo.Render("COURIER"),
		styles.Text.Render(screenTitles[m.store.CurrentScreen()]),
		styles.MutedText.Render(m.store.Filters().Date),
	}
	if m.branchID > 0 {
		parts = append(parts, styles.MutedText.Render(fmt.Sprintf("branch %d", m.branchID)))
	}
	if id, ok := m.store.ActiveJob(); ok {
		parts = append(parts, styles.InfoText.Render(fmt.Sprintf("job #%d", id)))
	}
	if id, ok := m.store.ActiveSolution(); ok {
		parts = append(parts, styles.SuccessText.Render(fmt.Sprintf("solution #%d", id)))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderFooter(styles Styles) string {
	var line string
	switch {
	case m.lastErr != nil:
		line = styles.DangerText.Render("✗ " + m.lastErr.Error())
	case m.flash != "":
		line = styles.SuccessText.Render(m.flash)
	default:
		line = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return styles.Footer.Width(m.width).Render(line)
}

func (m Model) renderSidebar(styles Styles, height int) string {
	var b strings.Builder
	current := m.store.CurrentScreen()
	for i, screen := range state.Screens() {
		label := fmt.Sprintf("%d %s", i+1, screenTitles[screen])
		if screen == current {
			b.WriteString(styles.Selected.Render(label))
		} else {
			b.WriteString(label)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d orders\n%d vehicles", m.store.SelectedOrdersCount(), m.store.SelectedVehiclesCount())
	return styles.Sidebar.Width(18).Height(height).Render(b.String())
}

func (m Model) renderDashboard(styles Styles) string {
	orderStats, fleetStats := m.store.OrderStats(), m.store.FleetStats()

	orders := strings.Join([]string{
		styles.AccentText.Render("Orders"),
		fmt.Sprintf("Total      %d", orderStats.Total),
		fmt.Sprintf("Pending    %d", orderStats.Pending),
		fmt.Sprintf("Assigned   %d", orderStats.Assigned),
		fmt.Sprintf("In transit %d", orderStats.InTransit),
		fmt.Sprintf("Completed  %d", orderStats.Completed),
		fmt.Sprintf("Failed     %d", orderStats.Failed),
		fmt.Sprintf("Cancelled  %d", orderStats.Cancelled),
	}, "\n")
	fleet := strings.Join([]string{
		styles.AccentText.Render("Fleet"),
		fmt.Sprintf("Total       %d", fleetStats.Total),
		fmt.Sprintf("Available   %d", fleetStats.Available),
		fmt.Sprintf("In use      %d", fleetStats.InUse),
		fmt.Sprintf("Maintenance %d", fleetStats.Maintenance),
		fmt.Sprintf("Offline     %d", fleetStats.Offline),
		fmt.Sprintf("Capacity    %.0f kg", fleetStats.AvailableCapacity),
	}, "\n")

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Panel.Render(orders),
		styles.Panel.Render(fleet),
	)
	return lipgloss.JoinVertical(lipgloss.Left, panels, m.renderJobPanel(styles))
}

func (m Model) renderOrders(styles Styles, height int) string {
	filters := m.store.Filters()
	orders := m.store.FilteredOrders()

	var b strings.Builder
	if m.searching {
		b.WriteString(m.search.View())
	} else {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf(
			"status: %s  priority: %s  search: %q  (%d of %d)",
			orDash(filters.Status), orDash(filters.Priority), filters.Search,
			len(orders), len(m.store.AllOrders()),
		)))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render(fmt.Sprintf("    %-10s %-24s %-28s %-3s %s", "CODE", "CUSTOMER", "ADDRESS", "PRI", "STATUS")))
	b.WriteString("\n")

	rows := max(height-4, 1)
	start := windowStart(m.cursor, len(orders), rows)
	for i := start; i < len(orders) && i < start+rows; i++ {
		o := orders[i]
		mark := "[ ]"
		if m.store.IsOrderSelected(o.ID) {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %-10s %-24s %-28s %3d ",
			mark, truncate(o.Code, 10), truncate(o.CustomerName, 24), truncate(o.Address, 28), o.Priority)
		if i == m.cursor {
			line = styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString(styles.StatusStyle(o.Status).Render(o.Status))
		b.WriteString("\n")
	}
	if len(orders) == 0 {
		b.WriteString(styles.MutedText.Render("No orders match the current filters."))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) renderFleet(styles Styles, height int) string {
	vehicles := m.store.Vehicles()

	var b strings.Builder
	b.WriteString(styles.FaintText.Render(fmt.Sprintf("    %-10s %-20s %9s %s", "PLATE", "DRIVER", "CAPACITY", "STATUS")))
	b.WriteString("\n")
	rows := max(height-2, 1)
	start := windowStart(m.cursor, len(vehicles), rows)
	for i := start; i < len(vehicles) && i < start+rows; i++ {
		v := vehicles[i]
		mark := "[ ]"
		if m.store.IsVehicleSelected(v.ID) {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %-10s %-20s %9.0f ", mark, truncate(v.Plate, 10), truncate(v.Driver, 20), v.Capacity)
		if i == m.cursor {
			line = styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString(styles.StatusStyle(v.Status).Render(v.Status))
		b.WriteString("\n")
	}
	if len(vehicles) == 0 {
		b.WriteString(styles.MutedText.Render("No vehicles loaded."))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) renderOptimize(styles Styles) string {
	summary := strings.Join([]string{
		styles.AccentText.Render("Plan"),
		fmt.Sprintf("Date      %s", m.store.Filters().Date),
		fmt.Sprintf("Orders    %d selected", m.store.SelectedOrdersCount()),
		fmt.Sprintf("Vehicles  %d selected", m.store.SelectedVehiclesCount()),
		"",
		styles.MutedText.Render("o: plan routes  X: cancel  R: retry  d: dismiss"),
	}, "\n")
	return lipgloss.JoinVertical(lipgloss.Left, styles.Panel.Render(summary), m.renderJobPanel(styles))
}

func (m Model) renderJobPanel(styles Styles) string {
	if m.job == nil {
		if id, ok := m.store.ActiveJob(); ok {
			return styles.Panel.Render(fmt.Sprintf("Job #%d: waiting for status…", id))
		}
		return ""
	}
	job := m.job
	lines := []string{
		fmt.Sprintf("%s %s", styles.AccentText.Render(fmt.Sprintf("Job #%d", job.ID)), styles.StatusStyle(string(job.Status)).Render(string(job.Status))),
		m.progress.View(),
	}
	if job.ErrorMessage != "" {
		lines = append(lines, styles.DangerText.Render(job.ErrorMessage))
	}
	if job.HasSolution() {
		lines = append(lines, styles.SuccessText.Render(fmt.Sprintf("Solution #%d", *job.SolutionID)))
	}
	return styles.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) renderRoutes(styles Styles, height int) string {
	if m.solution == nil {
		if id, ok := m.store.ActiveSolution(); ok {
			return styles.MutedText.Render(fmt.Sprintf("Loading solution #%d…", id))
		}
		return styles.MutedText.Render("No solution yet. Plan routes from the Optimize screen.")
	}
	sol := m.solution

	var b strings.Builder
	b.WriteString(styles.AccentText.Render(fmt.Sprintf("Solution #%d", sol.ID)))
	fmt.Fprintf(&b, "  %.1f km  %s  %d stops", sol.TotalDistance, formatMinutes(sol.TotalDuration), sol.StopCount())
	if len(sol.Unassigned) > 0 {
		b.WriteString(styles.WarningText.Render(fmt.Sprintf("  %d unassigned", len(sol.Unassigned))))
	}
	b.WriteString("\n\n")

	names := vehicleNames(m.store.Vehicles())
	written := 2
	for _, r := range sol.Routes {
		if written >= height {
			break
		}
		name := names[r.VehicleID]
		if name == "" {
			name = fmt.Sprintf("vehicle %d", r.VehicleID)
		}
		b.WriteString(styles.InfoText.Render(name))
		fmt.Fprintf(&b, "  %d stops  %.1f km  %s\n", len(r.Stops), r.Distance, formatMinutes(r.Duration))
		written++
		for _, stop := range r.Stops {
			if written >= height {
				break
			}
			fmt.Fprintf(&b, "   %2d. order %d  eta %s\n", stop.Sequence, stop.OrderID, orDash(stop.ETA))
			written++
		}
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) renderSettings(styles Styles, height int) string {
	var b strings.Builder
	b.WriteString(styles.AccentText.Render("Settings"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Theme      %s (T to cycle)\n", m.theme.Name)
	fmt.Fprintf(&b, "Log file   %s\n", orDash(m.logFile))
	fmt.Fprintf(&b, "Log level  %s (l to cycle, r to reload)\n\n", m.logLevel)

	rows := max(height-5, 1)
	entries := m.logs
	if len(entries) > rows {
		entries = entries[len(entries)-rows:]
	}
	for _, e := range entries {
		line := truncate(e.String(), max(m.width-24, 20))
		switch {
		case e.Level >= slog.LevelError:
			line = styles.DangerText.Render(line)
		case e.Level >= slog.LevelWarn:
			line = styles.WarningText.Render(line)
		default:
			line = styles.MutedText.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(entries) == 0 {
		b.WriteString(styles.MutedText.Render("No log entries."))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	m.help.ShowAll = true
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.Logo.Render("Keys"),
		"",
		m.help.View(m.keys),
		"",
		styles.MutedText.Render("1-6 jump to a screen. Press any key to close."),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, styles.Modal.Render(content))
}

func vehicleNames(vehicles []api.Vehicle) map[int64]string {
	names := make(map[int64]string, len(vehicles))
	for _, v := range vehicles {
		names[v.ID] = v.Plate
		if v.Driver != "" {
			names[v.ID] = v.Plate + " (" + v.Driver + ")"
		}
	}
	return names
}

func windowStart(cursor, total, rows int) int {
	if total <= rows || cursor < rows {
		return 0
	}
	return min(cursor-rows+1, total-rows)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatMinutes(minutes float64) string {
	total := int(minutes + 0.5)
	return fmt.Sprintf("%dh%02dm", total/60, total%60)
}
