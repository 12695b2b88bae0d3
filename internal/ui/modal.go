package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/courier/internal/api"
	"github.com/five82/courier/internal/state"
)

// openModal shows a modal and records it in the store, so it reopens after
// a restart.
func (m Model) openModal(tag string) (tea.Model, tea.Cmd) {
	switch tag {
	case state.ModalImport:
		m.importIn.SetValue("")
		m.store.SetActiveModal(tag)
		cmd := m.importIn.Focus()
		return m, cmd
	case state.ModalRoutePlanning:
		m.store.SetActiveModal(tag)
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) closeModal() Model {
	m.importIn.Blur()
	m.store.ClearActiveModal()
	return m
}

func (m Model) handleModalKey(tag string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.closeModal(), nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	switch tag {
	case state.ModalImport:
		if key.Matches(msg, m.keys.Confirm) {
			found, missing := importCodes(m.store.AllOrders(), m.importIn.Value())
			m.store.SelectOrders(found)
			m.flash = fmt.Sprintf("Imported %d orders", len(found))
			if len(missing) > 0 {
				m.flash += fmt.Sprintf("; not found: %s", strings.Join(missing, ", "))
			}
			return m.closeModal(), nil
		}
		var cmd tea.Cmd
		m.importIn, cmd = m.importIn.Update(msg)
		return m, cmd

	case state.ModalRoutePlanning:
		if key.Matches(msg, m.keys.Confirm) {
			req := api.JobRequest{
				BranchID:   m.branchID,
				Date:       m.store.Filters().Date,
				OrderIDs:   m.store.SelectedOrders(),
				VehicleIDs: m.store.SelectedVehicles(),
			}
			m = m.closeModal()
			m.navigate(state.ScreenOptimize)
			return m, m.submitCmd(req)
		}
	}
	return m, nil
}

func (m Model) submitCmd(req api.JobRequest) tea.Cmd {
	ctx, tracker, creator := m.ctx, m.jobs, m.creator
	return func() tea.Msg {
		_, err := tracker.Submit(ctx, creator, req)
		return actionDoneMsg{action: "submit job", err: err}
	}
}

// importCodes resolves a comma or whitespace separated list of order codes.
// Matching ignores case.
func importCodes(orders []api.Order, input string) (found []int64, missing []string) {
	byCode := make(map[string]int64, len(orders))
	for _, o := range orders {
		byCode[strings.ToUpper(o.Code)] = o.ID
	}
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	})
	for _, code := range fields {
		if id, ok := byCode[strings.ToUpper(code)]; ok {
			found = append(found, id)
		} else {
			missing = append(missing, code)
		}
	}
	return found, missing
}

func (m Model) renderModal(tag string) string {
	styles := m.theme.Styles()
	var content string
	switch tag {
	case state.ModalImport:
		content = lipgloss.JoinVertical(lipgloss.Left,
			styles.Logo.Render("Import orders"),
			"",
			"Paste order codes to add them to the selection.",
			"",
			m.importIn.View(),
			"",
			styles.MutedText.Render("enter: import  esc: close"),
		)
	case state.ModalRoutePlanning:
		orders, vehicles := m.store.SelectedOrdersCount(), m.store.SelectedVehiclesCount()
		lines := []string{
			styles.Logo.Render("Plan routes"),
			"",
			fmt.Sprintf("Date      %s", m.store.Filters().Date),
			fmt.Sprintf("Orders    %d", orders),
			fmt.Sprintf("Vehicles  %d", vehicles),
			"",
		}
		if orders == 0 || vehicles == 0 {
			lines = append(lines, styles.WarningText.Render("Select at least one order and one vehicle."))
		}
		lines = append(lines, styles.MutedText.Render("enter: submit  esc: close"))
		content = strings.Join(lines, "\n")
	default:
		content = tag
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, styles.Modal.Render(content))
}
