package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tdsapp/tdsclient/pkg/api"
)

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.vehicles)-1 {
			m.cursor++
		}

	case "r":
		// Pull-to-refresh: bypass the freshness window.
		m.listLoading = true
		m.listErr = nil
		return m, tea.Batch(m.fetchVehicles(true), m.spinner.Tick)

	case "enter":
		if m.cursor < len(m.vehicles) {
			v := m.vehicles[m.cursor]
			m.detailTag = v.Tag()
			m.detailName = displayName(&v)
			m.detail = m.syncer.CachedVehicleData(m.detailTag)
			m.detailErr = nil
			m.detailLoading = m.detail == nil
			m.view = viewDetail
			return m, tea.Batch(m.fetchVehicleData(m.detailTag, false), m.spinner.Tick)
		}

	case "L":
		m.session.Reset() // the gate routes back to login via the subscription
	}
	return m, nil
}

func displayName(v *api.VehicleSummary) string {
	if v.DisplayName != "" {
		return v.DisplayName
	}
	return v.VIN
}

func (m *Model) viewList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Vehicles"))
	if user := m.session.UserID(); user != "" {
		b.WriteString(hintStyle.Render("  " + user))
	}
	b.WriteString("\n\n")

	switch {
	case m.listLoading && len(m.vehicles) == 0:
		b.WriteString(normalStyle.Render(m.spinner.View() + " Fetching vehicle list..."))
		b.WriteString("\n")
	case m.listErr != nil:
		b.WriteString(errorStyle.Render("  Could not load vehicles."))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("  " + m.listErr.Error()))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("  r: retry"))
		b.WriteString("\n")
	case len(m.vehicles) == 0:
		b.WriteString(subtitleStyle.Render("  No vehicles on this account yet."))
		b.WriteString("\n")
	default:
		for i := range m.vehicles {
			b.WriteString(m.renderVehicleRow(i))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("  enter: details • r: refresh • L: log out • q: quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderVehicleRow(i int) string {
	v := m.vehicles[i]
	battery := "--%"
	if level, ok := m.syncer.BatteryLevel(&v); ok {
		battery = fmt.Sprintf("%d%%", level)
	}
	row := fmt.Sprintf("%-24s %s %s",
		displayName(&v),
		stateStyle(v.State).Render(fmt.Sprintf("%-8s", v.State)),
		battery,
	)
	if i == m.cursor {
		return selectedStyle.Render(row)
	}
	return normalStyle.Render(row)
}
