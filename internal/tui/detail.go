package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "esc", "backspace", "h":
		m.view = viewList
		m.detail = nil
		m.detailErr = nil
		return m, nil

	case "r":
		m.detailLoading = true
		m.detailErr = nil
		return m, tea.Batch(m.fetchVehicleData(m.detailTag, true), m.spinner.Tick)
	}
	return m, nil
}

func (m *Model) viewDetail() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.detailName))
	b.WriteString("\n\n")

	switch {
	case m.detailLoading && m.detail == nil:
		b.WriteString(normalStyle.Render(m.spinner.View() + " Fetching telemetry..."))
		b.WriteString("\n")
	case m.detailErr != nil && m.detail == nil:
		b.WriteString(errorStyle.Render("  Could not load vehicle data."))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("  " + m.detailErr.Error()))
		b.WriteString("\n")
	case m.detail != nil:
		b.WriteString(m.renderDetailSections())
		if m.detailErr != nil {
			b.WriteString(errorStyle.Render("  Refresh failed; showing cached data."))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("  r: refresh • esc: back • q: quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderDetailSections() string {
	d := m.detail
	var b strings.Builder

	meta := []string{
		"VIN      " + orDash(d.VIN),
		"State    " + stateStyle(d.State).Render(d.State),
	}
	if d.AccessType != "" {
		meta = append(meta, "Access   "+d.AccessType)
	}
	if d.APIVersion != nil {
		meta = append(meta, fmt.Sprintf("API      v%d", *d.APIVersion))
	}
	b.WriteString(section("Vehicle", meta))

	charge := []string{"No charge data reported."}
	if cs := d.ChargeState; cs != nil {
		charge = charge[:0]
		if cs.BatteryLevel != nil {
			charge = append(charge, fmt.Sprintf("Battery  %d%%", *cs.BatteryLevel))
		}
		if cs.ChargingState != "" {
			charge = append(charge, "Charging "+cs.ChargingState)
		}
		if cs.TimeToFullCharge != nil && *cs.TimeToFullCharge > 0 {
			charge = append(charge, fmt.Sprintf("Full in  %.1f h", *cs.TimeToFullCharge))
		}
	}
	b.WriteString(section("Charge", charge))

	climate := []string{"No climate data reported."}
	if cl := d.ClimateState; cl != nil {
		climate = climate[:0]
		climate = append(climate, "Inside   "+formatTemp(cl.InsideTemp))
		climate = append(climate, "Outside  "+formatTemp(cl.OutsideTemp))
		if cl.IsClimateOn {
			climate = append(climate, "Climate  on")
		} else {
			climate = append(climate, "Climate  off")
		}
	}
	b.WriteString(section("Climate", climate))

	location := []string{"No location reported."}
	if ds := d.DriveState; ds != nil && ds.Latitude != nil && ds.Longitude != nil {
		location = location[:0]
		location = append(location, fmt.Sprintf("Position %.5f, %.5f", *ds.Latitude, *ds.Longitude))
		if ds.Heading != nil {
			location = append(location, fmt.Sprintf("Heading  %d°", *ds.Heading))
		}
	}
	b.WriteString(section("Location", location))

	return b.String()
}

func section(title string, lines []string) string {
	body := sectionTitleStyle.Render(title) + "\n" + strings.Join(lines, "\n")
	return sectionStyle.Render(body) + "\n"
}

func formatTemp(t *float64) string {
	if t == nil {
		return "--"
	}
	return fmt.Sprintf("%.1f °C", *t)
}

func orDash(s string) string {
	if s == "" {
		return "--"
	}
	return s
}
