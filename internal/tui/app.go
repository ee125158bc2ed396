// Package tui renders the client's three screens — login, vehicle list, vehicle detail — and
// routes between them based on the session's authentication state.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tdsapp/tdsclient/internal/log"
	"github.com/tdsapp/tdsclient/pkg/api"
	"github.com/tdsapp/tdsclient/pkg/authflow"
	"github.com/tdsapp/tdsclient/pkg/fleet"
	"github.com/tdsapp/tdsclient/pkg/session"
)

type sessionChangedMsg struct{}

type vehiclesMsg struct {
	vehicles []api.VehicleSummary
	err      error
}

type vehicleDataMsg struct {
	tag  string
	data *api.VehicleData
	err  error
}

type browserOpenedMsg struct {
	err error
}

// Model is the root bubbletea model.
type Model struct {
	session  *session.Session
	flow     *authflow.Flow
	syncer   *fleet.Syncer
	loginURL string
	callback *authflow.CallbackServer

	view    view
	width   int
	height  int
	spinner spinner.Model

	// session change notifications arrive on a channel so they can be turned into tea messages
	sessionCh chan struct{}
	cancelSub func()

	// vehicle list
	vehicles    []api.VehicleSummary
	cursor      int
	listLoading bool
	listErr     error

	// vehicle detail
	detailTag     string
	detailName    string
	detail        *api.VehicleData
	detailLoading bool
	detailErr     error

	quitting bool
}

// NewModel assembles the root model. loginURL is the backend's authorization page; callback may
// be nil when no loopback listener is wanted.
func NewModel(sess *session.Session, flow *authflow.Flow, syncer *fleet.Syncer, loginURL string, callback *authflow.CallbackServer) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		session:   sess,
		flow:      flow,
		syncer:    syncer,
		loginURL:  loginURL,
		callback:  callback,
		spinner:   sp,
		sessionCh: make(chan struct{}, 1),
	}
	m.cancelSub = sess.Subscribe(func() {
		select {
		case m.sessionCh <- struct{}{}:
		default: // a notification is already pending
		}
	})
	m.view = route(sess.Authenticated(), viewLogin)
	return m
}

// Close tears down the session subscription and the callback listener.
func (m *Model) Close() {
	if m.cancelSub != nil {
		m.cancelSub()
	}
	m.stopCallback()
}

func (m *Model) waitForSessionChange() tea.Cmd {
	return func() tea.Msg {
		<-m.sessionCh
		return sessionChangedMsg{}
	}
}

func (m *Model) fetchVehicles(force bool) tea.Cmd {
	return func() tea.Msg {
		vehicles, err := m.syncer.Vehicles(context.Background(), force)
		return vehiclesMsg{vehicles: vehicles, err: err}
	}
}

func (m *Model) fetchVehicleData(tag string, force bool) tea.Cmd {
	return func() tea.Msg {
		data, err := m.syncer.VehicleData(context.Background(), tag, force)
		return vehicleDataMsg{tag: tag, data: data, err: err}
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.waitForSessionChange()}
	if m.view == viewLogin {
		m.startCallback()
	} else {
		m.listLoading = true
		cmds = append(cmds, m.fetchVehicles(false))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.view {
		case viewLogin:
			return m.updateLogin(msg)
		case viewList:
			return m.updateList(msg)
		case viewDetail:
			return m.updateDetail(msg)
		}

	case sessionChangedMsg:
		return m.routeTo(route(m.session.Authenticated(), m.view))

	case vehiclesMsg:
		m.listLoading = false
		m.listErr = msg.err
		if msg.err == nil {
			m.vehicles = msg.vehicles
			if m.cursor >= len(m.vehicles) {
				m.cursor = max(0, len(m.vehicles)-1)
			}
		}
		return m, nil

	case vehicleDataMsg:
		if msg.tag != m.detailTag {
			// A stale fetch for a vehicle the user has navigated away from; the syncer has
			// already cached it, nothing to render.
			return m, nil
		}
		m.detailLoading = false
		m.detailErr = msg.err
		if msg.err == nil {
			m.detail = msg.data
		}
		return m, nil

	case browserOpenedMsg:
		if msg.err != nil {
			log.Warning("tui: could not open browser: %s", msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// routeTo applies a view transition decided by the gate, managing the focus-scoped callback
// listener and kicking off the data the target view needs.
func (m *Model) routeTo(next view) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitForSessionChange()}
	if next == m.view {
		return m, tea.Batch(cmds...)
	}

	prev := m.view
	m.view = next
	switch next {
	case viewLogin:
		// Arriving here with a previous view means the session was reset (logout or 401).
		m.vehicles = nil
		m.detail = nil
		m.listErr = nil
		m.detailErr = nil
		m.cursor = 0
		m.startCallback()
	case viewList:
		if prev == viewLogin {
			m.stopCallback()
			m.syncer.ResetWakeAttempts()
		}
		m.listLoading = true
		cmds = append(cmds, m.fetchVehicles(false), m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) startCallback() {
	if m.callback == nil {
		return
	}
	if err := m.callback.Start(); err != nil {
		log.Warning("tui: callback listener unavailable: %s", err)
	}
}

func (m *Model) stopCallback() {
	if m.callback == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = m.callback.Shutdown(ctx)
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.view {
	case viewLogin:
		return m.viewLogin()
	case viewList:
		return m.viewList()
	case viewDetail:
		return m.viewDetail()
	}
	return ""
}
