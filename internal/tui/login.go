package tui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tdsapp/tdsclient/pkg/authflow"
)

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "o", "enter":
		if err := m.flow.Begin(); err == nil {
			return m, openBrowser(m.loginURL)
		}
		return m, nil
	case "esc":
		m.flow.Cancel()
		return m, nil
	}
	return m, nil
}

func (m *Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Connect your Tesla account"))
	b.WriteString("\n\n")
	b.WriteString(subtitleStyle.Render("Press 'o' to open the authorization page in your browser."))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("After you sign in, the backend sends you back here automatically."))
	b.WriteString("\n\n")
	b.WriteString(normalStyle.Render(urlStyle.Render(m.loginURL)))
	b.WriteString("\n\n")

	switch m.flow.State() {
	case authflow.StateAwaitingAuthorization:
		b.WriteString(normalStyle.Render(m.spinner.View() + " Waiting for authorization... (esc to cancel)"))
	default:
		b.WriteString(hintStyle.Render("  o: open browser • q: quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// openBrowser hands the login URL to the platform's URL opener. Failure is not fatal; the URL is
// on screen and the user can open it manually.
func openBrowser(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
		if err := cmd.Start(); err != nil {
			return browserOpenedMsg{err: fmt.Errorf("starting %s: %w", cmd.Path, err)}
		}
		return browserOpenedMsg{}
	}
}
