// Terminal client for the tds backend: log in, list vehicles, inspect telemetry.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tdsapp/tdsclient/internal/log"
	"github.com/tdsapp/tdsclient/internal/tui"
	"github.com/tdsapp/tdsclient/pkg/api"
	"github.com/tdsapp/tdsclient/pkg/authflow"
	"github.com/tdsapp/tdsclient/pkg/cli"
	"github.com/tdsapp/tdsclient/pkg/fleet"
)

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [OPTION...]\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Starts the interactive vehicle client. The backend base URL is taken from")
	fmt.Fprintf(w, "-base-url or $%s.\n", cli.EnvBaseURL)
	fmt.Fprintln(w, "")
	flag.PrintDefaults()
}

func main() {
	returnCode := 1
	defer func() {
		os.Exit(returnCode)
	}()

	config := cli.NewConfig()
	config.RegisterCommandLineFlags()
	flag.Usage = usage
	flag.Parse()
	config.ReadFromEnvironment()

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return
	}

	if config.Debug {
		// The alternate screen buffer would swallow stderr; keep debug output in a file.
		logFile, err := os.OpenFile("tdsclient.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err == nil {
			defer logFile.Close()
			log.SetOutput(logFile)
			log.SetLevel(log.LevelDebug)
		}
	} else {
		log.SetLevel(log.LevelNone)
	}

	sess := config.OpenSession()
	client := api.NewClient(config.BaseURL, sess)
	syncer := fleet.NewSyncer(client, nil)
	flow := authflow.New(sess)
	callback := authflow.NewCallbackServer(flow, config.CallbackAddr)

	model := tui.NewModel(sess, flow, syncer, client.LoginURL(), callback)
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running UI: %s\n", err)
		return
	}

	// Let background wakes, prefetches, and credential writes settle before exiting.
	syncer.Wait()
	sess.Flush()
	returnCode = 0
}
