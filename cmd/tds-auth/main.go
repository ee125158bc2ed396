// Utility for inspecting and managing the stored session without starting the UI.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdsapp/tdsclient/pkg/authflow"
	"github.com/tdsapp/tdsclient/pkg/cli"
	"github.com/tdsapp/tdsclient/pkg/session"
)

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "usage: %s [OPTION...] COMMAND\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  whoami   Print the stored session.")
	fmt.Fprintln(w, "  logout   Delete the stored session.")
	fmt.Fprintln(w, "  login    Read a callback payload (deep link or base64 JSON) from stdin")
	fmt.Fprintln(w, "           or a file argument and store it. Useful on headless machines.")
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

	if flag.NArg() < 1 {
		flag.Usage()
		return
	}

	sess := config.OpenSession()
	switch flag.Arg(0) {
	case "whoami":
		if !sess.Authenticated() {
			fmt.Println("Not logged in.")
			returnCode = 0
			return
		}
		fmt.Printf("User:  %s\n", sess.UserID())
		if token := sess.TeslaToken(); token != nil {
			fmt.Printf("Tesla: %s token, expires_in %d\n", orUnknown(token.TokenType), token.ExpiresIn)
		}
		returnCode = 0

	case "logout":
		sess.Reset()
		sess.Flush()
		fmt.Println("Session cleared.")
		returnCode = 0

	case "login":
		var raw []byte
		var err error
		switch flag.NArg() {
		case 1:
			raw, err = io.ReadAll(os.Stdin)
		case 2:
			raw, err = os.ReadFile(flag.Arg(1))
		default:
			fmt.Fprintln(os.Stderr, "Too many command-line arguments")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading payload: %s\n", err)
			return
		}
		payload, err := parsePayload(string(raw))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not parse payload: %s\n", err)
			return
		}
		sess.SetAuthPayload(payload)
		sess.Flush()
		fmt.Printf("Logged in as %s.\n", sess.UserID())
		returnCode = 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", flag.Arg(0))
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// parsePayload accepts any of the shapes a user might paste: the full deep link, the decoded
// JSON itself, or the bare base64 payload parameter.
func parsePayload(raw string) (session.LoginPayload, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, authflow.SchemePrefix) {
		return authflow.ParseCallbackURL(raw)
	}
	var payload session.LoginPayload
	if err := json.Unmarshal([]byte(raw), &payload); err == nil && payload.Validate() == nil {
		return payload, nil
	}
	return authflow.DecodePayload(raw)
}
