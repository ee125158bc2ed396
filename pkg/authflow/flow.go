// Package authflow captures the backend's login callback and hands it to the session.
//
// The backend owns the entire OAuth exchange with Tesla; this client only presents the
// authorization page and waits for the resulting login payload. The payload arrives through one
// of two channels: a deep link (tdsclient://auth/callback?payload=...) delivered by the system
// browser, or a message posted directly by an embedded surface. Either channel may fire; the
// first valid payload wins and duplicates are harmless overwrites.
package authflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/looplab/fsm"

	"github.com/tdsapp/tdsclient/internal/log"
	"github.com/tdsapp/tdsclient/pkg/session"
)

// SchemePrefix is the deep-link prefix the OS routes to this application.
const SchemePrefix = "tdsclient://auth/callback"

// Flow states.
const (
	StateIdle                  = "idle"
	StateAwaitingAuthorization = "awaiting_authorization"
	StatePayloadReceived       = "payload_received"
)

// Flow events.
const (
	eventBegin   = "begin"
	eventCapture = "capture"
	eventFinish  = "finish"
	eventCancel  = "cancel"
)

// Flow tracks one authorization attempt. Begin opens the attempt, a callback channel closes it
// successfully, Cancel abandons it. Malformed callbacks leave the flow where it was so the user
// can retry without reopening the surface.
type Flow struct {
	session *session.Session

	mu      sync.Mutex
	machine *fsm.FSM

	// onClose, when set, is invoked after a successful capture so the view can dismiss the
	// authorization surface.
	onClose func()
}

// New returns an idle Flow feeding sess.
func New(sess *session.Session) *Flow {
	f := &Flow{session: sess}
	f.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventBegin, Src: []string{StateIdle}, Dst: StateAwaitingAuthorization},
			// The external-browser channel can deliver a payload without the user having
			// pressed the login button in this process, so capture is legal from idle too.
			{Name: eventCapture, Src: []string{StateIdle, StateAwaitingAuthorization}, Dst: StatePayloadReceived},
			{Name: eventFinish, Src: []string{StatePayloadReceived}, Dst: StateIdle},
			{Name: eventCancel, Src: []string{StateAwaitingAuthorization}, Dst: StateIdle},
		},
		fsm.Callbacks{},
	)
	return f
}

// SetOnClose registers a callback run after each successful capture. The view uses it to close
// the authorization surface. Pass nil to clear.
func (f *Flow) SetOnClose(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClose = fn
}

// Begin marks the start of an authorization attempt (the user opened the login surface).
func (f *Flow) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.machine.Event(context.Background(), eventBegin)
}

// Cancel abandons the current attempt (the user closed the surface). Cancelling an idle flow is
// a no-op.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.machine.Can(eventCancel) {
		_ = f.machine.Event(context.Background(), eventCancel)
	}
}

// State returns the flow's current state.
func (f *Flow) State() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.machine.Current()
}

// HandleDeepLink processes a URL delivered by the operating system. URLs outside SchemePrefix
// are ignored. Malformed payloads are logged and discarded; the flow stays open for a retry. It
// reports whether a login payload was captured.
func (f *Flow) HandleDeepLink(rawURL string) bool {
	if !strings.HasPrefix(rawURL, SchemePrefix) {
		return false
	}
	payload, err := ParseCallbackURL(rawURL)
	if err != nil {
		log.Warning("authflow: discarding callback: %s", err)
		return false
	}
	return f.deliver(payload)
}

// ParseCallbackURL extracts and decodes the login payload from a full callback URL.
func ParseCallbackURL(rawURL string) (session.LoginPayload, error) {
	var payload session.LoginPayload
	u, err := url.Parse(rawURL)
	if err != nil {
		return payload, fmt.Errorf("unparseable callback url: %w", err)
	}
	param := u.Query().Get("payload")
	if param == "" {
		return payload, fmt.Errorf("callback url missing payload parameter")
	}
	return DecodePayload(param)
}

// HandleMessage processes a JSON string posted by the embedded authorization surface. It reports
// whether a login payload was captured.
func (f *Flow) HandleMessage(message string) bool {
	var payload session.LoginPayload
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		log.Warning("authflow: discarding surface message: %s", err)
		return false
	}
	if err := payload.Validate(); err != nil {
		log.Warning("authflow: discarding surface message: %s", err)
		return false
	}
	return f.deliver(payload)
}

func (f *Flow) deliver(payload session.LoginPayload) bool {
	f.mu.Lock()
	if !f.machine.Can(eventCapture) {
		// Duplicate delivery racing the first; state is already identical.
		f.mu.Unlock()
		return false
	}
	_ = f.machine.Event(context.Background(), eventCapture)
	onClose := f.onClose
	f.mu.Unlock()

	f.session.SetAuthPayload(payload)
	log.Info("authflow: captured login payload for user %q", payload.UserID)

	f.mu.Lock()
	_ = f.machine.Event(context.Background(), eventFinish)
	f.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return true
}

// DecodePayload reverses the callback encoding: base64 (the query layer has already removed the
// URL escaping) wrapping JSON. Both padded and unpadded base64 are accepted.
func DecodePayload(param string) (session.LoginPayload, error) {
	var payload session.LoginPayload
	raw, err := base64.StdEncoding.DecodeString(param)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(param)
	}
	if err != nil {
		return payload, fmt.Errorf("payload is not base64: %w", err)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return payload, err
	}
	return payload, nil
}
