package authflow

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/tdsapp/tdsclient/internal/log"
)

// CallbackServer is the desktop stand-in for OS deep-link delivery: a loopback HTTP listener the
// system browser is redirected to at the end of the authorization flow. A request to
// /auth/callback is translated into the deep-link channel of the Flow.
//
// The server lives only while the login view is focused; Shutdown tears it down so a stale
// listener can't capture into a dead flow.
type CallbackServer struct {
	flow     *Flow
	addr     string
	listener net.Listener
	server   *http.Server
}

// NewCallbackServer returns an unstarted server. addr is the loopback address to bind, e.g.
// "127.0.0.1:8943"; a ":0" port picks a free one.
func NewCallbackServer(flow *Flow, addr string) *CallbackServer {
	return &CallbackServer{flow: flow, addr: addr}
}

// Start binds the listener and begins serving in the background.
func (s *CallbackServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("callback server: %w", err)
	}
	s.listener = listener

	router := mux.NewRouter()
	router.HandleFunc("/auth/callback", s.handleCallback).Methods(http.MethodGet)

	s.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("callback server: %s", err)
		}
	}()
	log.Debug("callback server listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound address, valid after Start.
func (s *CallbackServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Query().Get("payload")
	deepLink := SchemePrefix + "?payload=" + url.QueryEscape(param)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.flow.HandleDeepLink(deepLink) {
		fmt.Fprint(w, "<html><body><p>Signed in. You can close this window and return to the app.</p></body></html>")
		return
	}
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprint(w, "<html><body><p>Sign-in failed. Return to the app and try again.</p></body></html>")
}

// Shutdown stops the listener. Safe to call on a server that never started.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
