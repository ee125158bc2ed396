package authflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/tdsapp/tdsclient/pkg/session"
)

func testPayload() session.LoginPayload {
	return session.LoginPayload{
		UserID:     "user-1",
		JWT:        session.JWT{Token: "header.payload.sig", ExpiresIn: 3600, Issuer: "tds-server"},
		TeslaToken: session.TeslaToken{AccessToken: "tesla-access", RefreshToken: "tesla-refresh", ExpiresIn: 28800},
	}
}

func encodePayload(t *testing.T, p session.LoginPayload) string {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return url.QueryEscape(base64.StdEncoding.EncodeToString(raw))
}

func deepLink(t *testing.T, p session.LoginPayload) string {
	t.Helper()
	return SchemePrefix + "?payload=" + encodePayload(t, p)
}

func TestStates(t *testing.T) {
	f := New(session.New(nil))
	if f.State() != StateIdle {
		t.Fatalf("initial state = %s", f.State())
	}
	if err := f.Begin(); err != nil {
		t.Fatal(err)
	}
	if f.State() != StateAwaitingAuthorization {
		t.Errorf("state after Begin = %s", f.State())
	}
	f.Cancel()
	if f.State() != StateIdle {
		t.Errorf("state after Cancel = %s", f.State())
	}
	// Cancelling when idle stays idle.
	f.Cancel()
	if f.State() != StateIdle {
		t.Errorf("state after double Cancel = %s", f.State())
	}
}

func TestDeepLinkCapture(t *testing.T) {
	sess := session.New(nil)
	f := New(sess)
	if err := f.Begin(); err != nil {
		t.Fatal(err)
	}

	var closed bool
	f.SetOnClose(func() { closed = true })

	if !f.HandleDeepLink(deepLink(t, testPayload())) {
		t.Fatal("valid deep link not captured")
	}
	if sess.Token() != "header.payload.sig" || sess.UserID() != "user-1" {
		t.Errorf("session after capture: token=%q user=%q", sess.Token(), sess.UserID())
	}
	if f.State() != StateIdle {
		t.Errorf("state after capture = %s", f.State())
	}
	if !closed {
		t.Error("authorization surface not closed")
	}
}

func TestDeepLinkWithoutBegin(t *testing.T) {
	// The external browser can deliver a callback before the user opens the in-app surface.
	sess := session.New(nil)
	f := New(sess)
	if !f.HandleDeepLink(deepLink(t, testPayload())) {
		t.Fatal("deep link from idle not captured")
	}
	if !sess.Authenticated() {
		t.Error("session not populated")
	}
}

func TestGarbagePayloadLeavesSessionUnchanged(t *testing.T) {
	sess := session.New(nil)
	f := New(sess)
	if err := f.Begin(); err != nil {
		t.Fatal(err)
	}

	links := []string{
		SchemePrefix + "?payload=%%%",                // not URL-decodable
		SchemePrefix + "?payload=not-base64!!!",      // not base64
		SchemePrefix + "?payload=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte("{oops"))), // not JSON
		SchemePrefix + "?payload=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(`{"user_id": "u"}`))), // missing tokens
		SchemePrefix, // no payload at all
	}
	for _, link := range links {
		if f.HandleDeepLink(link) {
			t.Errorf("garbage link captured: %s", link)
		}
	}
	if sess.Authenticated() {
		t.Error("session populated from garbage")
	}
	if f.State() != StateAwaitingAuthorization {
		t.Errorf("flow left awaiting_authorization: %s", f.State())
	}
}

func TestForeignURLIgnored(t *testing.T) {
	f := New(session.New(nil))
	if f.HandleDeepLink("https://example.com/auth/callback?payload=x") {
		t.Error("captured a URL outside the scheme prefix")
	}
}

func TestSurfaceMessageCapture(t *testing.T) {
	sess := session.New(nil)
	f := New(sess)
	if err := f.Begin(); err != nil {
		t.Fatal(err)
	}

	raw, err := json.Marshal(testPayload())
	if err != nil {
		t.Fatal(err)
	}
	if !f.HandleMessage(string(raw)) {
		t.Fatal("valid surface message not captured")
	}
	if !sess.Authenticated() {
		t.Error("session not populated")
	}

	if f.HandleMessage("{bad json") {
		t.Error("malformed message captured")
	}
}

func TestDuplicateDeliveryIdempotent(t *testing.T) {
	sess := session.New(nil)
	f := New(sess)
	if err := f.Begin(); err != nil {
		t.Fatal(err)
	}

	link := deepLink(t, testPayload())
	if !f.HandleDeepLink(link) {
		t.Fatal("first delivery not captured")
	}
	// Second delivery re-runs the capture from idle; same payload, same state.
	f.HandleDeepLink(link)
	if sess.Token() != "header.payload.sig" {
		t.Errorf("token after duplicate delivery = %q", sess.Token())
	}
}

func TestDecodePayloadUnpadded(t *testing.T) {
	raw, err := json.Marshal(testPayload())
	if err != nil {
		t.Fatal(err)
	}
	unpadded := base64.RawStdEncoding.EncodeToString(raw)
	payload, err := DecodePayload(unpadded)
	if err != nil {
		t.Fatalf("unpadded base64 rejected: %s", err)
	}
	if payload.UserID != "user-1" {
		t.Errorf("UserID = %q", payload.UserID)
	}
}

func TestCallbackServer(t *testing.T) {
	sess := session.New(nil)
	f := New(sess)
	srv := NewCallbackServer(f, "127.0.0.1:0")
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %s", err)
		}
	}()

	resp, err := http.Get(fmt.Sprintf("http://%s/auth/callback?payload=%s", srv.Addr(), encodePayload(t, testPayload())))
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !sess.Authenticated() {
		t.Error("session not populated through callback server")
	}

	resp, err = http.Get(fmt.Sprintf("http://%s/auth/callback?payload=garbage", srv.Addr()))
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("garbage status = %d", resp.StatusCode)
	}
}
