// Package api implements the REST client for the tds backend, a proxy in front of the Tesla
// Fleet API. Endpoints mirror the Fleet API surface (vehicle list, per-vehicle telemetry, wake
// commands); responses arrive wrapped in the usual {response: ...} envelope.
//
// The client injects the session's bearer token into every request and reacts to a 401 by
// resetting the session, which flips the UI back to the login view. The original error still
// reaches the caller so the issuing view can show a failure state first.
package api

import (
	"context"
	_ "embed" // Used to embed version for use with user agent
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/tdsapp/tdsclient/internal/log"
	"github.com/tdsapp/tdsclient/pkg/session"
)

var (
	//go:embed version.txt
	clientVersion string
)

// requestTimeout bounds every backend call. There is no retry logic; a single failed attempt
// fails the call and the query layer owns any retry policy.
const requestTimeout = 10 * time.Second

// maxResponseLength bounds how much of a response body the client is willing to read.
const maxResponseLength = 1 << 20

func buildUserAgent() string {
	library := strings.TrimSpace("tdsclient/" + clientVersion)
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return library
	}
	path := strings.Split(build.Path, "/")
	if len(path) == 0 {
		return library
	}
	app := path[len(path)-1]
	if build.Main.Version != "(devel)" && build.Main.Version != "" {
		app = fmt.Sprintf("%s/%s", app, build.Main.Version)
	}
	return fmt.Sprintf("%s %s", app, library)
}

// Client talks to the tds backend. The zero value is not usable; call NewClient.
type Client struct {
	// The default UserAgent identifies the client and library version, but can be overridden.
	UserAgent string
	baseURL   string
	session   *session.Session
	client    http.Client
}

// NewClient returns a Client rooted at baseURL (e.g. "http://localhost:8080/api"). The session
// supplies the bearer token for outbound requests and absorbs 401 responses.
func NewClient(baseURL string, sess *session.Session) *Client {
	return &Client{
		UserAgent: buildUserAgent(),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		session:   sess,
		client:    http.Client{Timeout: requestTimeout},
	}
}

// LoginURL returns the browser-rendered authorization page on the backend.
func (c *Client) LoginURL() string {
	return c.baseURL + "/login"
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Response         json.RawMessage `json:"response"`
	Count            *int            `json:"count,omitempty"`
	Pagination       *PaginationMeta `json:"pagination,omitempty"`
	Error            string          `json:"error,omitempty"`
	ErrorDescription string          `json:"error_description,omitempty"`
}

func (e *envelope) errorMessage() string {
	if e.ErrorDescription != "" && e.Error != "" {
		return e.Error + ": " + e.ErrorDescription
	}
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	return e.Error
}

// do issues a request and returns the decoded envelope. A 401 resets the session before the
// error is returned.
func (c *Client) do(ctx context.Context, method, path string) (*envelope, error) {
	url := c.baseURL + path
	request, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error constructing request to %s: %w", path, err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", c.UserAgent)
	if token := c.session.Token(); token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug("Requesting %s %s...", method, url)
	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", path, err)
	}
	defer response.Body.Close()

	reader := io.LimitedReader{R: response.Body, N: maxResponseLength}
	body, err := io.ReadAll(&reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response from %s: %w", path, err)
	}
	log.Debug("Server returned %d: %s", response.StatusCode, body)

	var env envelope
	// Error bodies won't always be JSON envelopes; keep whatever parsed.
	_ = json.Unmarshal(body, &env)

	if response.StatusCode == http.StatusUnauthorized {
		log.Info("Backend rejected credentials; clearing session")
		c.session.Reset()
		return nil, &HTTPError{Code: response.StatusCode, Message: env.errorMessage()}
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &HTTPError{Code: response.StatusCode, Message: env.errorMessage()}
	}
	return &env, nil
}

// ListVehicles fetches the account's vehicles. A response without a usable response field yields
// an empty list, not an error.
func (c *Client) ListVehicles(ctx context.Context) ([]VehicleSummary, error) {
	env, err := c.do(ctx, http.MethodGet, "/1/vehicles")
	if err != nil {
		return nil, err
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		return []VehicleSummary{}, nil
	}
	var vehicles []VehicleSummary
	if err := json.Unmarshal(env.Response, &vehicles); err != nil {
		log.Warning("Malformed vehicle list from backend: %s", err)
		return []VehicleSummary{}, nil
	}
	return vehicles, nil
}

// GetVehicleData fetches the telemetry snapshot for the vehicle identified by tag.
func (c *Client) GetVehicleData(ctx context.Context, tag string) (*VehicleData, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/1/vehicles/%s/vehicle_data", tag))
	if err != nil {
		return nil, err
	}
	var data VehicleData
	if err := json.Unmarshal(env.Response, &data); err != nil {
		return nil, fmt.Errorf("malformed vehicle data for %s: %w", tag, err)
	}
	return &data, nil
}

// WakeVehicle asks the backend to wake the vehicle identified by tag. The returned summary is
// the backend's acknowledgement; the vehicle usually reports "waking" until it comes online.
func (c *Client) WakeVehicle(ctx context.Context, tag string) (*VehicleSummary, error) {
	env, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/1/vehicles/%s/wake_up", tag))
	if err != nil {
		return nil, err
	}
	var summary VehicleSummary
	if err := json.Unmarshal(env.Response, &summary); err != nil {
		return nil, fmt.Errorf("malformed wake acknowledgement for %s: %w", tag, err)
	}
	return &summary, nil
}
