/*
Package cli wires up configuration for the tds client binaries. It defines a [Config] type that
registers common command-line flags (using the Golang flag package) and fills unset fields from
environment variables, with optional .env file support.

The package uses [keyring]'s platform-agnostic interface for storing the login payload in an
OS-dependent credential store.

# Examples

	config := cli.NewConfig()
	config.RegisterCommandLineFlags() // Adds flags for base URL, keyring selection, etc.
	flag.Parse()
	config.ReadFromEnvironment() // Fills in missing fields using environment variables

	sess := config.OpenSession() // Opens the credential store and hydrates the session.

The only required value is the backend base URL (-base-url or TDS_API_BASE_URL). Everything else
has workable defaults.
*/
package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/99designs/keyring"
	"github.com/joho/godotenv"

	"github.com/tdsapp/tdsclient/internal/log"
	"github.com/tdsapp/tdsclient/pkg/session"
	"github.com/tdsapp/tdsclient/pkg/store"
)

// Environment variable names used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvBaseURL      = "TDS_API_BASE_URL"
	EnvCallbackAddr = "TDS_CALLBACK_ADDR"
	EnvKeyringType  = "TDS_KEYRING_TYPE"
	EnvKeyringPass  = "TDS_KEYRING_PASSWORD"
	EnvKeyringPath  = "TDS_KEYRING_PATH"
	EnvDebug        = "TDS_DEBUG"
)

const (
	defaultBaseURL      = "http://localhost:8080/api"
	defaultCallbackAddr = "127.0.0.1:8943"
	keyringDirectory    = "~/.tdsclient"
)

// Config fields determine how the client reaches the backend and where it keeps credentials.
type Config struct {
	BaseURL      string // Backend base URL, including the /api prefix.
	CallbackAddr string // Loopback address for the browser login callback.
	Backend      keyring.Config
	BackendType  backendType
	Debug        bool // Enable debug logging.

	password *string
}

// NewConfig returns a Config with defaults applied. Call RegisterCommandLineFlags and
// ReadFromEnvironment (in that order, with flag.Parse between them) to populate it.
func NewConfig() *Config {
	c := &Config{
		BaseURL:      defaultBaseURL,
		CallbackAddr: defaultCallbackAddr,
		Backend: keyring.Config{
			ServiceName:              store.ServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
	}
	c.BackendType = backendType{c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword
	return c
}

func (c *Config) RegisterCommandLineFlags() {
	flag.StringVar(&c.BaseURL, "base-url", c.BaseURL, "Backend base `url`. Defaults to $TDS_API_BASE_URL.")
	flag.StringVar(&c.CallbackAddr, "callback-addr", c.CallbackAddr, "Loopback `address` for the login callback. Defaults to $TDS_CALLBACK_ADDR.")
	var names []string
	for _, name := range keyring.AvailableBackends() {
		names = append(names, string(name))
	}
	sort.Strings(names)
	flag.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $TDS_KEYRING_TYPE.")
	flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
	flag.BoolVar(&c.Debug, "debug", false, "Enable debug logging")
}

// ReadFromEnvironment populates c using environment variables, loading a .env file first when
// one is present. Values that are already populated are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() will prevent the environment from overriding
// explicit command-line parameters.
func (c *Config) ReadFromEnvironment() {
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded .env file")
	}
	if c.BaseURL == "" || c.BaseURL == defaultBaseURL {
		if env := os.Getenv(EnvBaseURL); env != "" {
			c.BaseURL = env
			log.Debug("Set base URL to '%s'", c.BaseURL)
		}
	}
	if c.CallbackAddr == "" || c.CallbackAddr == defaultCallbackAddr {
		if env := os.Getenv(EnvCallbackAddr); env != "" {
			c.CallbackAddr = env
			log.Debug("Set callback address to '%s'", c.CallbackAddr)
		}
	}
	if c.BackendType.String() == string(keyring.InvalidBackend) {
		if err := c.BackendType.Set(os.Getenv(EnvKeyringType)); err == nil {
			log.Debug("Set keyring type to '%s'", c.BackendType)
		}
	}
	if c.password == nil {
		password := os.Getenv(EnvKeyringPass)
		c.password = &password
	}
	if c.Backend.FileDir == "" || c.Backend.FileDir == keyringDirectory {
		if env := os.Getenv(EnvKeyringPath); env != "" {
			c.Backend.FileDir = env
			log.Debug("Set keyring path to '%s'", c.Backend.FileDir)
		}
	}
	if !c.Debug {
		_, c.Debug = os.LookupEnv(EnvDebug)
	}
}

// Validate checks that c can produce a working client.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("no backend base URL configured (set -base-url or %s)", EnvBaseURL)
	}
	return nil
}

// OpenStore opens the credential store described by c.
func (c *Config) OpenStore() (*store.Store, error) {
	return store.Open(c.Backend)
}

// OpenSession opens the credential store and returns a hydrated session. When the store cannot
// be opened the session runs without persistence; the user just logs in again next start.
func (c *Config) OpenSession() *session.Session {
	var sess *session.Session
	if st, err := c.OpenStore(); err != nil {
		log.Warning("Credential store unavailable, session will not persist: %s", err)
		sess = session.New(nil)
	} else {
		sess = session.New(st)
	}
	sess.Hydrate()
	return sess
}
