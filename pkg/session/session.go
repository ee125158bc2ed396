// Package session tracks the client's authentication state for the lifetime of the process.
//
// A Session holds the backend bearer token, the opaque upstream Tesla token, and the user id.
// The three are set and cleared together; the bearer token's presence is the sole signal the
// routing layer uses to choose between the login and vehicle views. The session persists itself
// through a credential store so a restart resumes where the user left off.
package session

import (
	"sync"

	"github.com/tdsapp/tdsclient/internal/log"
)

// StorageKey is the fixed credential-store key under which the login payload is persisted.
const StorageKey = "tds-auth-payload"

// Storage is the slice of the credential store the session needs. All methods are best-effort;
// see package store.
type Storage interface {
	SetJSON(key string, value interface{})
	GetJSON(key string, value interface{}) bool
	Delete(key string)
}

// Session is safe for concurrent use. The zero value is not usable; call New.
type Session struct {
	mu         sync.Mutex
	hydrated   bool
	userID     string
	token      string
	teslaToken *TeslaToken

	storage Storage
	persist sync.WaitGroup

	subMu  sync.Mutex
	nextID int
	subs   map[int]func()
}

// New returns an empty, unhydrated Session. storage may be nil, in which case nothing is
// persisted and Hydrate finds no prior session.
func New(storage Storage) *Session {
	return &Session{storage: storage, subs: make(map[int]func())}
}

// Hydrate loads a previously persisted session, if any. It is called exactly once at boot,
// before the UI starts. Absent or unreadable records leave the credentials empty; Hydrated
// reports true either way.
func (s *Session) Hydrate() {
	var payload LoginPayload
	if s.storage != nil && s.storage.GetJSON(StorageKey, &payload) && payload.Validate() == nil {
		s.apply(payload)
		log.Info("session: restored persisted session for user %q", payload.UserID)
	}
	s.mu.Lock()
	s.hydrated = true
	s.mu.Unlock()
	s.notify()
}

// SetAuthPayload installs the credentials from a login payload and persists them in the
// background. The caller does not wait for persistence; a write failure only affects the next
// cold start and is logged by the store.
func (s *Session) SetAuthPayload(payload LoginPayload) {
	s.apply(payload)
	if s.storage != nil {
		s.persist.Add(1)
		go func() {
			defer s.persist.Done()
			s.storage.SetJSON(StorageKey, payload)
		}()
	}
	s.notify()
}

func (s *Session) apply(payload LoginPayload) {
	userID := payload.UserID
	if userID == "" {
		userID = payload.subject()
	}
	token := payload.TeslaToken
	s.mu.Lock()
	s.userID = userID
	s.token = payload.JWT.Token
	s.teslaToken = &token
	s.mu.Unlock()
}

// Reset clears the user id, bearer token, and upstream token together and deletes the persisted
// record in the background. Invoked on explicit logout and by the API client when the backend
// answers 401.
func (s *Session) Reset() {
	s.mu.Lock()
	hadToken := s.token != ""
	s.userID = ""
	s.token = ""
	s.teslaToken = nil
	s.mu.Unlock()
	if s.storage != nil {
		s.persist.Add(1)
		go func() {
			defer s.persist.Done()
			s.storage.Delete(StorageKey)
		}()
	}
	if hadToken {
		log.Info("session: cleared")
	}
	s.notify()
}

// Token returns the backend bearer token, or "" when unauthenticated. It never blocks beyond the
// mutex; the API client calls it inline on every request.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// UserID returns the authenticated user's id, or "".
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// TeslaToken returns a copy of the upstream token, or nil.
func (s *Session) TeslaToken() *TeslaToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teslaToken == nil {
		return nil
	}
	token := *s.teslaToken
	return &token
}

// Hydrated reports whether the initial load attempt has completed.
func (s *Session) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Authenticated reports whether a bearer token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Subscribe registers fn to run after every state change (hydration, login, reset). The returned
// function removes the subscription; callers must invoke it when the observer goes away.
func (s *Session) Subscribe(fn func()) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Flush blocks until in-flight background persistence calls complete. The login-then-reset
// ordering race inherent in fire-and-forget persistence is accepted (both calls are user-driven
// and far apart in practice); Flush exists for orderly shutdown and for tests.
func (s *Session) Flush() {
	s.persist.Wait()
}
