package auth

import (
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/tichealth/tic-app/conf"
	"github.com/tichealth/tic-app/tic/approval"
	"github.com/tichealth/tic-app/tic/constants"
)

var ErrInvalidCredential = errors.New(constants.ErrInvalidCredential)

// Session is one authenticated working set. Claims, the active grouping
// method, and the approval ledger all live on the session's store; nothing
// survives a restart.
type Session struct {
	Token     string
	Username  string
	CreatedAt time.Time
	Store     *approval.Store
}

// Registry holds all live sessions, keyed by bearer token.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Login checks the demo credential pair and mints a new session with an
// empty working set. Each login gets its own store.
func (rg *Registry) Login(username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredential
	}
	if username != conf.GetEnv("TIC_DEMO_USERNAME") || password != conf.GetEnv("TIC_DEMO_PASSWORD") {
		return nil, ErrInvalidCredential
	}

	session := &Session{
		Token:     uuid.NewRandom().String(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
		Store:     approval.NewStore(),
	}

	rg.mu.Lock()
	rg.sessions[session.Token] = session
	rg.mu.Unlock()

	return session, nil
}

// GetSession resolves a bearer token; nil when unknown.
func (rg *Registry) GetSession(token string) *Session {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return rg.sessions[token]
}

func (rg *Registry) Logout(token string) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	delete(rg.sessions, token)
}
