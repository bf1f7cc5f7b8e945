// Package bridge is the command adaptor: it binds chat-platform
// commands to the core session/streaming operations. Bridge is the single
// orchestrator that owns the session cache, the catalogue, the backend and
// chat-platform clients, and the store.
package bridge

import (
	"sync"
	"time"

	"github.com/steelforge/llmbridge/backend"
	"github.com/steelforge/llmbridge/catalog"
	"github.com/steelforge/llmbridge/chatclient"
	"github.com/steelforge/llmbridge/log"
	"github.com/steelforge/llmbridge/model"
)

// Store is the persistence contract Bridge needs beyond the narrow
// model.SessionStore a Session itself uses: full CRUD plus the
// active-session pointer.
type Store interface {
	model.SessionStore
	Load(ownerID int64, name string) (*model.Session, bool, error)
	Delete(ownerID int64, name string) error
	ListSessionNames(ownerID int64) ([]string, error)
	SessionExists(ownerID int64, name string) (bool, error)
	MarkActive(ownerID int64, name string) error
	GetActiveSession(ownerID int64) (string, bool, error)
	ClearActiveSession(ownerID int64) error
}

// Bridge is the command adaptor's stateful core.
type Bridge struct {
	Config Config
	store  Store
	cat    *catalog.Catalog
	be     backend.Backend
	chat   chatclient.Client
	logger *log.Logger

	cache sessionCache
}

// Config is the subset of config.Config the bridge needs to drive the
// respond path and temporary-session construction; kept separate from the
// config package so bridge does not depend on config (bridge needs
// config's runtime values only).
type Config struct {
	AdminID               int64
	BotPrefix             string
	EditDelay             time.Duration
	MaxMessagesForContext int
	DefaultSystemPrompt   string
}

// New builds a Bridge.
func New(cfg Config, store Store, cat *catalog.Catalog, be backend.Backend, chat chatclient.Client, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Log
	}
	return &Bridge{
		Config: cfg,
		store:  store,
		cat:    cat,
		be:     be,
		chat:   chat,
		logger: logger,
		cache:  newSessionCache(),
	}
}

// sessionCache holds at most one in-memory Session per (owner, name):
// commands look up before constructing so no divergent copies exist.
type sessionCache struct {
	mu       sync.Mutex
	sessions map[cacheKey]*model.Session
}

type cacheKey struct {
	ownerID int64
	name    string
}

func newSessionCache() sessionCache {
	return sessionCache{sessions: make(map[cacheKey]*model.Session)}
}

func (c *sessionCache) get(ownerID int64, name string) (*model.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[cacheKey{ownerID, name}]
	return s, ok
}

func (c *sessionCache) put(ownerID int64, name string, s *model.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[cacheKey{ownerID, name}] = s
}

func (c *sessionCache) evict(ownerID int64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, cacheKey{ownerID, name})
}

// loadPersistent returns the cached instance for (ownerID, name) if present,
// else loads it from the store and caches it. Temporary sessions never go
// through this path.
func (b *Bridge) loadPersistent(ownerID int64, name string) (*model.Session, bool, error) {
	if s, ok := b.cache.get(ownerID, name); ok {
		return s, true, nil
	}
	s, found, err := b.store.Load(ownerID, name)
	if err != nil || !found {
		return nil, found, err
	}
	b.cache.put(ownerID, name, s)
	return s, true, nil
}
