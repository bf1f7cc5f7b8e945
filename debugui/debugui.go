// Package debugui is the local operator dashboard: a gin HTTP server, off
// by default, that reads straight through the session store and never
// mutates it. It is not an authentication boundary, just a single-operator
// debug view, consistent with the bridge's one-admin-identifier privilege
// model.
package debugui

import (
	"github.com/gin-gonic/gin"

	"github.com/steelforge/llmbridge/store"
)

// Store is the read-only slice of store.SQLiteStore this package needs.
type Store interface {
	ListAllSessions(limit, offset int) ([]SessionSummary, int, error)
	LoadSession(ownerID int64, name string) (SessionDetail, bool, error)
}

// SessionSummary mirrors store.SessionSummary; kept as its own type so the
// handlers and the Store contract work against this package's types only,
// with store's types confined to the adapter.
type SessionSummary struct {
	OwnerID      int64
	Name         string
	Model        string
	MessageCount int
}

// SessionDetail is one session's full message list, already rendered
// display-ready so the handler stays free of business logic.
type SessionDetail struct {
	OwnerID       int64
	Name          string
	Model         string
	SystemPrompt  string
	MessageCount  int
	EstimatedSize int64
	Messages      []DisplayMessage
}

// DisplayMessage is one message row as the dashboard shows it.
type DisplayMessage struct {
	SenderNickname string
	Role           string
	Content        string
	Timestamp      string
}

// Dashboard is the debugui server.
type Dashboard struct {
	store  Store
	engine *gin.Engine
}

// New builds a Dashboard reading through db. Call Run to expose it.
func New(db *store.SQLiteStore) *Dashboard {
	gin.SetMode(gin.ReleaseMode)
	d := &Dashboard{store: NewSQLiteAdapter(db), engine: gin.New()}
	d.registerRoutes()
	return d
}

// RegisterRoutes exposes the dashboard's handlers on an existing engine,
// for callers that want to fold it into a larger gin server instead of
// running Dashboard's own.
func (d *Dashboard) RegisterRoutes(router *gin.Engine) {
	router.GET("/bridge/sessions", d.handleSessions)
	router.GET("/bridge/sessions/:owner/:name", d.handleSessionDetail)
	router.GET("/bridge/chart", d.handleChart)
	router.GET("/bridge/health", d.handleHealth)
}

func (d *Dashboard) registerRoutes() { d.RegisterRoutes(d.engine) }

// Run starts the dashboard's own HTTP server on addr, blocking until it
// exits or fails.
func (d *Dashboard) Run(addr string) error {
	return d.engine.Run(addr)
}
