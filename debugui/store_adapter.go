package debugui

import (
	"github.com/steelforge/llmbridge/model"
	"github.com/steelforge/llmbridge/store"
)

// sqliteAdapter adapts a *store.SQLiteStore to this package's narrow Store
// contract, translating store's cross-package types into the dashboard's
// own display-ready shapes so handlers never import store's model chain
// directly.
type sqliteAdapter struct {
	db *store.SQLiteStore
}

// NewSQLiteAdapter wraps db for use with New.
func NewSQLiteAdapter(db *store.SQLiteStore) Store {
	return &sqliteAdapter{db: db}
}

func (a *sqliteAdapter) ListAllSessions(limit, offset int) ([]SessionSummary, int, error) {
	rows, total, err := a.db.ListAllSessions(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]SessionSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, SessionSummary{OwnerID: r.OwnerID, Name: r.Name, Model: r.Model, MessageCount: r.MessageCount})
	}
	return out, total, nil
}

func (a *sqliteAdapter) LoadSession(ownerID int64, name string) (SessionDetail, bool, error) {
	session, found, err := a.db.Load(ownerID, name)
	if err != nil || !found {
		return SessionDetail{}, found, err
	}

	messages := session.Messages()
	display := make([]DisplayMessage, 0, len(messages))
	for _, m := range messages {
		display = append(display, DisplayMessage{
			SenderNickname: m.SenderNickname,
			Role:           string(m.Role),
			Content:        m.Content,
			Timestamp:      m.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}

	return SessionDetail{
		OwnerID:       session.OwnerID(),
		Name:          session.Name(),
		Model:         session.Model(),
		SystemPrompt:  session.SystemPrompt(),
		MessageCount:  len(messages),
		EstimatedSize: int64(model.EstimateLength(messages)),
		Messages:      display,
	}, true, nil
}
