// Package snapshotstore persists chat box snapshots per session so a host can
// restore a transcript after a restart.
package snapshotstore

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/go-go-golems/chatbox/pkg/chatbox"
)

var ErrNotFound = errors.New("snapshot not found")

// Entry describes a stored snapshot.
type Entry struct {
	SessionID           string `json:"session_id"`
	Version             uint64 `json:"version"`
	UpdatedAtMs         int64  `json:"updated_at_ms"`
	CurrentConversation string `json:"current_conversation"`
	Conversations       int    `json:"conversations"`
	Bytes               int    `json:"bytes"`
}

// Store keeps the latest snapshot of every session. Every Save bumps the
// session's version.
type Store interface {
	Save(ctx context.Context, sessionID string, snapshot []byte) (uint64, error)
	Load(ctx context.Context, sessionID string) ([]byte, uint64, error)
	Delete(ctx context.Context, sessionID string) error
	// List returns entries, most recently updated first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

func validate(sessionID string, snapshot []byte) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errors.New("sessionID is empty")
	}
	if !json.Valid(snapshot) {
		return "", errors.New("snapshot is not valid JSON")
	}
	return sessionID, nil
}

// describe fills the snapshot derived fields of an entry.
func describe(e Entry, snapshot []byte) Entry {
	e.CurrentConversation = gjson.GetBytes(snapshot, "currentConversationName").String()
	e.Conversations = len(gjson.GetBytes(snapshot, "conversations").Map())
	e.Bytes = len(snapshot)
	return e
}

// SaveChatBox stores the compact JSON snapshot of cb.
func SaveChatBox(ctx context.Context, s Store, sessionID string, cb *chatbox.ChatBox) (uint64, error) {
	data, err := cb.ToJSON(false)
	if err != nil {
		return 0, err
	}
	return s.Save(ctx, sessionID, data)
}

// LoadChatBox restores cb from the stored snapshot of sessionID.
func LoadChatBox(ctx context.Context, s Store, sessionID string, cb *chatbox.ChatBox) (uint64, error) {
	data, version, err := s.Load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if err := cb.FromJSON(data); err != nil {
		return 0, err
	}
	return version, nil
}
