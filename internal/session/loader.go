package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/bankassist/internal/logx"
)

// User is an entry of the users file.
type User struct {
	Name string `json:"name"`
	File string `json:"file"`
}

const (
	MsgUserNotFound     = "❌ User not found."
	msgUsersUnavailable = "⚠️ User directory is unavailable."
)

// Loader builds sessions from a users file and a folder of ledgers.
type Loader struct {
	UsersFile       string
	TransactionsDir string
}

// ReadUsers parses the users file into a map keyed by user id.
func ReadUsers(path string) (map[string]User, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading users file: %w", err)
	}
	var users map[string]User
	if err := json.Unmarshal(b, &users); err != nil {
		return nil, fmt.Errorf("parsing users file: %w", err)
	}
	return users, nil
}

// Load opens a session for userID. On success it returns the session and a
// greeting; otherwise a nil session and a message suitable for the user.
func (l Loader) Load(userID string) (*Session, string) {
	users, err := ReadUsers(l.UsersFile)
	if err != nil {
		logx.Error().Err(err).Str("path", l.UsersFile).Msg("cannot load users")
		return nil, msgUsersUnavailable
	}

	user, ok := users[userID]
	if !ok {
		return nil, MsgUserNotFound
	}

	ledger, err := ReadLedgerFile(filepath.Join(l.TransactionsDir, user.File))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logx.Warn().Err(err).Str("user_id", userID).Msg("cannot read ledger")
		}
		return nil, fmt.Sprintf("⚠️ Transactions not found for user %s.", user.Name)
	}

	s := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         user.Name,
		Transactions: ledger,
		StartedAt:    time.Now().UTC(),
	}
	return s, fmt.Sprintf("👋 Hello, %s! How may I help you today?", user.Name)
}
