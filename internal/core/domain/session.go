package domain

import (
	"encoding/json"
	"fmt"
)

// Session is the {user, token} pair held for one browser.
type Session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Valid reports whether both halves of the session are present.
func (s Session) Valid() bool {
	return s.User != nil && s.Token != ""
}

// persistedSession mirrors the local-storage layout {"state":{"user":…,"token":…}}.
type persistedSession struct {
	State Session `json:"state"`
}

// EncodeSession renders s in the persisted layout.
func EncodeSession(s Session) ([]byte, error) {
	return json.Marshal(persistedSession{State: s})
}

// DecodeSession parses the persisted layout. A payload holding only half a
// session decodes to an empty one.
func DecodeSession(data []byte) (Session, error) {
	var p persistedSession
	if err := json.Unmarshal(data, &p); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if !p.State.Valid() {
		return Session{}, nil
	}
	return p.State, nil
}
