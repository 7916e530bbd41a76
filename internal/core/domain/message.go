package domain

import (
	"encoding/json"
	"strings"
	"time"
)

const replyPrefix = "Re: "

// Message is one entry in a user's mailbox.
type Message struct {
	ID            string    `json:"id"`
	Sender        UserRef   `json:"sender"`
	Recipient     UserRef   `json:"recipient"`
	Subject       string    `json:"subject"`
	Content       string    `json:"content"`
	Read          bool      `json:"read"`
	ParentMessage string    `json:"parentMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts "_id" for the message id and a populated object for
// parentMessage.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		*alias
		MongoID       string          `json:"_id"`
		ParentMessage json.RawMessage `json:"parentMessage"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = aux.MongoID
	}
	m.ParentMessage = ""
	if len(aux.ParentMessage) > 0 && string(aux.ParentMessage) != "null" {
		var parent UserRef
		if err := json.Unmarshal(aux.ParentMessage, &parent); err != nil {
			return err
		}
		m.ParentMessage = parent.ID
	}
	return nil
}

// IsFor reports whether userID is the message recipient.
func (m Message) IsFor(userID string) bool {
	return userID != "" && m.Recipient.ID == userID
}

// ComposeInput is the payload of POST /api/messages.
type ComposeInput struct {
	Recipient     string `json:"recipient"               validate:"required"`
	Subject       string `json:"subject"                 validate:"required,max=200"`
	Content       string `json:"content"                 validate:"required"`
	ParentMessage string `json:"parentMessage,omitempty"`
}

// ReplySubject prefixes subject with "Re: ".
func ReplySubject(subject string) string {
	return replyPrefix + strings.TrimSpace(subject)
}
