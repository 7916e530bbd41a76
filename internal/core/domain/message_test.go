package domain

import (
	"encoding/json"
	"testing"
)

func TestMessage_UnmarshalPopulatedRefs(t *testing.T) {
	raw := `{
		"_id": "m1",
		"sender": {"_id": "u1", "email": "tech@batuta.fr", "role": "technicien"},
		"recipient": "u2",
		"subject": "Devis",
		"content": "Bonjour",
		"read": false,
		"parentMessage": {"_id": "m0"}
	}`

	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.ID != "m1" {
		t.Errorf("id = %q", m.ID)
	}
	if m.Sender.ID != "u1" || m.Sender.Role != RoleTechnicien {
		t.Errorf("sender = %+v", m.Sender)
	}
	if m.Recipient.ID != "u2" {
		t.Errorf("recipient = %+v", m.Recipient)
	}
	if m.ParentMessage != "m0" {
		t.Errorf("parent = %q", m.ParentMessage)
	}
	if !m.IsFor("u2") || m.IsFor("u1") || m.IsFor("") {
		t.Error("IsFor mismatch")
	}
}

func TestMessage_NullParent(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"id":"m1","parentMessage":null}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.ParentMessage != "" {
		t.Fatalf("expected no parent, got %q", m.ParentMessage)
	}
}

func TestReplySubject(t *testing.T) {
	if got := ReplySubject("Intervention lundi"); got != "Re: Intervention lundi" {
		t.Fatalf("got %q", got)
	}
}
