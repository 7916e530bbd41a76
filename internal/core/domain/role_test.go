package domain

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Fatalf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}

	if _, err := ParseRole("superuser"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestAllowedRoles_DerivedFromTable(t *testing.T) {
	users := AllowedRoles(SectionUsers)
	if len(users) != 1 || users[0] != RoleAdmin {
		t.Fatalf("users section should be admin-only, got %v", users)
	}

	messages := AllowedRoles(SectionMessages)
	if len(messages) != len(Roles) {
		t.Fatalf("every role should reach messages, got %v", messages)
	}

	equipment := AllowedRoles(SectionEquipment)
	for _, r := range equipment {
		if r == RoleClient || r == RoleFournisseur {
			t.Fatalf("equipment must not be visible to %s", r)
		}
	}
}

func TestRole_CanAccess_UnknownRole(t *testing.T) {
	if Role("guest").CanAccess(SectionOverview) {
		t.Fatal("unknown role must not access anything")
	}
}
