package domain

import "fmt"

// Role gates which dashboard sections a user can reach.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleTechnicien  Role = "technicien"
	RoleClient      Role = "client"
	RoleFournisseur Role = "fournisseur"
)

// Roles lists every known role in display order.
var Roles = []Role{RoleAdmin, RoleTechnicien, RoleClient, RoleFournisseur}

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Section is a dashboard area backed by one resource module.
type Section string

const (
	SectionOverview   Section = "overview"
	SectionMessages   Section = "messages"
	SectionOrders     Section = "orders"
	SectionProducts   Section = "products"
	SectionDeliveries Section = "deliveries"
	SectionEquipment  Section = "equipment"
	SectionUsers      Section = "users"
)

// RoleSections is the single role -> visible sections table. Route
// allow-lists and the dashboard home are both derived from it.
var RoleSections = map[Role][]Section{
	RoleAdmin: {
		SectionOverview, SectionUsers, SectionOrders, SectionProducts,
		SectionDeliveries, SectionEquipment, SectionMessages,
	},
	RoleTechnicien: {
		SectionOverview, SectionOrders, SectionEquipment, SectionDeliveries, SectionMessages,
	},
	RoleClient: {
		SectionOverview, SectionOrders, SectionProducts, SectionMessages,
	},
	RoleFournisseur: {
		SectionOverview, SectionProducts, SectionDeliveries, SectionMessages,
	},
}

// AllowedRoles returns the roles whose table entry contains s.
func AllowedRoles(s Section) []Role {
	var out []Role
	for _, r := range Roles {
		if r.CanAccess(s) {
			out = append(out, r)
		}
	}
	return out
}

// CanAccess reports whether the role's table entry contains s.
func (r Role) CanAccess(s Section) bool {
	for _, sec := range RoleSections[r] {
		if sec == s {
			return true
		}
	}
	return false
}
