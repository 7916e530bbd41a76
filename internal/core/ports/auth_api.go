package ports

import (
	"context"

	"github.com/batuta/dashboard/internal/core/domain"
)

// Credentials is the payload of POST /api/auth/login.
type Credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the payload of POST /api/auth/register.
type Registration struct {
	Email     string      `json:"email"               validate:"required,email"`
	Password  string      `json:"password"            validate:"required,min=6"`
	FirstName string      `json:"firstName"           validate:"required"`
	LastName  string      `json:"lastName"            validate:"required"`
	Phone     string      `json:"phone,omitempty"`
	Company   string      `json:"company,omitempty"`
	Role      domain.Role `json:"role"                validate:"required,oneof=technicien client fournisseur"`
}

// AuthAPI is the upstream authentication contract. Calls that need a bearer
// token read it from the context (see authctx).
type AuthAPI interface {
	Login(ctx context.Context, c Credentials) (*domain.Session, error)
	Register(ctx context.Context, r Registration) (*domain.Session, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (*domain.Session, error)
	Me(ctx context.Context) (*domain.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}
