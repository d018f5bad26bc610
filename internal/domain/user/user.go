package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/bilim-app/bilim/internal/shared/biztime"
)

// User is the platform account payments attach to. Billing only needs
// identity and contact fields; profile data lives elsewhere.
type User struct {
	id        uint
	email     string
	phone     string
	name      string
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

// NewUser creates an active user account.
func NewUser(email, phone, name string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email: %s", email)
	}

	now := biztime.NowUTC()
	return &User{
		email:     email,
		phone:     strings.TrimSpace(phone),
		name:      strings.TrimSpace(name),
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func (u *User) Deactivate() {
	u.isActive = false
	u.updatedAt = biztime.NowUTC()
}

func (u *User) SetID(id uint) {
	u.id = id
}

func (u *User) ID() uint {
	return u.id
}

func (u *User) Email() string {
	return u.email
}

func (u *User) Phone() string {
	return u.phone
}

func (u *User) Name() string {
	return u.name
}

func (u *User) IsActive() bool {
	return u.isActive
}

func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

func (u *User) UpdatedAt() time.Time {
	return u.updatedAt
}

// UserReconstructParams carries every persisted field of a user.
type UserReconstructParams struct {
	ID        uint
	Email     string
	Phone     string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReconstructUser rebuilds a User from persistence.
func ReconstructUser(p UserReconstructParams) *User {
	return &User{
		id:        p.ID,
		email:     p.Email,
		phone:     p.Phone,
		name:      p.Name,
		isActive:  p.IsActive,
		createdAt: p.CreatedAt,
		updatedAt: p.UpdatedAt,
	}
}
