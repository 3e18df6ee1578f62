package auth

import (
	"strings"
	"time"
)

// Role tags an account with its capabilities.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCompanyUser Role = "companyUser"
	RoleNormalUser  Role = "normalUser"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompanyUser, RoleNormalUser:
		return true
	}
	return false
}

// AccountType distinguishes company accounts from individual ones at registration.
type AccountType string

const (
	AccountCompany AccountType = "company"
	AccountNormal  AccountType = "normal"
	AccountAdmin   AccountType = "admin"
)

// Account is a registered identity. Only PasswordHash ever changes after creation.
type Account struct {
	ID           string
	Email        string
	Name         string
	CompanyName  string
	Type         AccountType
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicAccount is the projection of an Account that may leave the service.
type PublicAccount struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name,omitempty"`
	CompanyName string      `json:"company_name,omitempty"`
	Type        AccountType `json:"type"`
	Role        Role        `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Public strips the password hash.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		CompanyName: a.CompanyName,
		Type:        a.Type,
		Role:        a.Role,
		CreatedAt:   a.CreatedAt,
	}
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
