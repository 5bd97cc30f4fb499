package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of user roles
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleStaff     Role = "STAFF"
	RoleProfessor Role = "PROFESSOR"
)

// AuthorityPrefix is prepended to a role name to form the authority carried in tokens
const AuthorityPrefix = "ROLE_"

var ErrUnknownRole = errors.New("unknown role")

// ParseRole accepts either a bare role name or an authority string ("ROLE_ADMIN")
func ParseRole(value string) (Role, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(value)), AuthorityPrefix)
	role := Role(name)
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleProfessor:
		return true
	}
	return false
}

// Authority returns the role-derived authority string, e.g. "ROLE_PROFESSOR"
func (r Role) Authority() string {
	return AuthorityPrefix + string(r)
}

// Scan implements the sql.Scanner interface for Role
func (r *Role) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*r = Role(v)
	case string:
		*r = Role(v)
	default:
		return errors.New("invalid role type")
	}
	return nil
}

// Value implements the driver.Valuer interface for Role
func (r Role) Value() (driver.Value, error) {
	return string(r), nil
}
