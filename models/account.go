package models

import (
	"time"
)

// Role represents an account's position in the ownership hierarchy
type Role string

const (
	RoleUser            Role = "user"
	RoleAssociateMaster Role = "associate_master"
	RoleMaster          Role = "master"
	RoleSeniorMaster    Role = "senior_master"
	RoleSuperMaster     Role = "super_master"
	RoleSuperAdmin      Role = "super_admin"
)

// roleRanks orders the hierarchy from plain user up to super admin
var roleRanks = map[Role]int{
	RoleUser:            0,
	RoleAssociateMaster: 1,
	RoleMaster:          2,
	RoleSeniorMaster:    3,
	RoleSuperMaster:     4,
	RoleSuperAdmin:      5,
}

// Rank returns the role's position in the hierarchy, -1 for unknown roles
func (r Role) Rank() int {
	rank, ok := roleRanks[r]
	if !ok {
		return -1
	}
	return rank
}

// Valid reports whether the role is one of the defined hierarchy levels
func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// Account represents a points-holding account in the ownership tree
type Account struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Role      Role      `db:"role"`
	ParentID  *int64    `db:"parent_id"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsRoot reports whether the account has no owner above it
func (a *Account) IsRoot() bool {
	return a.ParentID == nil
}

// CanMint reports whether the account may create or destroy points
// through manual adjustments.
func (a *Account) CanMint() bool {
	return a.Role == RoleSuperAdmin
}
