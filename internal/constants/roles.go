package constants

import (
	"database/sql/driver"
	"fmt"
)

// MemberRole mirrors the community roles stored on a member record.
type MemberRole string

const (
	RoleAffilie         MemberRole = "Affilié"
	RoleDeveloppement   MemberRole = "Développement"
	RoleModeratorJunior MemberRole = "Modérateur Junior"
	RoleModeratorMentor MemberRole = "Modérateur Mentor"
	RoleAdminAdjoint    MemberRole = "Admin Adjoint"
	RoleAdmin           MemberRole = "Admin"
	RoleFounder         MemberRole = "Founder"
)

// roleRank orders roles for the admin hierarchy. Community roles rank 0.
var roleRank = map[MemberRole]int{
	RoleAffilie:         0,
	RoleDeveloppement:   0,
	RoleModeratorJunior: 1,
	RoleModeratorMentor: 2,
	RoleAdminAdjoint:    3,
	RoleAdmin:           4,
	RoleFounder:         5,
}

var AllMemberRoles = []MemberRole{
	RoleAffilie,
	RoleDeveloppement,
	RoleModeratorJunior,
	RoleModeratorMentor,
	RoleAdminAdjoint,
	RoleAdmin,
	RoleFounder,
}

func (r MemberRole) String() string { return string(r) }

// Valid reports whether r is one of the known roles.
func (r MemberRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the position of r in the admin hierarchy (-1 when unknown).
func (r MemberRole) Rank() int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return -1
}

// AtLeast reports whether r is at or above min in the hierarchy.
func (r MemberRole) AtLeast(min MemberRole) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

// IsStaff is true for every moderation or administration role.
func (r MemberRole) IsStaff() bool { return r.Rank() >= roleRank[RoleModeratorJunior] }

// Scan implements the sql.Scanner interface
func (r *MemberRole) Scan(src interface{}) error {
	if src == nil {
		*r = ""
		return nil
	}
	switch v := src.(type) {
	case string:
		*r = MemberRole(v)
	case []byte:
		*r = MemberRole(v)
	default:
		return fmt.Errorf("MemberRole: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (r MemberRole) Value() (driver.Value, error) { return string(r), nil }
