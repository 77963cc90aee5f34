package models

// Permission is a bit flag. A role's permission set is the OR of its flags.
type Permission int

const (
	PermFollow           Permission = 0x01
	PermComment          Permission = 0x02
	PermWriteArticles    Permission = 0x04
	PermModerateComments Permission = 0x08
	PermAdminister       Permission = 0x80
)

// Role names seeded by seed.EnsureRoles.
const (
	RoleUser          = "User"
	RoleModerator     = "Moderator"
	RoleAdministrator = "Administrator"
)

// Role is a named permission set. Exactly one role is marked default.
type Role struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Default     bool       `gorm:"column:default;index;not null;default:false" json:"default"`
	Permissions Permission `gorm:"not null;default:0" json:"permissions"`
}

// TableName returns the database table name for Role.
func (Role) TableName() string {
	return "roles"
}

// Has reports whether every bit of p is set on the role.
func (r *Role) Has(p Permission) bool {
	return r != nil && r.Permissions&p == p
}

// RoleDefinition is the authored shape of a seeded role.
type RoleDefinition struct {
	Name        string
	Permissions Permission
	Default     bool
}

// RoleDefinitions is the only place role permission sets are authored.
var RoleDefinitions = []RoleDefinition{
	{Name: RoleUser, Permissions: PermFollow | PermComment | PermWriteArticles, Default: true},
	{Name: RoleModerator, Permissions: PermFollow | PermComment | PermWriteArticles | PermModerateComments},
	{Name: RoleAdministrator, Permissions: 0xff},
}
