// Package roles defines the closed role enumeration and the permission map
// used by the authorization middleware.
package roles

// Role is the coarse access level attached to a profile. The set is closed;
// role changes happen out-of-band, never through the public surface.
type Role string

const (
	Admin   Role = "admin"
	Teacher Role = "teacher"
	Student Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case Admin, Teacher, Student:
		return true
	}
	return false
}

// Permission names a capability that maps to an allowed role set. Finer
// grained than a bare role check.
type Permission string

const (
	CurriculumWrite Permission = "curriculum:write"
	GradeWrite      Permission = "grade:write"
	SubjectWrite    Permission = "subject:write"
	ChapterWrite    Permission = "chapter:write"
	EmailAdmin      Permission = "email:admin"
)

// permissions is the config-time permission -> allowed-role-set mapping.
// Unknown permissions resolve to an empty set, which denies everyone.
var permissions = map[Permission][]Role{
	CurriculumWrite: {Admin},
	GradeWrite:      {Admin},
	SubjectWrite:    {Admin},
	ChapterWrite:    {Admin},
	EmailAdmin:      {Admin},
}

// Allowed returns the role set permitted to exercise p.
func Allowed(p Permission) []Role {
	return permissions[p]
}

// Allows reports whether role r may exercise permission p.
func (p Permission) Allows(r Role) bool {
	for _, allowed := range permissions[p] {
		if allowed == r {
			return true
		}
	}
	return false
}
