package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, Admin.Valid())
	assert.True(t, Teacher.Valid())
	assert.True(t, Student.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestPermissionAllows(t *testing.T) {
	assert.True(t, CurriculumWrite.Allows(Admin))
	assert.False(t, CurriculumWrite.Allows(Teacher))
	assert.False(t, CurriculumWrite.Allows(Student))

	// Unknown permissions deny everyone, including admins.
	assert.False(t, Permission("movie:write").Allows(Admin))
}

func TestAllowedIsClosed(t *testing.T) {
	for _, p := range []Permission{CurriculumWrite, GradeWrite, SubjectWrite, ChapterWrite, EmailAdmin} {
		assert.Equal(t, []Role{Admin}, Allowed(p), string(p))
	}
	assert.Empty(t, Allowed(Permission("unknown")))
}
