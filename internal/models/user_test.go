package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleFor(t *testing.T, name string) *Role {
	t.Helper()
	for _, def := range RoleDefinitions {
		if def.Name == name {
			return &Role{Name: def.Name, Permissions: def.Permissions, Default: def.Default}
		}
	}
	t.Fatalf("no role definition named %q", name)
	return nil
}

func TestUser_Password(t *testing.T) {
	t.Parallel()

	u := &User{}
	require.NoError(t, u.SetPassword("cat"))

	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "cat", u.PasswordHash)
	assert.True(t, u.VerifyPassword("cat"))
	assert.False(t, u.VerifyPassword("dog"))

	_, err := u.Password()
	assert.ErrorIs(t, err, ErrPasswordNotReadable)
}

func TestUser_PasswordSaltsAreRandom(t *testing.T) {
	t.Parallel()

	a, b := &User{}, &User{}
	require.NoError(t, a.SetPassword("cat"))
	require.NoError(t, b.SetPassword("cat"))
	assert.NotEqual(t, a.PasswordHash, b.PasswordHash)
}

func TestUser_VerifyPasswordWithoutHash(t *testing.T) {
	t.Parallel()

	assert.False(t, (&User{}).VerifyPassword(""))
}

func TestUser_Can(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		user     *User
		perm     Permission
		expected bool
	}{
		{name: "user writes articles", user: &User{Role: roleFor(t, RoleUser)}, perm: PermWriteArticles, expected: true},
		{name: "user cannot moderate", user: &User{Role: roleFor(t, RoleUser)}, perm: PermModerateComments, expected: false},
		{name: "moderator moderates", user: &User{Role: roleFor(t, RoleModerator)}, perm: PermModerateComments, expected: true},
		{name: "moderator cannot administer", user: &User{Role: roleFor(t, RoleModerator)}, perm: PermAdminister, expected: false},
		{name: "admin has everything", user: &User{Role: roleFor(t, RoleAdministrator)}, perm: PermFollow | PermAdminister, expected: true},
		{name: "combined flags need every bit", user: &User{Role: roleFor(t, RoleUser)}, perm: PermFollow | PermModerateComments, expected: false},
		{name: "no role", user: &User{}, perm: PermFollow, expected: false},
		{name: "nil user", user: nil, perm: PermFollow, expected: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.user.Can(tt.perm))
		})
	}
}

func TestUser_IsAdministrator(t *testing.T) {
	t.Parallel()

	assert.True(t, (&User{Role: roleFor(t, RoleAdministrator)}).IsAdministrator())
	assert.False(t, (&User{Role: roleFor(t, RoleModerator)}).IsAdministrator())
	assert.False(t, (&User{Role: roleFor(t, RoleUser)}).IsAdministrator())
}

func TestAnonymousUser(t *testing.T) {
	t.Parallel()

	var anon Identity = AnonymousUser{}
	for _, p := range []Permission{PermFollow, PermComment, PermWriteArticles, PermModerateComments, PermAdminister} {
		assert.False(t, anon.Can(p))
	}
	assert.False(t, anon.IsAdministrator())
	assert.False(t, anon.IsAuthenticated())
}

func TestRoleDefinitions(t *testing.T) {
	t.Parallel()

	defaults := 0
	for _, def := range RoleDefinitions {
		if def.Default {
			defaults++
			assert.Equal(t, RoleUser, def.Name)
		}
	}
	assert.Equal(t, 1, defaults)
	assert.Equal(t, Permission(0x07), roleFor(t, RoleUser).Permissions)
	assert.Equal(t, Permission(0x0f), roleFor(t, RoleModerator).Permissions)
	assert.Equal(t, Permission(0xff), roleFor(t, RoleAdministrator).Permissions)
}

func TestGravatarURL(t *testing.T) {
	t.Parallel()

	const hash = "d4c74594d841139328695756648b6bd6"

	assert.Equal(t, AvatarHash("john@example.com"), AvatarHash("John@Example.com"))
	assert.Equal(t,
		"http://www.gravatar.com/avatar/"+hash+"?s=100&d=identicon&r=g",
		GravatarURL(false, hash, "", 0, "", ""))
	assert.Equal(t,
		"https://secure.gravatar.com/avatar/"+hash+"?s=256&d=identicon&r=g",
		GravatarURL(true, hash, "", 256, "", ""))
	assert.Equal(t,
		"http://www.gravatar.com/avatar/"+hash+"?s=100&d=retro&r=pg",
		GravatarURL(false, hash, "", 100, "retro", "pg"))

	fromEmail := GravatarURL(false, "", "john@example.com", 0, "", "")
	assert.Contains(t, fromEmail, "/"+AvatarHash("john@example.com")+"?")
}

func TestUser_GravatarUsesStoredHash(t *testing.T) {
	t.Parallel()

	u := &User{Email: "john@example.com"}
	u.SetEmail("john@example.com")
	assert.Len(t, u.AvatarHash, 32)
	assert.Equal(t,
		"https://secure.gravatar.com/avatar/"+u.AvatarHash+"?s=64&d=identicon&r=g",
		u.Gravatar(true, 64))

	u.SetEmail("other@example.com")
	assert.Equal(t, AvatarHash("other@example.com"), u.AvatarHash)
}

func TestUser_Ping(t *testing.T) {
	t.Parallel()

	u := &User{}
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u.LastSeen = before
	u.Ping(before.Add(time.Minute))
	assert.True(t, u.LastSeen.After(before))
}
