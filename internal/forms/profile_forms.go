package forms

import (
	"context"
	"errors"
	"strings"

	"quill/internal/models"
)

// EditProfileForm holds the fields a user may change on their own profile.
type EditProfileForm struct {
	Name     string `json:"name" form:"name" validate:"max=64"`
	Location string `json:"location" form:"location" validate:"max=64"`
	AboutMe  string `json:"about_me" form:"about_me"`
}

// NewEditProfileForm prefills the form from u.
func NewEditProfileForm(u *models.User) EditProfileForm {
	return EditProfileForm{Name: u.Name, Location: u.Location, AboutMe: u.AboutMe}
}

func (f *EditProfileForm) Validate(_ context.Context) Errors {
	return check(f)
}

// Apply copies the form onto u.
func (f *EditProfileForm) Apply(u *models.User) {
	u.Name = f.Name
	u.Location = f.Location
	u.AboutMe = f.AboutMe
}

// EditProfileAdminForm lets an administrator edit any account.
type EditProfileAdminForm struct {
	Email     string `json:"email" form:"email" validate:"required,max=64,email"`
	Username  string `json:"username" form:"username" validate:"required,max=64,username"`
	Confirmed bool   `json:"confirmed" form:"confirmed"`
	RoleID    uint   `json:"role_id" form:"role_id" validate:"required"`
	Name      string `json:"name" form:"name" validate:"max=64"`
	Location  string `json:"location" form:"location" validate:"max=64"`
	AboutMe   string `json:"about_me" form:"about_me"`
}

// NewEditProfileAdminForm prefills the form from u.
func NewEditProfileAdminForm(u *models.User) EditProfileAdminForm {
	f := EditProfileAdminForm{
		Email:     u.Email,
		Username:  u.Username,
		Confirmed: u.Confirmed,
		Name:      u.Name,
		Location:  u.Location,
		AboutMe:   u.AboutMe,
	}
	if u.RoleID != nil {
		f.RoleID = *u.RoleID
	}
	return f
}

// Validate checks uniqueness against every account except target, and that
// the chosen role exists.
func (f *EditProfileAdminForm) Validate(ctx context.Context, target *models.User, users Users, roles Roles) (Errors, error) {
	f.Email = strings.TrimSpace(f.Email)
	f.Username = strings.TrimSpace(f.Username)
	errs := check(f)

	if f.Email != target.Email {
		if err := emailTaken(ctx, users, errs, f.Email, target.ID); err != nil {
			return nil, err
		}
	}
	if f.Username != target.Username {
		if err := usernameTaken(ctx, users, errs, f.Username, target.ID); err != nil {
			return nil, err
		}
	}
	if !errs.Has("role_id") {
		role, err := roles.GetByID(ctx, f.RoleID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if role == nil {
			errs.Add("role_id", MsgInvalidRole)
		}
	}
	return errs, nil
}

// Apply copies the form onto u. The role is set by ID; callers reload it.
func (f *EditProfileAdminForm) Apply(u *models.User) {
	if f.Email != u.Email {
		u.SetEmail(f.Email)
	}
	u.Username = f.Username
	u.Confirmed = f.Confirmed
	roleID := f.RoleID
	u.RoleID = &roleID
	u.Role = nil
	u.Name = f.Name
	u.Location = f.Location
	u.AboutMe = f.AboutMe
}

// PostForm submits a new post.
type PostForm struct {
	Body string `json:"body" form:"body" validate:"required"`
}

func (f *PostForm) Validate(_ context.Context) Errors {
	if strings.TrimSpace(f.Body) == "" {
		f.Body = ""
	}
	return check(f)
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
