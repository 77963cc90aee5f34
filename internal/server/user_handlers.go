package server

import (
	"quill/internal/forms"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

const profileAvatarSize = 256

// GetUserProfile handles GET /user/:username
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()

	user, err := s.accounts.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		return models.Respond(c, err)
	}

	page := parsePagination(c, s.pageSize())
	posts, err := s.posts.ListUserPosts(ctx, user.ID, page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}

	secure := c.Protocol() == "https"
	profile := toProfileDTO(user, secure, profileAvatarSize)
	return c.JSON(fiber.Map{
		"user":   profile,
		"avatar": profile.Avatar,
		"posts":  toPostPageDTO(posts, secure),
	})
}

// GetEditProfile handles GET /edit-profile
func (s *Server) GetEditProfile(c *fiber.Ctx) error {
	return c.JSON(forms.NewEditProfileForm(mustUser(c)))
}

// EditProfile handles POST /edit-profile. Fields missing from the body keep
// their current values.
func (s *Server) EditProfile(c *fiber.Ctx) error {
	user := mustUser(c)

	form := forms.NewEditProfileForm(user)
	if err := bind(c, &form); err != nil {
		return nil
	}

	updated, err := s.accounts.UpdateProfile(c.UserContext(), user, form)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "Your profile has been updated.",
		"user":     updated,
		"redirect": "/user/" + updated.Username,
	})
}

// GetEditProfileAdmin handles GET /edit-profile/:id
func (s *Server) GetEditProfileAdmin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	user, err := s.accounts.GetUser(ctx, id)
	if err != nil {
		return models.Respond(c, err)
	}
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"form":  forms.NewEditProfileAdminForm(user),
		"roles": roles,
	})
}

// EditProfileAdmin handles POST /edit-profile/:id
func (s *Server) EditProfileAdmin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	target, err := s.accounts.GetUser(ctx, id)
	if err != nil {
		return models.Respond(c, err)
	}

	form := forms.NewEditProfileAdminForm(target)
	if err := bind(c, &form); err != nil {
		return nil
	}

	updated, err := s.accounts.AdminUpdateProfile(ctx, id, form)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message":  "The profile has been updated.",
		"user":     updated,
		"redirect": "/user/" + updated.Username,
	})
}
