package server

import (
	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// indexResponse is the home page: every post, newest first.
type indexResponse struct {
	PostPageDTO
	CanWrite bool `json:"can_write"`
}

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	page := parsePagination(c, s.pageSize())

	posts, err := s.posts.ListPosts(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(indexResponse{
		PostPageDTO: toPostPageDTO(posts, c.Protocol() == "https"),
		CanWrite: middleware.CurrentIdentity(c).Can(models.PermWriteArticles),
	})
}

// CreatePost handles POST /
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var form forms.PostForm
	if err := bind(c, &form); err != nil {
		return nil
	}

	post, err := s.posts.CreatePost(c.UserContext(), middleware.CurrentIdentity(c), form)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post":     toPostDTO(post, c.Protocol() == "https"),
		"redirect": "/",
	})
}
