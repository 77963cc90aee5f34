package service

import (
	"context"

	"quill/internal/featureflags"
	"quill/internal/forms"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/render"
	"quill/internal/repository"
)

type PostService struct {
	postRepo repository.PostRepository
	flags    *featureflags.Manager
}

// PostPage is one page of posts, newest first.
type PostPage struct {
	Posts  []*models.Post `json:"posts"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func NewPostService(postRepo repository.PostRepository, flags *featureflags.Manager) *PostService {
	return &PostService{postRepo: postRepo, flags: flags}
}

// CreatePost publishes a post by author, who needs PermWriteArticles.
func (s *PostService) CreatePost(ctx context.Context, author models.Identity, form forms.PostForm) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	user, ok := author.(*models.User)
	if !ok || !author.Can(models.PermWriteArticles) {
		return nil, models.NewForbiddenError("You do not have permission to write articles")
	}
	if err := form.Validate(ctx).Err(); err != nil {
		return nil, err
	}

	body := form.Body
	html := render.Plain(body)
	if s.flags.Enabled(featureflags.Markdown, user.ID) {
		html, err = render.Markdown(body)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	post = &models.Post{Body: body, BodyHTML: html, AuthorID: user.ID}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = user
	middleware.PostsCreated.Inc()
	return post, nil
}

// ListPosts returns every post, newest first.
func (s *PostService) ListPosts(ctx context.Context, limit, offset int) (*PostPage, error) {
	posts, err := s.postRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.postRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Total: total, Limit: limit, Offset: offset}, nil
}

// ListUserPosts returns authorID's posts, newest first.
func (s *PostService) ListUserPosts(ctx context.Context, authorID uint, limit, offset int) (*PostPage, error) {
	posts, err := s.postRepo.ListByAuthor(ctx, authorID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.postRepo.CountByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Total: total, Limit: limit, Offset: offset}, nil
}
