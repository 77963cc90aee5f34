package server

import (
	"time"

	"quill/internal/models"
	"quill/internal/service"
)

const authorAvatarSize = 40

// ProfileDTO is the public view of an account. Email, role and
// confirmation state are only returned to the account itself and to
// administrators.
type ProfileDTO struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	AboutMe     string    `json:"about_me"`
	MemberSince time.Time `json:"member_since"`
	LastSeen    time.Time `json:"last_seen"`
	Avatar      string    `json:"avatar"`
}

// PostDTO is a post with its author's public profile.
type PostDTO struct {
	ID        uint        `json:"id"`
	Body      string      `json:"body"`
	BodyHTML  string      `json:"body_html"`
	Timestamp time.Time   `json:"timestamp"`
	AuthorID  uint        `json:"author_id"`
	Author    *ProfileDTO `json:"author,omitempty"`
}

// PostPageDTO is one page of posts, newest first.
type PostPageDTO struct {
	Posts  []PostDTO `json:"posts"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

func toProfileDTO(u *models.User, secure bool, avatarSize int) ProfileDTO {
	return ProfileDTO{
		ID:          u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Location:    u.Location,
		AboutMe:     u.AboutMe,
		MemberSince: u.MemberSince,
		LastSeen:    u.LastSeen,
		Avatar:      u.Gravatar(secure, avatarSize),
	}
}

func toPostDTO(p *models.Post, secure bool) PostDTO {
	dto := PostDTO{
		ID:        p.ID,
		Body:      p.Body,
		BodyHTML:  p.BodyHTML,
		Timestamp: p.Timestamp,
		AuthorID:  p.AuthorID,
	}
	if p.Author != nil {
		author := toProfileDTO(p.Author, secure, authorAvatarSize)
		dto.Author = &author
	}
	return dto
}

func toPostPageDTO(page *service.PostPage, secure bool) PostPageDTO {
	posts := make([]PostDTO, 0, len(page.Posts))
	for _, p := range page.Posts {
		posts = append(posts, toPostDTO(p, secure))
	}
	return PostPageDTO{
		Posts:  posts,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}
