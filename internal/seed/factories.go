// Package seed creates roles and demo data. Factories are for development
// and tests only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"quill/internal/models"
	"quill/internal/render"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "password123"

// FactoryOptions tunes generated data.
type FactoryOptions struct {
	// MaxDays bounds how far back timestamps are spread. Default 90.
	MaxDays int
	// DryRun builds entities without writing them.
	DryRun bool
	// Role is assigned to generated users when set.
	Role *models.Role
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts FactoryOptions
	rng  *rand.Rand
	hash string
	seq  int
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts FactoryOptions) (*Factory, error) {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	// One low-cost hash shared by every generated account.
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	//nolint:gosec // Weak random number generator is fine for seeding
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	gofakeit.Seed(rng.Int63())
	return &Factory{db: db, opts: opts, rng: rng, hash: string(hash), nextID: 1000}, nil
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.rng.Intn(f.opts.MaxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back)
}

// username turns a gofakeit username into one that passes the registration
// rules and is unique within this factory.
func (f *Factory) username() string {
	f.seq++
	var sb strings.Builder
	for _, r := range gofakeit.Username() {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '.' {
			sb.WriteRune(r)
		}
	}
	name := sb.String()
	if name == "" || !((name[0] >= 'a' && name[0] <= 'z') || (name[0] >= 'A' && name[0] <= 'Z')) {
		name = "user" + name
	}
	if len(name) > 50 {
		name = name[:50]
	}
	return fmt.Sprintf("%s%d", name, f.seq)
}

// BuildUser returns a confirmed user with a filled profile, not persisted.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	username := f.username()
	since := f.pastTime()
	user := &models.User{
		Username:     username,
		Email:        strings.ToLower(username) + "@example.com",
		PasswordHash: f.hash,
		Confirmed:    true,
		Name:         gofakeit.Name(),
		Location:     gofakeit.City(),
		AboutMe:      gofakeit.Sentence(10),
		MemberSince:  since,
		LastSeen:     since,
	}
	if f.opts.Role != nil {
		user.RoleID = &f.opts.Role.ID
	}
	for _, override := range overrides {
		override(user)
	}
	user.AvatarHash = models.AvatarHash(user.Email)
	return user
}

// CreateUser builds and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		return user, nil
	}
	if err := f.db.Omit("Role").Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns a Markdown post by author, not persisted.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	body := fmt.Sprintf("**%s**\n\n%s", gofakeit.Sentence(5), gofakeit.Paragraph(1, 3, 8, "\n\n"))
	post := &models.Post{
		Body:      body,
		AuthorID:  author.ID,
		Timestamp: f.pastTime(),
	}
	for _, override := range overrides {
		override(post)
	}
	if post.BodyHTML == "" {
		if html, err := render.Markdown(post.Body); err == nil {
			post.BodyHTML = html
		} else {
			post.BodyHTML = render.Plain(post.Body)
		}
	}
	return post
}

// CreatePost builds and persists a sample post for author.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, overrides...)
	if f.opts.DryRun {
		f.nextID++
		post.ID = f.nextID
		return post, nil
	}
	if err := f.db.Omit("Author").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		return nil
	}
	return f.db.Omit("Author").CreateInBatches(posts, 200).Error
}
