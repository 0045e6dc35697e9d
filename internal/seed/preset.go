package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"socialgraph/internal/models"
	"socialgraph/internal/service"

	"gopkg.in/yaml.v3"
)

// Preset is a hand-written graph loaded from YAML. Comment authors and
// likers refer to users by email.
//
//	users:
//	  - name: Ada
//	    email: ada@example.com
//	    password: secret
//	    posts:
//	      - content: Hello
//	        likes: [bob@example.com]
//	        comments:
//	          - author: bob@example.com
//	            text: Welcome
type Preset struct {
	Users []PresetUser `yaml:"users"`
}

type PresetUser struct {
	Name     string       `yaml:"name"`
	Email    string       `yaml:"email"`
	Password string       `yaml:"password"`
	Posts    []PresetPost `yaml:"posts"`
}

type PresetPost struct {
	Content  string          `yaml:"content"`
	Likes    []string        `yaml:"likes"`
	Comments []PresetComment `yaml:"comments"`
}

type PresetComment struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

// LoadPreset decodes a preset from r.
func LoadPreset(r io.Reader) (*Preset, error) {
	var p Preset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode preset: %w", err)
	}
	return &p, nil
}

// LoadPresetFile decodes the preset stored at path.
func LoadPresetFile(path string) (*Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadPreset(f)
}

// Validate checks that every email reference names a user of the preset.
func (p *Preset) Validate() error {
	known := make(map[string]bool, len(p.Users))
	for _, u := range p.Users {
		if known[u.Email] {
			return fmt.Errorf("preset: duplicate user email %q", u.Email)
		}
		known[u.Email] = true
	}
	for _, u := range p.Users {
		for _, post := range u.Posts {
			for _, email := range post.Likes {
				if !known[email] {
					return fmt.Errorf("preset: like by unknown user %q", email)
				}
			}
			for _, c := range post.Comments {
				if !known[c.Author] {
					return fmt.Errorf("preset: comment by unknown user %q", c.Author)
				}
			}
		}
	}
	return nil
}

// Apply creates the preset graph: users first, then posts, then comments
// and likes.
func (p *Preset) Apply(ctx context.Context, g *service.Graph) (*Summary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	sum := &Summary{}
	byEmail := make(map[string]*models.User, len(p.Users))
	for _, pu := range p.Users {
		u, err := g.Users.CreateUser(ctx, service.CreateUserInput{
			Name:     pu.Name,
			Email:    pu.Email,
			Password: pu.Password,
		})
		if err != nil {
			return sum, fmt.Errorf("preset user %s: %w", pu.Email, err)
		}
		byEmail[pu.Email] = u
		sum.Users++
	}

	for _, pu := range p.Users {
		author := byEmail[pu.Email]
		for _, pp := range pu.Posts {
			post, err := g.Posts.CreatePost(ctx, service.CreatePostInput{Content: pp.Content, Author: author.ID})
			if err != nil {
				return sum, fmt.Errorf("preset post by %s: %w", pu.Email, err)
			}
			sum.Posts++

			for _, pc := range pp.Comments {
				if _, err := g.Comments.CreateComment(ctx, service.CreateCommentInput{
					Text:   pc.Text,
					Author: byEmail[pc.Author].ID,
					Post:   post.ID,
				}); err != nil {
					return sum, fmt.Errorf("preset comment by %s: %w", pc.Author, err)
				}
				sum.Comments++
			}
			for _, email := range pp.Likes {
				if _, err := g.Posts.AddLikeToPost(ctx, post.ID, byEmail[email].ID); err != nil {
					return sum, fmt.Errorf("preset like by %s: %w", email, err)
				}
				sum.Likes++
			}
		}
	}
	return sum, nil
}
