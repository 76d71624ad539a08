package models

import (
	"errors"
	"strings"
	"time"
)

// PersonalData is the single profile record shown in the hero and about sections.
type PersonalData struct {
	Name    string  `json:"name" yaml:"name"`
	Role    string  `json:"role" yaml:"role"`
	Tagline string  `json:"tagline" yaml:"tagline"`
	Mission string  `json:"mission" yaml:"mission"`
	About   About   `json:"about" yaml:"about"`
	Contact Contact `json:"contact" yaml:"contact"`
}

// About groups the about-section copy.
type About struct {
	Title       string   `json:"title" yaml:"title"`
	Description []string `json:"description" yaml:"description"`
	Values      []string `json:"values" yaml:"values"`
}

// Contact holds the public contact links. ResumeURL is optional.
type Contact struct {
	Email     string  `json:"email" yaml:"email"`
	LinkedIn  string  `json:"linkedin" yaml:"linkedin"`
	GitHub    string  `json:"github" yaml:"github"`
	ResumeURL *string `json:"resumeUrl" yaml:"resumeUrl"`
}

// SkillCategory is a named group of skills.
type SkillCategory struct {
	ID       int      `json:"id" yaml:"-"`
	Category string   `json:"category" yaml:"category"`
	Items    []string `json:"items" yaml:"items"`
}

// Experience is one position in the work history.
type Experience struct {
	ID           int      `json:"id" yaml:"-"`
	Company      string   `json:"company" yaml:"company"`
	Role         string   `json:"role" yaml:"role"`
	Period       string   `json:"period" yaml:"period"`
	Color        string   `json:"color" yaml:"color"`
	Description  string   `json:"description" yaml:"description"`
	Achievements []string `json:"achievements" yaml:"achievements"`
}

// Project is a showcased project card.
type Project struct {
	ID          int      `json:"id" yaml:"-"`
	Title       string   `json:"title" yaml:"title"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	Tech        []string `json:"tech" yaml:"tech"`
	Link        string   `json:"link" yaml:"link"`
}

// Achievement is a headline metric.
type Achievement struct {
	ID          int    `json:"id" yaml:"-"`
	Metric      string `json:"metric" yaml:"metric"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
}

// PostStatus is the publication state of a blog post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

// BlogPost is a blog article. Content is markdown and is only included in detail responses.
type BlogPost struct {
	ID               int        `json:"id" yaml:"-"`
	Title            string     `json:"title" yaml:"title"`
	Slug             string     `json:"slug" yaml:"slug"`
	Excerpt          string     `json:"excerpt" yaml:"excerpt"`
	Content          string     `json:"content,omitempty" yaml:"content"`
	FeaturedImageURL *string    `json:"featured_image_url" yaml:"featuredImageUrl"`
	Author           string     `json:"author" yaml:"author"`
	Category         string     `json:"category" yaml:"category"`
	Tags             []string   `json:"tags" yaml:"tags"`
	ReadTime         int        `json:"read_time" yaml:"readTime"`
	Views            int        `json:"views" yaml:"-"`
	Status           PostStatus `json:"status" yaml:"status"`
	CreatedAt        time.Time  `json:"created_at" yaml:"-"`
	PublishedAt      time.Time  `json:"published_at" yaml:"publishedAt"`
	UpdatedAt        time.Time  `json:"updated_at,omitempty" yaml:"-"`
	MetaDescription  string     `json:"meta_description,omitempty" yaml:"metaDescription"`
	MetaKeywords     string     `json:"meta_keywords,omitempty" yaml:"metaKeywords"`
}

// Summary returns the post without its body, as served by the listing endpoint.
func (p BlogPost) Summary() BlogPost {
	p.Content = ""
	return p
}

// Matches reports whether the post belongs to category (empty or "All" matches everything) and
// contains query in its title or excerpt, case-insensitively.
func (p BlogPost) Matches(category, query string) bool {
	if category != "" && !strings.EqualFold(category, "All") && !strings.EqualFold(p.Category, category) {
		return false
	}
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Excerpt), q)
}

// BlogCategory is a distinct post category with the number of published posts in it.
type BlogCategory struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// ServiceQuery is a contact-form submission.
type ServiceQuery struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks that every field of the submission is filled and the email looks like one.
func (q ServiceQuery) Validate() error {
	switch {
	case strings.TrimSpace(q.Name) == "":
		return errors.New("name is required")
	case strings.TrimSpace(q.Email) == "":
		return errors.New("email is required")
	case !strings.Contains(q.Email, "@"):
		return errors.New("email is invalid")
	case strings.TrimSpace(q.Subject) == "":
		return errors.New("subject is required")
	case strings.TrimSpace(q.Message) == "":
		return errors.New("message is required")
	}
	return nil
}

// Portfolio aggregates every record the site and the assistant draw from. Personal is nil when no
// profile has been stored yet.
type Portfolio struct {
	Personal     *PersonalData
	Skills       []SkillCategory
	Experience   []Experience
	Projects     []Project
	Achievements []Achievement
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
		default:
			dash = true
		}
	}
	return sb.String()
}
