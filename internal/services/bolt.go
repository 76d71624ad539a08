package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a keyed record doesn't exist.
var ErrNotFound = errors.New("not found")

var (
	personalBucket     = []byte("personal")
	skillsBucket       = []byte("skills")
	experienceBucket   = []byte("experience")
	projectsBucket     = []byte("projects")
	achievementsBucket = []byte("achievements")
	postsBucket        = []byte("blog_posts")
	queriesBucket      = []byte("service_queries")

	allBuckets = [][]byte{
		personalBucket, skillsBucket, experienceBucket, projectsBucket,
		achievementsBucket, postsBucket, queriesBucket,
	}

	profileKey = []byte("profile")
)

// BoltDB stores the portfolio content in a BoltDB file. Every collection lives in its own bucket as
// JSON values; list collections are keyed by a zero-padded sequence so iteration keeps insertion
// order, and blog posts are keyed by slug.
type BoltDB struct {
	db *bolt.DB

	now func() time.Time
}

// NewBoltDB opens (or creates with 0600 permissions) the database at path and makes sure every bucket
// exists.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return BoltDB{}, err
	}

	return BoltDB{db: db, now: time.Now}, nil
}

// Close releases the database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}

func sequenceKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%010d", seq))
}

func list[T any](db *bolt.DB, bucket []byte) ([]T, error) {
	var items []T
	err := db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket(bucket)
		if bk == nil {
			return nil
		}
		return bk.ForEach(func(_, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to unmarshal %s: %w", bucket, err)
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// replace drops bucket and refills it with items, assigning each a fresh sequence id.
func replace[T any](tx *bolt.Tx, bucket []byte, items []T, setID func(*T, int)) error {
	if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return fmt.Errorf("failed to delete bucket %s: %w", bucket, err)
	}
	bk, err := tx.CreateBucket(bucket)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	for i := range items {
		seq, err := bk.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		setID(&items[i], int(seq))

		v, err := json.Marshal(items[i])
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", bucket, err)
		}
		if err := bk.Put(sequenceKey(seq), v); err != nil {
			return err
		}
	}
	return nil
}

// PersonalData returns the stored profile, or nil when none has been stored.
func (b BoltDB) PersonalData(context.Context) (*models.PersonalData, error) {
	var pd *models.PersonalData
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(personalBucket).Get(profileKey)
		if v == nil {
			return nil
		}
		pd = &models.PersonalData{}
		if err := json.Unmarshal(v, pd); err != nil {
			return fmt.Errorf("failed to unmarshal personal data: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pd, nil
}

// Skills returns every skill category in insertion order.
func (b BoltDB) Skills(context.Context) ([]models.SkillCategory, error) {
	return list[models.SkillCategory](b.db, skillsBucket)
}

// Experience returns the work history in insertion order.
func (b BoltDB) Experience(context.Context) ([]models.Experience, error) {
	return list[models.Experience](b.db, experienceBucket)
}

// Projects returns every project in insertion order.
func (b BoltDB) Projects(context.Context) ([]models.Project, error) {
	return list[models.Project](b.db, projectsBucket)
}

// Achievements returns every achievement in insertion order.
func (b BoltDB) Achievements(context.Context) ([]models.Achievement, error) {
	return list[models.Achievement](b.db, achievementsBucket)
}

// Portfolio collects every profile record in one read.
func (b BoltDB) Portfolio(ctx context.Context) (models.Portfolio, error) {
	var (
		p   models.Portfolio
		err error
	)
	if p.Personal, err = b.PersonalData(ctx); err != nil {
		return p, err
	}
	if p.Skills, err = b.Skills(ctx); err != nil {
		return p, err
	}
	if p.Experience, err = b.Experience(ctx); err != nil {
		return p, err
	}
	if p.Projects, err = b.Projects(ctx); err != nil {
		return p, err
	}
	if p.Achievements, err = b.Achievements(ctx); err != nil {
		return p, err
	}
	return p, nil
}

// BlogPosts returns published posts, newest first.
func (b BoltDB) BlogPosts(context.Context) ([]models.BlogPost, error) {
	posts, err := list[models.BlogPost](b.db, postsBucket)
	if err != nil {
		return nil, err
	}
	posts = slices.DeleteFunc(posts, func(p models.BlogPost) bool {
		return p.Status != models.PostPublished
	})
	slices.SortStableFunc(posts, func(a, b models.BlogPost) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	return posts, nil
}

// ViewBlogPost returns the published post with slug after counting one more view, or ErrNotFound.
func (b BoltDB) ViewBlogPost(_ context.Context, slug string) (models.BlogPost, error) {
	var post models.BlogPost
	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := getPost(tx, slug, &post); err != nil {
			return err
		}
		post.Views++
		v, err := json.Marshal(post)
		if err != nil {
			return fmt.Errorf("failed to marshal blog post: %w", err)
		}
		return tx.Bucket(postsBucket).Put([]byte(slug), v)
	})
	return post, err
}

func getPost(tx *bolt.Tx, slug string, post *models.BlogPost) error {
	v := tx.Bucket(postsBucket).Get([]byte(slug))
	if v == nil {
		return fmt.Errorf("blog post %q: %w", slug, ErrNotFound)
	}
	if err := json.Unmarshal(v, post); err != nil {
		return fmt.Errorf("failed to unmarshal blog post: %w", err)
	}
	if post.Status != models.PostPublished {
		return fmt.Errorf("blog post %q: %w", slug, ErrNotFound)
	}
	return nil
}

// BlogCategories returns the distinct categories of published posts with their post counts, sorted
// by name.
func (b BoltDB) BlogCategories(ctx context.Context) ([]models.BlogCategory, error) {
	posts, err := b.BlogPosts(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, p := range posts {
		counts[p.Category]++
	}
	cats := make([]models.BlogCategory, 0, len(counts))
	for name, n := range counts {
		cats = append(cats, models.BlogCategory{Name: name, Slug: models.Slugify(name), Count: n})
	}
	slices.SortFunc(cats, func(a, b models.BlogCategory) int {
		return strings.Compare(a.Name, b.Name)
	})
	return cats, nil
}

// AddServiceQuery stores a contact-form submission and returns its id.
func (b BoltDB) AddServiceQuery(_ context.Context, q models.ServiceQuery) (string, error) {
	var newID string
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(queriesBucket)

		seq, err := bk.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		newID = fmt.Sprintf("%d-%s", seq, uuid.NewString())
		q.ID = newID
		q.CreatedAt = b.now()

		v, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("failed to marshal service query: %w", err)
		}
		return bk.Put(sequenceKey(seq), v)
	})
	return newID, err
}

// ServiceQueries returns every stored submission in arrival order.
func (b BoltDB) ServiceQueries(context.Context) ([]models.ServiceQuery, error) {
	return list[models.ServiceQuery](b.db, queriesBucket)
}

// Seed replaces every content collection with the records in s, in a single transaction. Submitted
// service queries are kept.
func (b BoltDB) Seed(_ context.Context, s Seed) error {
	now := b.now()
	return b.db.Update(func(tx *bolt.Tx) error {
		pb := tx.Bucket(personalBucket)
		if s.Personal == nil {
			if err := pb.Delete(profileKey); err != nil {
				return err
			}
		} else {
			v, err := json.Marshal(s.Personal)
			if err != nil {
				return fmt.Errorf("failed to marshal personal data: %w", err)
			}
			if err := pb.Put(profileKey, v); err != nil {
				return err
			}
		}

		if err := replace(tx, skillsBucket, s.Skills, func(v *models.SkillCategory, id int) { v.ID = id }); err != nil {
			return err
		}
		if err := replace(tx, experienceBucket, s.Experience, func(v *models.Experience, id int) { v.ID = id }); err != nil {
			return err
		}
		if err := replace(tx, projectsBucket, s.Projects, func(v *models.Project, id int) { v.ID = id }); err != nil {
			return err
		}
		if err := replace(tx, achievementsBucket, s.Achievements, func(v *models.Achievement, id int) { v.ID = id }); err != nil {
			return err
		}
		return replacePosts(tx, s.Posts, now)
	})
}

func replacePosts(tx *bolt.Tx, posts []models.BlogPost, now time.Time) error {
	if err := tx.DeleteBucket(postsBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return fmt.Errorf("failed to delete bucket %s: %w", postsBucket, err)
	}
	bk, err := tx.CreateBucket(postsBucket)
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", postsBucket, err)
	}

	for _, p := range posts {
		if p.Slug == "" {
			p.Slug = models.Slugify(p.Title)
		}
		if p.Slug == "" {
			return fmt.Errorf("blog post %q has no usable slug", p.Title)
		}
		if bk.Get([]byte(p.Slug)) != nil {
			return fmt.Errorf("duplicate blog post slug %q", p.Slug)
		}
		if p.Status == "" {
			p.Status = models.PostDraft
		}
		seq, err := bk.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		p.ID = int(seq)
		p.CreatedAt = now
		p.UpdatedAt = now
		if p.Status == models.PostPublished && p.PublishedAt.IsZero() {
			p.PublishedAt = now
		}

		v, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal blog post: %w", err)
		}
		if err := bk.Put([]byte(p.Slug), v); err != nil {
			return err
		}
	}
	return nil
}
