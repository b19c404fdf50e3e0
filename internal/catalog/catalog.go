// Package catalog loads the read-only content of the technique library:
// categories, techniques, quiz exercises and badge definitions.
package catalog

import (
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// CategoryAll is the pseudo category that disables category filtering.
const CategoryAll = "all"

// ErrInvalid is returned when catalog content breaks a load-time invariant.
var ErrInvalid = errors.New("invalid catalog")

//go:embed content/*.yaml
var embeddedContent embed.FS

// Catalog holds the loaded content in declaration order. It is immutable
// after loading and safe for concurrent use.
type Catalog struct {
	categories []Category
	techniques []Technique
	exercises  []Exercise
	badges     []BadgeDefinition

	categoryIdx  map[string]int
	techniqueIdx map[string]int
	exerciseIdx  map[string]int
	badgeIdx     map[string]int

	digest string
}

// LoadEmbedded loads the catalog content compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	sub, err := fs.Sub(embeddedContent, "content")
	if err != nil {
		return nil, fmt.Errorf("open embedded content: %w", err)
	}
	return Load(sub)
}

// LoadDir loads every YAML file below dir.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog path %s is not a directory", dir)
	}
	return Load(os.DirFS(dir))
}

// Load reads every *.yaml / *.yml file in fsys in lexical order and merges
// their lists. Catalog order is file order, then list order within a file.
func Load(fsys fs.FS) (*Catalog, error) {
	hash, err := blake2b.New256(nil)
	if err != nil {
		return nil, fmt.Errorf("init digest: %w", err)
	}

	var merged document
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		var doc document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}

		hash.Write([]byte(p))
		hash.Write(data)

		merged.Categories = append(merged.Categories, doc.Categories...)
		merged.Techniques = append(merged.Techniques, doc.Techniques...)
		merged.Exercises = append(merged.Exercises, doc.Exercises...)
		merged.Badges = append(merged.Badges, doc.Badges...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	c, err := build(merged)
	if err != nil {
		return nil, err
	}
	c.digest = hex.EncodeToString(hash.Sum(nil))

	slog.Info("catalog loaded",
		"categories", len(c.categories),
		"techniques", len(c.techniques),
		"exercises", len(c.exercises),
		"badges", len(c.badges),
	)
	return c, nil
}

// New builds a catalog from in-memory content, applying the same validation
// as Load. It is mainly useful in tests.
func New(categories []Category, techniques []Technique, exercises []Exercise, badges []BadgeDefinition) (*Catalog, error) {
	c, err := build(document{
		Categories: categories,
		Techniques: techniques,
		Exercises:  exercises,
		Badges:     badges,
	})
	if err != nil {
		return nil, err
	}
	hash, _ := blake2b.New256(nil)
	for _, e := range c.exercises {
		hash.Write([]byte(e.ID))
	}
	for _, b := range c.badges {
		hash.Write([]byte(b.ID))
	}
	c.digest = hex.EncodeToString(hash.Sum(nil))
	return c, nil
}

func build(doc document) (*Catalog, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}

	c := &Catalog{
		categories:   doc.Categories,
		techniques:   doc.Techniques,
		exercises:    doc.Exercises,
		badges:       doc.Badges,
		categoryIdx:  make(map[string]int, len(doc.Categories)),
		techniqueIdx: make(map[string]int, len(doc.Techniques)),
		exerciseIdx:  make(map[string]int, len(doc.Exercises)),
		badgeIdx:     make(map[string]int, len(doc.Badges)),
	}
	for i, v := range c.categories {
		c.categoryIdx[v.ID] = i
	}
	for i, v := range c.techniques {
		c.techniqueIdx[v.ID] = i
	}
	for i, v := range c.exercises {
		c.exerciseIdx[v.ID] = i
	}
	for i, v := range c.badges {
		c.badgeIdx[v.ID] = i
	}
	return c, nil
}

// Digest returns a hex BLAKE2b-256 fingerprint of the loaded content.
func (c *Catalog) Digest() string {
	return c.digest
}

// Categories returns all categories in catalog order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// Techniques returns all techniques in catalog order.
func (c *Catalog) Techniques() []Technique {
	return append([]Technique(nil), c.techniques...)
}

// Exercises returns all exercises in catalog order.
func (c *Catalog) Exercises() []Exercise {
	return append([]Exercise(nil), c.exercises...)
}

// Badges returns all badge definitions in catalog order.
func (c *Catalog) Badges() []BadgeDefinition {
	return append([]BadgeDefinition(nil), c.badges...)
}

// Category returns a category by ID.
func (c *Catalog) Category(id string) (Category, bool) {
	i, ok := c.categoryIdx[id]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// Technique returns a technique by ID.
func (c *Catalog) Technique(id string) (Technique, bool) {
	i, ok := c.techniqueIdx[id]
	if !ok {
		return Technique{}, false
	}
	return c.techniques[i], true
}

// Exercise returns an exercise by ID.
func (c *Catalog) Exercise(id string) (Exercise, bool) {
	i, ok := c.exerciseIdx[id]
	if !ok {
		return Exercise{}, false
	}
	return c.exercises[i], true
}

// Badge returns a badge definition by ID.
func (c *Catalog) Badge(id string) (BadgeDefinition, bool) {
	i, ok := c.badgeIdx[id]
	if !ok {
		return BadgeDefinition{}, false
	}
	return c.badges[i], true
}

// TechniquesInCategory returns the techniques of one category.
func (c *Catalog) TechniquesInCategory(categoryID string) []Technique {
	var out []Technique
	for _, t := range c.techniques {
		if t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	return out
}

// ExercisesInCategory returns the exercises whose category matches.
func (c *Catalog) ExercisesInCategory(categoryID string) []Exercise {
	var out []Exercise
	for _, e := range c.exercises {
		if e.CategoryID == categoryID {
			out = append(out, e)
		}
	}
	return out
}

// ExercisesForTechnique returns the exercises bound to a technique.
func (c *Catalog) ExercisesForTechnique(techniqueID string) []Exercise {
	var out []Exercise
	for _, e := range c.exercises {
		if e.TechniqueID == techniqueID {
			out = append(out, e)
		}
	}
	return out
}

// CategoryIDs returns the distinct category ids referenced by exercises, in
// first-seen order.
func (c *Catalog) CategoryIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range c.exercises {
		if !seen[e.CategoryID] {
			seen[e.CategoryID] = true
			out = append(out, e.CategoryID)
		}
	}
	return out
}
