package plan

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/ptr"

	_ "embed"
)

//go:embed catalog.toml
var catalogDefinition []byte

// Definition is a plan archetype with its ordered workout templates.
type Definition struct {
	Archetype   Archetype
	Name        string
	Description string
	// Templates are ordered by week and then by day.
	Templates []WorkoutTemplate
}

// Weeks returns the number of weeks the definition spans.
func (d Definition) Weeks() int {
	weeks := 0
	for _, t := range d.Templates {
		weeks = max(weeks, t.Ref.Week)
	}
	return weeks
}

// SessionsPerWeek returns the highest number of templates in any week.
func (d Definition) SessionsPerWeek() int {
	perWeek := map[int]int{}
	most := 0
	for _, t := range d.Templates {
		perWeek[t.Ref.Week]++
		most = max(most, perWeek[t.Ref.Week])
	}
	return most
}

// Catalog holds the plan definitions. It is immutable once loaded and safe for concurrent use.
type Catalog struct {
	definitions []Definition
	templates   map[TemplateRef]WorkoutTemplate
	notes       map[Kind]string
}

// catalogFile mirrors the TOML layout of catalog.toml.
type catalogFile struct {
	Notes      map[string]string `toml:"notes"`
	Archetypes []struct {
		ID          string `toml:"id"`
		Name        string `toml:"name"`
		Description string `toml:"description"`
		Weeks       []struct {
			Week     int           `toml:"week"`
			Sessions []sessionFile `toml:"sessions"`
		} `toml:"week"`
	} `toml:"archetype"`
}

type sessionFile struct {
	Title      string  `toml:"title"`
	Duration   string  `toml:"duration"`
	Zone       int     `toml:"zone"`
	Kind       string  `toml:"kind"`
	DistanceKm float64 `toml:"distance_km"`
	Pace       string  `toml:"pace"`
	PaceFactor float64 `toml:"pace_factor"`
}

//nolint:gochecknoglobals // the embedded catalog is parsed once.
var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(catalogDefinition))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
})

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

// LoadCatalog decodes and validates a TOML catalog. Validation failures are tagged with [ErrInvalidInput].
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, errors.Wrap(ErrInvalidInput, "decode catalog", slog.String("cause", err.Error()))
	}

	c := &Catalog{
		definitions: make([]Definition, 0, len(file.Archetypes)),
		templates:   map[TemplateRef]WorkoutTemplate{},
		notes:       map[Kind]string{},
	}
	for kind, note := range file.Notes {
		if !Kind(kind).Valid() {
			return nil, errors.Wrap(ErrInvalidInput, "unknown kind in notes", slog.String("kind", kind))
		}
		c.notes[Kind(kind)] = note
	}

	for _, a := range file.Archetypes {
		archetype := Archetype(a.ID)
		if archetype == "" || slices.ContainsFunc(c.definitions, func(d Definition) bool {
			return d.Archetype == archetype
		}) {
			return nil, errors.Wrap(ErrInvalidInput, "missing or duplicate archetype id", slog.String("id", a.ID))
		}
		def := Definition{Archetype: archetype, Name: a.Name, Description: a.Description, Templates: nil}
		for _, w := range a.Weeks {
			for i, s := range w.Sessions {
				ref := TemplateRef{Archetype: archetype, Week: w.Week, Day: i + 1}
				t, err := s.template(ref)
				if err != nil {
					return nil, errors.Wrap(err, "invalid session", slog.String("ref", ref.String()))
				}
				if _, exists := c.templates[ref]; exists {
					return nil, errors.Wrap(ErrInvalidInput, "duplicate week", slog.String("ref", ref.String()))
				}
				c.templates[ref] = t
				def.Templates = append(def.Templates, t)
			}
		}
		slices.SortFunc(def.Templates, func(a, b WorkoutTemplate) int {
			return compareRefs(a.Ref, b.Ref)
		})
		c.definitions = append(c.definitions, def)
	}
	return c, nil
}

func (s sessionFile) template(ref TemplateRef) (WorkoutTemplate, error) {
	t := WorkoutTemplate{
		Ref:             ref,
		Title:           s.Title,
		DurationSeconds: nil,
		Zone:            nil,
		Kind:            Kind(s.Kind),
		DistanceKm:      s.DistanceKm,
		PaceRef:         PaceRef(s.Pace),
		PaceFactor:      s.PaceFactor,
	}
	switch {
	case ref.Week < 1:
		return t, errors.Wrap(ErrInvalidInput, "week must be positive")
	case s.Title == "":
		return t, errors.Wrap(ErrInvalidInput, "missing title")
	case !t.Kind.Valid():
		return t, errors.Wrap(ErrInvalidInput, "unknown kind", slog.String("kind", s.Kind))
	case t.PaceRef != PaceRefNone && t.PaceRef != PaceRef5K && t.PaceRef != PaceRef10K:
		return t, errors.Wrap(ErrInvalidInput, "unknown pace reference", slog.String("pace", s.Pace))
	case t.PaceRef != PaceRefNone && t.PaceFactor <= 0:
		return t, errors.Wrap(ErrInvalidInput, "pace reference requires a positive pace_factor")
	case s.DistanceKm < 0:
		return t, errors.Wrap(ErrInvalidInput, "negative distance")
	}
	if s.Zone != 0 {
		zone := Zone(s.Zone)
		if !zone.Valid() {
			return t, errors.Wrap(ErrInvalidInput, "zone out of range", slog.Int("zone", s.Zone))
		}
		t.Zone = &zone
	}
	if s.Duration != "" {
		seconds := ParseHMS(s.Duration)
		if seconds == 0 {
			return t, errors.Wrap(ErrInvalidInput, "malformed duration", slog.String("duration", s.Duration))
		}
		t.DurationSeconds = ptr.Ref(seconds)
	}
	return t, nil
}

func compareRefs(a, b TemplateRef) int {
	if a.Week != b.Week {
		return a.Week - b.Week
	}
	return a.Day - b.Day
}

// Definition returns the definition of archetype.
func (c *Catalog) Definition(archetype Archetype) (Definition, bool) {
	for _, d := range c.definitions {
		if d.Archetype == archetype {
			return d, true
		}
	}
	return Definition{}, false
}

// Definitions returns all definitions in catalog order.
func (c *Catalog) Definitions() []Definition {
	return slices.Clone(c.definitions)
}

// Template looks up the template a run was generated from.
func (c *Catalog) Template(ref TemplateRef) (WorkoutTemplate, bool) {
	t, ok := c.templates[ref]
	return t, ok
}

// Notes returns the Markdown coaching notes for kind.
func (c *Catalog) Notes(kind Kind) string {
	return c.notes[kind]
}
