package champion

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var ErrInvalidKey = errors.New("invalid champion key")
var ErrUnknownChampion = errors.New("unknown champion")
var ErrAmbiguous = errors.New("ambiguous champion name")

// Key is the numeric champion identity used on the wire ("266").
type Key int

// NoKey marks an unfilled slot.
const NoKey Key = -1

// ID is the Data Dragon string identity used for imagery ("Aatrox").
type ID string

// ParseKey decodes a wire slot value. Both the "-1" sentinel and the empty
// string decode to NoKey.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-1" {
		return NoKey, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return NoKey, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key(n), nil
}

func (k Key) Valid() bool { return k > 0 }

// String encodes the key for the wire; NoKey encodes as "-1".
func (k Key) String() string {
	if !k.Valid() {
		return "-1"
	}
	return strconv.Itoa(int(k))
}

type Champion struct {
	ID   ID     `json:"id"`
	Key  Key    `json:"key"`
	Name string `json:"name"`
}

// Catalog is the immutable key <-> id mapping built once per session.
type Catalog struct {
	byKey  map[Key]Champion
	byID   map[ID]Champion
	sorted []Champion
}

func NewCatalog(champs []Champion) (*Catalog, error) {
	c := &Catalog{
		byKey: make(map[Key]Champion, len(champs)),
		byID:  make(map[ID]Champion, len(champs)),
	}
	for _, ch := range champs {
		if !ch.Key.Valid() || ch.ID == "" {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidKey, ch)
		}
		if prev, dup := c.byKey[ch.Key]; dup && prev.ID != ch.ID {
			return nil, fmt.Errorf("duplicate champion key %d (%s, %s)", ch.Key, prev.ID, ch.ID)
		}
		c.byKey[ch.Key] = ch
		c.byID[ch.ID] = ch
	}

	c.sorted = make([]Champion, 0, len(c.byKey))
	for _, ch := range c.byKey {
		c.sorted = append(c.sorted, ch)
	}
	slices.SortFunc(c.sorted, func(a, b Champion) int {
		return strings.Compare(a.Name, b.Name)
	})
	return c, nil
}

func (c *Catalog) Len() int { return len(c.sorted) }

func (c *Catalog) ByKey(k Key) (Champion, bool) {
	ch, ok := c.byKey[k]
	return ch, ok
}

func (c *Catalog) ByID(id ID) (Champion, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

func (c *Catalog) IDOf(k Key) (ID, error) {
	ch, ok := c.byKey[k]
	if !ok {
		return "", fmt.Errorf("%w: key %s", ErrUnknownChampion, k)
	}
	return ch.ID, nil
}

func (c *Catalog) KeyOf(id ID) (Key, error) {
	ch, ok := c.byID[id]
	if !ok {
		return NoKey, fmt.Errorf("%w: id %s", ErrUnknownChampion, id)
	}
	return ch.Key, nil
}

// Name falls back to the encoded key for champions the catalog doesn't know.
func (c *Catalog) Name(k Key) string {
	if c != nil {
		if ch, ok := c.byKey[k]; ok {
			return ch.Name
		}
	}
	return k.String()
}

// All returns a copy sorted by display name.
func (c *Catalog) All() []Champion {
	return slices.Clone(c.sorted)
}

// Search matches the term against display names (case folded) and keys.
func (c *Catalog) Search(term string) []Champion {
	term = strings.TrimSpace(term)
	if term == "" {
		return c.All()
	}
	// Casers are stateful; one per call keeps the catalog safe to share.
	fold := cases.Fold()
	needle := fold.String(term)

	var out []Champion
	for _, ch := range c.sorted {
		if strings.Contains(fold.String(ch.Name), needle) || strings.Contains(ch.Key.String(), term) {
			out = append(out, ch)
		}
	}
	return out
}

// Resolve turns user input into a key. Numeric input is taken as a key;
// anything else must match one champion by id, by exact name or by a unique
// name fragment. A nil catalog only resolves numeric input.
func (c *Catalog) Resolve(term string) (Key, error) {
	term = strings.TrimSpace(term)
	if k, err := ParseKey(term); err == nil && k.Valid() {
		return k, nil
	}
	if c == nil || term == "" {
		return NoKey, fmt.Errorf("%w: %q", ErrUnknownChampion, term)
	}
	if ch, ok := c.byID[ID(term)]; ok {
		return ch.Key, nil
	}

	matches := c.Search(term)
	fold := cases.Fold()
	needle := fold.String(term)
	for _, ch := range matches {
		if fold.String(ch.Name) == needle {
			return ch.Key, nil
		}
	}
	switch len(matches) {
	case 0:
		return NoKey, fmt.Errorf("%w: %q", ErrUnknownChampion, term)
	case 1:
		return matches[0].Key, nil
	default:
		return NoKey, fmt.Errorf("%w: %q matches %d champions", ErrAmbiguous, term, len(matches))
	}
}
