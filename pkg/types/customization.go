package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"slices"
	"strconv"

	"github.com/mesh-intelligence/tokenshelf/internal/imagepath"
)

// Customization is one overridable item: a folder, a linked player token, a
// linked monster token, or a user-created token. ID, type and parent are
// fixed at construction; options change only through the methods below.
// The owning store keeps the only references to customizations; parents are
// referenced by id, never by pointer.
type Customization struct {
	id       string
	itemType ItemType
	parentID string
	options  Options
}

// customizationJSON is the persisted form of a Customization.
type customizationJSON struct {
	ID           any             `json:"id"`
	TokenType    ItemType        `json:"tokenType"`
	ParentID     any             `json:"parentId"`
	TokenOptions json.RawMessage `json:"tokenOptions,omitempty"`
}

// NewCustomization validates its arguments and builds a customization.
// options is deep copied; nil yields an empty map. Returns an error wrapping
// ErrInvalidID, ErrInvalidType or ErrInvalidParentID naming the bad value.
func NewCustomization(id string, itemType ItemType, parentID string, options Options) (*Customization, error) {
	return newCustomization(id, itemType, parentID, options)
}

// NewFolder builds a folder customization inside parentID.
func NewFolder(id, parentID string, options Options) (*Customization, error) {
	return newCustomization(id, ItemTypeFolder, parentID, options)
}

// NewMyToken builds a user-created token customization inside parentID.
func NewMyToken(id, parentID string, options Options) (*Customization, error) {
	return newCustomization(id, ItemTypeMyToken, parentID, options)
}

// NewPC builds the customization for a player character. PCs always live
// in the Players root folder.
func NewPC(playerID string, options Options) (*Customization, error) {
	return newCustomization(playerID, ItemTypePC, RootFolderPlayers.ID, options)
}

// NewMonster builds the customization for a monster. Monster ids arrive as
// numbers from the monster source; integers, integral floats, json.Number
// and strings are accepted and stored in decimal string form.
func NewMonster(monsterID any, options Options) (*Customization, error) {
	return newCustomization(monsterID, ItemTypeMonster, RootFolderMonsters.ID, options)
}

func newCustomization(rawID any, itemType ItemType, rawParentID any, options Options) (*Customization, error) {
	var id string
	var ok bool
	if itemType == ItemTypeMonster {
		id, ok = coerceMonsterID(rawID)
	} else {
		id, ok = rawID.(string)
	}
	if !ok || id == "" {
		return nil, fmt.Errorf("%w %v", ErrInvalidID, rawID)
	}
	if !IsValidCustomizationType(itemType) {
		return nil, fmt.Errorf("%w %q", ErrInvalidType, itemType)
	}
	parentID, ok := rawParentID.(string)
	if !ok || parentID == "" {
		return nil, fmt.Errorf("%w %v", ErrInvalidParentID, rawParentID)
	}
	return &Customization{
		id:       id,
		itemType: itemType,
		parentID: parentID,
		options:  options.Clone(),
	}, nil
}

// coerceMonsterID renders numeric ids in decimal form.
func coerceMonsterID(v any) (string, bool) {
	switch tv := v.(type) {
	case string:
		return tv, true
	case int:
		return strconv.Itoa(tv), true
	case int32:
		return strconv.FormatInt(int64(tv), 10), true
	case int64:
		return strconv.FormatInt(tv, 10), true
	case uint:
		return strconv.FormatUint(uint64(tv), 10), true
	case uint32:
		return strconv.FormatUint(uint64(tv), 10), true
	case uint64:
		return strconv.FormatUint(tv, 10), true
	case float64:
		if tv != math.Trunc(tv) || math.IsInf(tv, 0) {
			return "", false
		}
		return strconv.FormatFloat(tv, 'f', -1, 64), true
	case json.Number:
		return tv.String(), true
	default:
		return "", false
	}
}

// CustomizationFromJSON decodes one persisted customization, applying the
// same validation as the constructors.
func CustomizationFromJSON(data []byte) (*Customization, error) {
	c := &Customization{}
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return c, nil
}

// MarshalJSON writes the persisted {id, tokenType, parentId, tokenOptions} form.
func (c *Customization) MarshalJSON() ([]byte, error) {
	opts, err := json.Marshal(c.options)
	if err != nil {
		return nil, fmt.Errorf("marshaling options for %s: %w", c.key(), err)
	}
	return json.Marshal(customizationJSON{
		ID:           c.id,
		TokenType:    c.itemType,
		ParentID:     c.parentID,
		TokenOptions: opts,
	})
}

// UnmarshalJSON decodes and validates the persisted form. Options that are
// not a JSON object decode as an empty map.
func (c *Customization) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw customizationJSON
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCustomization, err)
	}
	var options Options
	if len(raw.TokenOptions) > 0 {
		optDec := json.NewDecoder(bytes.NewReader(raw.TokenOptions))
		optDec.UseNumber()
		var m map[string]any
		if err := optDec.Decode(&m); err == nil {
			options = NormalizeOptions(m)
		}
	}
	built, err := newCustomization(raw.ID, raw.TokenType, raw.ParentID, options)
	if err != nil {
		return err
	}
	*c = *built
	return nil
}

// ID returns the customization id, unique within its type.
func (c *Customization) ID() string { return c.id }

// Type returns the item type.
func (c *Customization) Type() ItemType { return c.itemType }

// ParentID returns the id of the containing folder customization or root
// folder.
func (c *Customization) ParentID() string { return c.parentID }

// IsFolder reports whether c is a folder.
func (c *Customization) IsFolder() bool { return c.itemType == ItemTypeFolder }

// IsMyToken reports whether c is a user-created token.
func (c *Customization) IsMyToken() bool { return c.itemType == ItemTypeMyToken }

// IsPC reports whether c belongs to a player character.
func (c *Customization) IsPC() bool { return c.itemType == ItemTypePC }

// IsMonster reports whether c belongs to a monster.
func (c *Customization) IsMonster() bool { return c.itemType == ItemTypeMonster }

func (c *Customization) key() string {
	return string(c.itemType) + ":" + c.id
}

// Options returns a deep copy of the overrides.
func (c *Customization) Options() Options {
	return c.options.Clone()
}

// Option returns a deep copy of one override.
func (c *Customization) Option(key string) (any, bool) {
	v, ok := c.options[key]
	if !ok {
		return nil, false
	}
	return cloneOptionValue(v), true
}

// SetOption stores an override. A nil value deletes the key, strings are
// coerced with CoerceFromString, and any other value is stored as given
// (deep copied).
func (c *Customization) SetOption(key string, value any) {
	switch v := value.(type) {
	case nil:
		delete(c.options, key)
	case bool:
		c.options[key] = v
	case string:
		c.options[key] = CoerceFromString(v).Any()
	case OptionValue:
		c.options[key] = v.Any()
	default:
		c.options[key] = cloneOptionValue(v)
	}
}

// AlternativeImages returns a copy of the alternative image list, empty
// when none are set.
func (c *Customization) AlternativeImages() []string {
	images, _ := stringSlice(c.options[OptionAlternativeImages])
	return slices.Clone(images)
}

// AddAlternativeImage appends the normalized form of url unless it is
// already present. Inline data: URIs are rejected and false is returned.
func (c *Customization) AddAlternativeImage(url string) bool {
	if imagepath.IsDataURI(url) {
		return false
	}
	images := c.AlternativeImages()
	if images == nil {
		images = []string{}
	}
	normalized := imagepath.Normalize(url)
	if !slices.Contains(images, normalized) {
		images = append(images, normalized)
	}
	c.options[OptionAlternativeImages] = images
	return true
}

// RemoveAlternativeImage removes url, and its normalized form, from the
// alternative image list. A missing or non-list value is left untouched.
func (c *Customization) RemoveAlternativeImage(url string) {
	current, ok := stringSlice(c.options[OptionAlternativeImages])
	if !ok {
		return
	}
	images := slices.Clone(current)
	if i := slices.Index(images, url); i >= 0 {
		images = slices.Delete(images, i, i+1)
	}
	if i := slices.Index(images, imagepath.Normalize(url)); i >= 0 {
		images = slices.Delete(images, i, i+1)
	}
	c.options[OptionAlternativeImages] = images
}

// RemoveAllAlternativeImages resets the alternative image list to empty.
func (c *Customization) RemoveAllAlternativeImages() {
	c.options[OptionAlternativeImages] = []string{}
}

// RandomImage picks one alternative image uniformly. randInt must return a
// value in [min, max); nil uses math/rand/v2. Reports false when there are
// no alternative images.
func (c *Customization) RandomImage(randInt func(min, max int) int) (string, bool) {
	images, _ := stringSlice(c.options[OptionAlternativeImages])
	if len(images) == 0 {
		return "", false
	}
	if randInt == nil {
		randInt = func(min, max int) int { return min + rand.IntN(max-min) }
	}
	return images[randInt(0, len(images))], true
}

// ClearOptions discards every override except name and alternativeImages.
func (c *Customization) ClearOptions() {
	cleared := Options{}
	if name, ok := c.options[OptionName]; ok && name != nil {
		cleared[OptionName] = cloneOptionValue(name)
	}
	if images, ok := stringSlice(c.options[OptionAlternativeImages]); ok {
		cleared[OptionAlternativeImages] = slices.Clone(images)
	}
	c.options = cleared
}

// Clone returns an independent copy of c.
func (c *Customization) Clone() *Customization {
	return &Customization{
		id:       c.id,
		itemType: c.itemType,
		parentID: c.parentID,
		options:  c.options.Clone(),
	}
}

// Equal reports whether c and other agree on every field.
func (c *Customization) Equal(other *Customization) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.id == other.id &&
		c.itemType == other.itemType &&
		c.parentID == other.parentID &&
		reflect.DeepEqual(c.options, other.options)
}
