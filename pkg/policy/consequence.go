package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrParamNotApplicable is returned when a param key does not belong to the consequence kind.
	ErrParamNotApplicable = errors.New("param does not apply to action kind")
	// ErrUnknownField is returned for consequence fields other than type and params.*.
	ErrUnknownField = errors.New("unknown consequence field")
	// ErrIndexOutOfRange is returned by positional edits on the consequence stack.
	ErrIndexOutOfRange = errors.New("consequence index out of range")
)

// DefaultMessage is the message given to newly added consequences.
const DefaultMessage = "Validation Failed"

// Consequence is one ordered side effect of a rule that matched.
type Consequence struct {
	ID     string
	Params Params
}

// NewConsequence returns the default consequence added by the editor: a
// blocking one with a generic message.
func NewConsequence() Consequence {
	return Consequence{
		ID:     "cons_" + uuid.NewString(),
		Params: Block{Message: DefaultMessage},
	}
}

// Type returns the action kind of the consequence.
func (c Consequence) Type() ActionKind {
	if c.Params == nil {
		return ""
	}
	return c.Params.Kind()
}

// Update applies one editor change and returns the new consequence.
//
// field "type" switches the kind and resets params to the empty record of
// the new kind. field "params.<key>" sets a single param, which must apply to
// the current kind.
func (c Consequence) Update(field string, value any) (Consequence, error) {
	if field == "type" {
		kind := ActionKind(strings.TrimSpace(fmt.Sprint(value)))
		c.Params = ZeroParams(kind)
		return c, nil
	}

	key, ok := strings.CutPrefix(field, "params.")
	if !ok || key == "" {
		return c, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	kind := c.Type()
	if kind.IsKnown() && !Applies(kind, key) {
		return c, fmt.Errorf("%w: %s does not take %q", ErrParamNotApplicable, kind, key)
	}

	raw, err := EncodeParams(c.Params)
	if err != nil {
		return c, err
	}
	raw[key] = value
	params, err := DecodeParams(kind, raw)
	if err != nil {
		return c, err
	}
	c.Params = params
	return c, nil
}

// Wire returns the persisted form of the params.
func (c Consequence) Wire() map[string]any {
	raw, err := EncodeParams(c.Params)
	if err != nil {
		return map[string]any{}
	}
	return raw
}

type consequenceJSON struct {
	ID     string         `json:"id"`
	Type   ActionKind     `json:"type"`
	Params map[string]any `json:"params"`
}

// MarshalJSON writes {id, type, params}.
func (c Consequence) MarshalJSON() ([]byte, error) {
	raw, err := EncodeParams(c.Params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(consequenceJSON{ID: c.ID, Type: c.Type(), Params: raw})
}

// UnmarshalJSON reads {id, type, params} into the typed record of type.
func (c *Consequence) UnmarshalJSON(data []byte) error {
	var raw consequenceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	params, err := DecodeParams(raw.Type, raw.Params)
	if err != nil {
		return err
	}
	c.ID = raw.ID
	c.Params = params
	return nil
}
