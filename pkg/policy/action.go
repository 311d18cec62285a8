package policy

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ActionKind names what a consequence does. The set is open: kinds this
// package does not know are carried with their raw params.
type ActionKind string

const (
	ActionBlock        ActionKind = "BLOCK"
	ActionWarn         ActionKind = "WARN"
	ActionShow         ActionKind = "SHOW"
	ActionHide         ActionKind = "HIDE"
	ActionEnable       ActionKind = "ENABLE"
	ActionDisable      ActionKind = "DISABLE"
	ActionRequire      ActionKind = "REQUIRE"
	ActionOptional     ActionKind = "OPTIONAL"
	ActionSetValue     ActionKind = "SET_VALUE"
	ActionCalculate    ActionKind = "CALCULATE"
	ActionTriggerEvent ActionKind = "TRIGGER_EVENT"
	ActionTransition   ActionKind = "TRANSITION"
	ActionNotify       ActionKind = "NOTIFY"
)

// Wire keys of consequence params.
const (
	ParamMessage     = "message"
	ParamTargetField = "target_field"
	ParamValue       = "value"
	ParamExpression  = "expression"
	ParamEventKey    = "event_key"
	ParamTemplateID  = "template_id"
	ParamTargetState = "target_state"
)

type fieldSpec struct {
	fields   []string
	required []string
}

// actionFields is the single kind-to-params table.
var actionFields = map[ActionKind]fieldSpec{
	ActionBlock:        {fields: []string{ParamMessage}, required: []string{ParamMessage}},
	ActionWarn:         {fields: []string{ParamMessage}, required: []string{ParamMessage}},
	ActionRequire:      {fields: []string{ParamMessage, ParamTargetField}, required: []string{ParamTargetField}},
	ActionOptional:     {fields: []string{ParamTargetField}, required: []string{ParamTargetField}},
	ActionShow:         {fields: []string{ParamTargetField}, required: []string{ParamTargetField}},
	ActionHide:         {fields: []string{ParamTargetField}, required: []string{ParamTargetField}},
	ActionEnable:       {fields: []string{ParamTargetField}, required: []string{ParamTargetField}},
	ActionDisable:      {fields: []string{ParamTargetField}, required: []string{ParamTargetField}},
	ActionSetValue:     {fields: []string{ParamTargetField, ParamValue}, required: []string{ParamTargetField}},
	ActionCalculate:    {fields: []string{ParamTargetField, ParamExpression}, required: []string{ParamTargetField, ParamExpression}},
	ActionTriggerEvent: {fields: []string{ParamEventKey}, required: []string{ParamEventKey}},
	ActionNotify:       {fields: []string{ParamTemplateID}, required: []string{ParamTemplateID}},
	ActionTransition:   {fields: []string{ParamTargetState}, required: []string{ParamTargetState}},
}

// KnownActions lists the kinds with typed params, in display order.
var KnownActions = []ActionKind{
	ActionBlock, ActionWarn, ActionRequire, ActionOptional,
	ActionShow, ActionHide, ActionEnable, ActionDisable,
	ActionSetValue, ActionCalculate, ActionTriggerEvent, ActionNotify, ActionTransition,
}

// IsKnown reports whether kind has a typed params record.
func (k ActionKind) IsKnown() bool {
	_, ok := actionFields[k]
	return ok
}

// FieldsFor returns the param keys that apply to kind. Unknown kinds return nil.
func FieldsFor(kind ActionKind) []string {
	return append([]string(nil), actionFields[kind].fields...)
}

// RequiredFor returns the param keys a consequence of kind must set.
func RequiredFor(kind ActionKind) []string {
	return append([]string(nil), actionFields[kind].required...)
}

// Applies reports whether key is a param of kind.
func Applies(kind ActionKind, key string) bool {
	for _, f := range actionFields[kind].fields {
		if f == key {
			return true
		}
	}
	return false
}

// Params is the typed payload of a consequence. Each implementation belongs
// to exactly one ActionKind, except Unknown which carries any other kind.
type Params interface {
	Kind() ActionKind
}

type Block struct {
	Message string `mapstructure:"message,omitempty"`
}

type Warn struct {
	Message string `mapstructure:"message,omitempty"`
}

type Require struct {
	Message     string `mapstructure:"message,omitempty"`
	TargetField string `mapstructure:"target_field,omitempty"`
}

type Optional struct {
	TargetField string `mapstructure:"target_field,omitempty"`
}

type Show struct {
	TargetField string `mapstructure:"target_field,omitempty"`
}

type Hide struct {
	TargetField string `mapstructure:"target_field,omitempty"`
}

type Enable struct {
	TargetField string `mapstructure:"target_field,omitempty"`
}

type Disable struct {
	TargetField string `mapstructure:"target_field,omitempty"`
}

type SetValue struct {
	TargetField string `mapstructure:"target_field,omitempty"`
	Value       any    `mapstructure:"value,omitempty"`
}

// Calculate stores the result of an expression into a field.
type Calculate struct {
	TargetField string `mapstructure:"target_field,omitempty"`
	Expression  string `mapstructure:"expression,omitempty"`
}

type TriggerEvent struct {
	EventKey string `mapstructure:"event_key,omitempty"`
}

type Notify struct {
	TemplateID string `mapstructure:"template_id,omitempty"`
}

// Transition moves the owning process to another state.
type Transition struct {
	TargetState string `mapstructure:"target_state,omitempty"`
}

// Unknown carries a kind this package has no record for.
type Unknown struct {
	Type   ActionKind
	Values map[string]any
}

func (Block) Kind() ActionKind        { return ActionBlock }
func (Warn) Kind() ActionKind         { return ActionWarn }
func (Require) Kind() ActionKind      { return ActionRequire }
func (Optional) Kind() ActionKind     { return ActionOptional }
func (Show) Kind() ActionKind         { return ActionShow }
func (Hide) Kind() ActionKind         { return ActionHide }
func (Enable) Kind() ActionKind       { return ActionEnable }
func (Disable) Kind() ActionKind      { return ActionDisable }
func (SetValue) Kind() ActionKind     { return ActionSetValue }
func (Calculate) Kind() ActionKind    { return ActionCalculate }
func (TriggerEvent) Kind() ActionKind { return ActionTriggerEvent }
func (Notify) Kind() ActionKind       { return ActionNotify }
func (Transition) Kind() ActionKind   { return ActionTransition }
func (u Unknown) Kind() ActionKind    { return u.Type }

// ZeroParams returns the empty params record for kind.
func ZeroParams(kind ActionKind) Params {
	switch kind {
	case ActionBlock:
		return Block{}
	case ActionWarn:
		return Warn{}
	case ActionRequire:
		return Require{}
	case ActionOptional:
		return Optional{}
	case ActionShow:
		return Show{}
	case ActionHide:
		return Hide{}
	case ActionEnable:
		return Enable{}
	case ActionDisable:
		return Disable{}
	case ActionSetValue:
		return SetValue{}
	case ActionCalculate:
		return Calculate{}
	case ActionTriggerEvent:
		return TriggerEvent{}
	case ActionNotify:
		return Notify{}
	case ActionTransition:
		return Transition{}
	default:
		return Unknown{Type: kind, Values: map[string]any{}}
	}
}

// EncodeParams renders params as the wire map. Unset fields are omitted, so
// the zero record of any kind encodes to an empty map.
func EncodeParams(p Params) (map[string]any, error) {
	out := map[string]any{}
	switch v := p.(type) {
	case nil:
		return out, nil
	case Unknown:
		for k, val := range v.Values {
			out[k] = val
		}
		return out, nil
	}
	if err := mapstructure.Decode(p, &out); err != nil {
		return nil, fmt.Errorf("encode %s params: %w", p.Kind(), err)
	}
	return out, nil
}

// DecodeParams builds the typed record for kind from a wire map. Keys that do
// not apply to kind are discarded.
func DecodeParams(kind ActionKind, raw map[string]any) (Params, error) {
	zero := ZeroParams(kind)
	if u, ok := zero.(Unknown); ok {
		for k, v := range raw {
			u.Values[k] = v
		}
		return u, nil
	}

	target := newPointer(zero)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode %s params: %w", kind, err)
	}
	return deref(target), nil
}

func newPointer(p Params) any {
	switch p.(type) {
	case Block:
		return &Block{}
	case Warn:
		return &Warn{}
	case Require:
		return &Require{}
	case Optional:
		return &Optional{}
	case Show:
		return &Show{}
	case Hide:
		return &Hide{}
	case Enable:
		return &Enable{}
	case Disable:
		return &Disable{}
	case SetValue:
		return &SetValue{}
	case Calculate:
		return &Calculate{}
	case TriggerEvent:
		return &TriggerEvent{}
	case Notify:
		return &Notify{}
	case Transition:
		return &Transition{}
	}
	return nil
}

func deref(ptr any) Params {
	switch v := ptr.(type) {
	case *Block:
		return *v
	case *Warn:
		return *v
	case *Require:
		return *v
	case *Optional:
		return *v
	case *Show:
		return *v
	case *Hide:
		return *v
	case *Enable:
		return *v
	case *Disable:
		return *v
	case *SetValue:
		return *v
	case *Calculate:
		return *v
	case *TriggerEvent:
		return *v
	case *Notify:
		return *v
	case *Transition:
		return *v
	}
	return nil
}
