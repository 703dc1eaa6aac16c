package criteria

import (
	"fmt"

	"github.com/folioworks/folio/pkg/model"
)

// FieldSpec declares one configuration field of a criteria type.
type FieldSpec struct {
	Name     string
	Type     string // "number", "text" or "boolean"
	Required bool
	Min      *float64 // number bounds, nil for unbounded
	Max      *float64
	Enum     []string // allowed values for text fields, nil for free text
}

// Definition describes one criteria type. Implemented=false types are
// declared but rejected at validation time; they exist so configs
// written against a future type fail loudly instead of silently.
type Definition struct {
	Type        string
	Description string
	Implemented bool
	Fields      []FieldSpec
}

// Criteria types.
const (
	TypeMessageCount  = "message_count"
	TypeReputation    = "reputation"
	TypeFirstDocument = "first_document"
	TypeTenureDays    = "tenure_days"
)

func minOf(v float64) *float64 { return &v }

// definitions is the closed registry. Types are registered here and
// nowhere else.
var definitions = []Definition{
	{
		Type:        TypeMessageCount,
		Description: "Awarded once the profile has posted at least the configured number of messages",
		Implemented: true,
		Fields: []FieldSpec{
			{Name: "value", Type: "number", Required: true, Min: minOf(1)},
			{Name: "include_deleted", Type: "boolean"},
		},
	},
	{
		Type:        TypeReputation,
		Description: "Awarded once the profile's reputation reaches the configured threshold",
		Implemented: true,
		Fields: []FieldSpec{
			{Name: "value", Type: "number", Required: true},
			{Name: "comparison", Type: "text", Enum: []string{"at_least", "above"}},
		},
	},
	{
		Type:        TypeFirstDocument,
		Description: "Awarded when the profile creates its first document",
		Implemented: true,
	},
	{
		Type:        TypeTenureDays,
		Description: "Awarded once the profile is older than the configured number of days",
		Implemented: false,
		Fields: []FieldSpec{
			{Name: "value", Type: "number", Required: true, Min: minOf(1)},
		},
	},
}

// Registry resolves criteria types to their definitions.
type Registry struct {
	byType map[string]Definition
}

// NewRegistry builds the registry from the declared definitions.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Definition, len(definitions))}
	for _, def := range definitions {
		r.byType[def.Type] = def
	}
	return r
}

// Lookup returns the definition for a type.
func (r *Registry) Lookup(criteriaType string) (Definition, bool) {
	def, ok := r.byType[criteriaType]
	return def, ok
}

// Types lists every registered criteria type in registration order.
func (r *Registry) Types() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, def := range definitions {
		if _, ok := r.byType[def.Type]; ok {
			out = append(out, def)
		}
	}
	return out
}

// Validate checks a criteria configuration against its type's declared
// fields. Every rejection names the offending field or type.
func (r *Registry) Validate(criteriaType string, config interface{}) error {
	if criteriaType == "" {
		return model.ValidationError("criteria type is required")
	}

	def, ok := r.byType[criteriaType]
	if !ok {
		return model.ValidationError("unknown criteria type %q", criteriaType)
	}
	if !def.Implemented {
		return model.ValidationError("criteria type %q is not implemented", criteriaType)
	}

	var fields map[string]interface{}
	switch c := config.(type) {
	case nil:
		fields = map[string]interface{}{}
	case map[string]interface{}:
		fields = c
	default:
		return model.ValidationError("criteria configuration must be an object")
	}

	declared := make(map[string]FieldSpec, len(def.Fields))
	for _, f := range def.Fields {
		declared[f.Name] = f
	}

	for name := range fields {
		if _, ok := declared[name]; !ok {
			return model.ValidationError("unknown field %q for criteria type %q", name, criteriaType)
		}
	}

	for _, f := range def.Fields {
		raw, present := fields[f.Name]
		if !present {
			if f.Required {
				return model.ValidationError("missing required field %q for criteria type %q", f.Name, criteriaType)
			}
			continue
		}

		switch f.Type {
		case "number":
			v, err := asNumber(raw)
			if err != nil {
				return model.ValidationError("field %q must be a number", f.Name)
			}
			if f.Min != nil && v < *f.Min {
				return model.ValidationError("field %q must be at least %v", f.Name, *f.Min)
			}
			if f.Max != nil && v > *f.Max {
				return model.ValidationError("field %q must be at most %v", f.Name, *f.Max)
			}
		case "text":
			v, ok := raw.(string)
			if !ok {
				return model.ValidationError("field %q must be text", f.Name)
			}
			if len(f.Enum) > 0 && !enumContains(f.Enum, v) {
				return model.ValidationError("field %q must be one of %v", f.Name, f.Enum)
			}
		case "boolean":
			if _, ok := raw.(bool); !ok {
				return model.ValidationError("field %q must be a boolean", f.Name)
			}
		default:
			return model.ValidationError("field %q has unsupported declared type %q", f.Name, f.Type)
		}
	}

	return nil
}

func enumContains(enum []string, v string) bool {
	for _, e := range enum {
		if e == v {
			return true
		}
	}
	return false
}

// asNumber accepts the numeric shapes JSON and YAML decoders produce.
func asNumber(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("not a number: %T", raw)
	}
}
