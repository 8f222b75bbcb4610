package signup

import (
	"fmt"
	"strings"
)

// Field identifies one of the sign-up form inputs.
type Field string

const (
	FieldEmail           Field = "email"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirmPassword"
	FieldAgreeToTerms    Field = "agreeToTerms"
)

// FieldKind is the value type carried by a field.
type FieldKind string

const (
	FieldKindString  FieldKind = "string"
	FieldKindBoolean FieldKind = "boolean"
)

// FieldSpec carries the presentation hints renderers need for a field.
type FieldSpec struct {
	Name        Field
	Kind        FieldKind
	Label       string
	Placeholder string
	Secret      bool
}

var fieldSpecs = []FieldSpec{
	{Name: FieldEmail, Kind: FieldKindString, Label: "Email", Placeholder: "john@gmail.com"},
	{Name: FieldPassword, Kind: FieldKindString, Label: "Password", Secret: true},
	{Name: FieldConfirmPassword, Kind: FieldKindString, Label: "Confirm Password", Secret: true},
	{Name: FieldAgreeToTerms, Kind: FieldKindBoolean, Label: "Agree to terms"},
}

// Fields returns the form fields in display order.
func Fields() []Field {
	out := make([]Field, 0, len(fieldSpecs))
	for _, spec := range fieldSpecs {
		out = append(out, spec.Name)
	}
	return out
}

// FieldSpecs returns a copy of the field presentation hints in display order.
func FieldSpecs() []FieldSpec {
	return append([]FieldSpec(nil), fieldSpecs...)
}

// SpecFor returns the presentation hints for field.
func SpecFor(field Field) (FieldSpec, bool) {
	for _, spec := range fieldSpecs {
		if spec.Name == field {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// ParseField resolves a raw field name. Matching is exact apart from
// surrounding whitespace.
func ParseField(raw string) (Field, error) {
	candidate := Field(strings.TrimSpace(raw))
	if _, ok := SpecFor(candidate); !ok {
		return "", fmt.Errorf("signup: %w: %q", ErrUnknownField, raw)
	}
	return candidate, nil
}

// Label returns the human readable label of the field, or the raw name for
// unknown fields.
func (f Field) Label() string {
	if spec, ok := SpecFor(f); ok {
		return spec.Label
	}
	return string(f)
}

// Values holds the current form input. The zero value is the initial state.
type Values struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	AgreeToTerms    bool   `json:"agreeToTerms"`
}

// Get returns the value stored for field.
func (v Values) Get(field Field) (any, error) {
	switch field {
	case FieldEmail:
		return v.Email, nil
	case FieldPassword:
		return v.Password, nil
	case FieldConfirmPassword:
		return v.ConfirmPassword, nil
	case FieldAgreeToTerms:
		return v.AgreeToTerms, nil
	default:
		return nil, fmt.Errorf("signup: %w: %q", ErrUnknownField, field)
	}
}

// With returns a copy of v with field set to value. String fields accept
// strings; agreeToTerms accepts a bool.
func (v Values) With(field Field, value any) (Values, error) {
	spec, ok := SpecFor(field)
	if !ok {
		return v, fmt.Errorf("signup: %w: %q", ErrUnknownField, field)
	}

	switch spec.Kind {
	case FieldKindBoolean:
		b, ok := value.(bool)
		if !ok {
			return v, fmt.Errorf("signup: %w: %s expects bool, got %T", ErrValueType, field, value)
		}
		v.AgreeToTerms = b
	default:
		s, ok := value.(string)
		if !ok {
			return v, fmt.Errorf("signup: %w: %s expects string, got %T", ErrValueType, field, value)
		}
		switch field {
		case FieldEmail:
			v.Email = s
		case FieldPassword:
			v.Password = s
		case FieldConfirmPassword:
			v.ConfirmPassword = s
		}
	}
	return v, nil
}

// Redacted returns a display map with secret fields masked.
func (v Values) Redacted() map[string]any {
	out := make(map[string]any, len(fieldSpecs))
	for _, spec := range fieldSpecs {
		value, _ := v.Get(spec.Name)
		if spec.Secret {
			if s, _ := value.(string); s != "" {
				value = strings.Repeat("*", len([]rune(s)))
			}
		}
		out[string(spec.Name)] = value
	}
	return out
}

func (v Values) stringValue(field Field) (string, bool) {
	value, err := v.Get(field)
	if err != nil {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}
