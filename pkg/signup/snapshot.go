package signup

// Errors maps a field to its current validation message. A missing key means
// the field is valid.
type Errors map[Field]string

// Has reports whether field carries a non-empty message.
func (e Errors) Has(field Field) bool {
	return e[field] != ""
}

// Get returns the message for field, or "".
func (e Errors) Get(field Field) string {
	return e[field]
}

// Clone returns an independent copy (nil for an empty map).
func (e Errors) Clone() Errors {
	if len(e) == 0 {
		return nil
	}
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Snapshot is an immutable view of the form state handed to presentation
// layers. The maps it carries are copies owned by the snapshot.
type Snapshot struct {
	Values       Values         `json:"values"`
	Touched      map[Field]bool `json:"touched"`
	Dirty        map[Field]bool `json:"dirty"`
	Errors       Errors         `json:"errors,omitempty"`
	IsSubmitting bool           `json:"isSubmitting"`
	GeneralError string         `json:"generalError,omitempty"`
	Submitted    bool           `json:"submitted"`
	Attempts     int            `json:"attempts"`
}

// VisibleError returns the field error only once the field has been touched.
func (s Snapshot) VisibleError(field Field) string {
	if !s.Touched[field] {
		return ""
	}
	return s.Errors.Get(field)
}

// VisibleErrors returns the subset of errors the user should currently see.
func (s Snapshot) VisibleErrors() Errors {
	var out Errors
	for field, msg := range s.Errors {
		if msg == "" || !s.Touched[field] {
			continue
		}
		if out == nil {
			out = make(Errors)
		}
		out[field] = msg
	}
	return out
}

// Valid reports whether the current values pass every rule.
func (s Snapshot) Valid() bool {
	return len(s.Errors) == 0
}

// CanSubmit reports whether a submit trigger would be accepted.
func (s Snapshot) CanSubmit() bool {
	return !s.IsSubmitting
}

func cloneFlags(in map[Field]bool) map[Field]bool {
	out := make(map[Field]bool, len(fieldSpecs))
	for _, spec := range fieldSpecs {
		out[spec.Name] = in[spec.Name]
	}
	return out
}

func dirtyFlags(initial, current Values) map[Field]bool {
	out := make(map[Field]bool, len(fieldSpecs))
	for _, spec := range fieldSpecs {
		a, _ := initial.Get(spec.Name)
		b, _ := current.Get(spec.Name)
		out[spec.Name] = a != b
	}
	return out
}
