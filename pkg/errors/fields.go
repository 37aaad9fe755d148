package errors

// FieldError is a single user-facing message bound to a form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors accumulates field messages in insertion order. A field may
// carry more than one message.
type FieldErrors []FieldError

func (f *FieldErrors) Add(field, message string) {
	*f = append(*f, FieldError{Field: field, Message: message})
}

// Has reports whether any message was recorded for field.
func (f FieldErrors) Has(field string) bool {
	for _, fe := range f {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Get returns every message recorded for field.
func (f FieldErrors) Get(field string) []string {
	var out []string
	for _, fe := range f {
		if fe.Field == field {
			out = append(out, fe.Message)
		}
	}
	return out
}

// Merge appends other, skipping exact duplicates.
func (f *FieldErrors) Merge(other FieldErrors) {
	for _, fe := range other {
		if f.contains(fe) {
			continue
		}
		*f = append(*f, fe)
	}
}

func (f FieldErrors) contains(target FieldError) bool {
	for _, fe := range f {
		if fe == target {
			return true
		}
	}
	return false
}

// Map groups messages by field for template rendering.
func (f FieldErrors) Map() map[string][]string {
	out := make(map[string][]string, len(f))
	for _, fe := range f {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

// Err returns nil when no field errors were collected, otherwise a
// validation error carrying them as details.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return New(CodeValidation, "invalid form").WithDetails(f)
}

// FieldErrorsFrom extracts field errors attached to a typed error.
func FieldErrorsFrom(err error) FieldErrors {
	typed := As(err)
	if typed == nil {
		return nil
	}
	if fe, ok := typed.Details().(FieldErrors); ok {
		return fe
	}
	return nil
}
