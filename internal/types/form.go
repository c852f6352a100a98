package types

// Form is a stored form definition: its identity, display metadata, and the
// field catalog rules are authored against.
type Form struct {
	ID     FormID  `json:"id" db:"form_id"`
	Name   string  `json:"name" db:"name"`
	Header string  `json:"header,omitempty" db:"header"`
	Fields []Field `json:"fields"`
}
