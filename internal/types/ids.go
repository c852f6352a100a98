package types

import (
	"time"

	"github.com/google/uuid"
)

// NewFormID generates a UUIDv7 form identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewFormID() FormID {
	return FormID(uuid.Must(uuid.NewV7()).String())
}

// NewFieldID generates a UUIDv7 field identifier.
func NewFieldID() FieldID {
	return FieldID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleID generates a UUIDv7 rule identifier.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// ParseFormID validates and converts a string to FormID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseFormID(s string) (FormID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return FormID(s), nil
}

// ParseRuleID validates and converts a string to RuleID.
func ParseRuleID(s string) (RuleID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// RuleIDTime extracts the timestamp embedded in a UUIDv7 rule id.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func RuleIDTime(id RuleID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
