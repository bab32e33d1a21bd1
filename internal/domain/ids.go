package domain

import "github.com/oklog/ulid/v2"

func NewID() string {
	return ulid.Make().String()
}

// ValidateID checks that raw is a well-formed record identifier.
func ValidateID(kind, raw string) error {
	if _, err := ulid.ParseStrict(raw); err != nil {
		return InvalidArgument("invalid %s id %q", kind, raw)
	}

	return nil
}
