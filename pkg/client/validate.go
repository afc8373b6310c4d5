package client

import "strings"

// validateKeyName rejects names that cannot be used as a single path
// segment. The error carries status 400.
func validateKeyName(name string) error {
	if name == "" {
		return newValidationError("key is empty")
	}
	if strings.Contains(name, "/") {
		return newValidationError("key %q includes at least one illegal character (\"/\")", name)
	}
	return nil
}
