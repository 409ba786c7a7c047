package storage

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdent checks a table name of the form "name" or "schema.name".
// Table names are interpolated into SQL, so only plain identifiers pass.
func ValidateIdent(name string) error {
	if name == "" {
		return fmt.Errorf("storage: empty identifier")
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return fmt.Errorf("storage: identifier %q has too many parts", name)
	}
	for _, p := range parts {
		if !identRe.MatchString(p) {
			return fmt.Errorf("storage: invalid identifier %q", name)
		}
	}
	return nil
}
