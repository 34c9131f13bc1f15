package store

import (
	"fmt"
	"strings"

	"merklesig/internal/domain"
)

// validName rejects names that could escape the store directory or collide
// with the LevelDB key prefixes.
func validName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`+"\x00") {
		return fmt.Errorf("%w: invalid %s name %q", domain.ErrMalformedInput, kind, name)
	}
	return nil
}
