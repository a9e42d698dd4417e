package building

import (
	"strings"

	"github.com/citysnap/gateway/internal/domain"
)

// Query is a single lookup request. At least one of Address or Coordinates
// must be present; Image is independent of both.
type Query struct {
	Address     string
	Coordinates *domain.Coordinates
	Image       []byte
}

// HasAddress reports whether a non-blank address was supplied.
func (q Query) HasAddress() bool {
	return strings.TrimSpace(q.Address) != ""
}

// HasImage reports whether image bytes were supplied.
func (q Query) HasImage() bool { return len(q.Image) > 0 }

// Validate checks the query invariants.
func (q Query) Validate() error {
	if q.Coordinates != nil {
		if !q.Coordinates.Valid() {
			return domain.Validationf("coordinates must be finite numbers")
		}
		return nil
	}
	if !q.HasAddress() {
		return domain.Validationf("either an address or coordinates are required")
	}
	return nil
}
