package building

import (
	"context"

	"github.com/citysnap/gateway/internal/domain"
	dombuilding "github.com/citysnap/gateway/internal/domain/building"
)

// Geocoder resolves building identity from an address or a point.
// Both methods return domain.ErrNotFound when nothing matches and
// domain.ErrUpstream on provider failure.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Place, error)
	ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.BuildingID, error)
}

// MapData returns the structured attributes known for a building.
// Missing records yield an empty Info, never an error.
type MapData interface {
	Fetch(ctx context.Context, id domain.BuildingID) (dombuilding.Info, error)
}

// Enricher fills missing descriptive fields. It is best-effort: the
// service ignores its errors. A disabled enricher returns partial unchanged.
type Enricher interface {
	Enrich(
		ctx context.Context, partial dombuilding.Info,
		location domain.Coordinates, hint dombuilding.Hint,
	) (dombuilding.Info, error)
}

// ImageStore persists an uploaded photo and returns a retrievable path.
// Undecodable images are reported as domain.ErrValidation.
// Delete removes an image by the path Store returned; a missing image is not an error.
type ImageStore interface {
	Store(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}
