package chi

import (
	"encoding/base64"
	"strings"

	"github.com/citysnap/gateway/internal/domain"
	dombuilding "github.com/citysnap/gateway/internal/domain/building"
)

// CoordinatesDTO is a WGS84 point on the wire.
type CoordinatesDTO struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// BuildingInfoRequest is the body of POST /building/info.
type BuildingInfoRequest struct {
	Address     *string         `json:"address"`
	Coordinates *CoordinatesDTO `json:"coordinates"`
	ImageBase64 *string         `json:"image_base64"`
}

// LocationDTO is a resolved building location.
type LocationDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BuildingDTO describes a building. Unknown fields are null.
type BuildingDTO struct {
	Name      *string      `json:"name"`
	YearBuilt *int         `json:"year_built"`
	Architect *string      `json:"architect"`
	Location  *LocationDTO `json:"location"`
	History   *string      `json:"history"`
	ImagePath *string      `json:"image_path"`
}

// BuildingInfoResponse is the body returned for a successful lookup.
type BuildingInfoResponse struct {
	Building BuildingDTO `json:"building"`
	Source   []string    `json:"source"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (req BuildingInfoRequest) toQuery() (dombuilding.Query, error) {
	var q dombuilding.Query
	if req.Address != nil {
		q.Address = strings.TrimSpace(*req.Address)
	}

	if req.Coordinates != nil {
		c, err := req.Coordinates.toDomain()
		if err != nil {
			return dombuilding.Query{}, err
		}
		q.Coordinates = &c
	}

	if req.ImageBase64 != nil {
		img, err := decodeImage(*req.ImageBase64)
		if err != nil {
			return dombuilding.Query{}, err
		}
		q.Image = img
	}

	return q, nil
}

func (c CoordinatesDTO) toDomain() (domain.Coordinates, error) {
	if c.Lat == nil || c.Lon == nil {
		return domain.Coordinates{}, domain.Validationf("coordinates require both lat and lon")
	}
	if *c.Lat < -90 || *c.Lat > 90 {
		return domain.Coordinates{}, domain.Validationf("lat must be between -90 and 90")
	}
	if *c.Lon < -180 || *c.Lon > 180 {
		return domain.Coordinates{}, domain.Validationf("lon must be between -180 and 180")
	}
	return domain.Coordinates{Lat: *c.Lat, Lon: *c.Lon}, nil
}

// decodeImage accepts raw base64 or a data URI. A blank value means no image;
// a data URI with an empty payload is rejected.
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		meta, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, domain.Validationf("image_base64 data URI must be base64 encoded")
		}
		s = strings.Join(strings.Fields(payload), "")
		if s == "" {
			return nil, domain.Validationf("image_base64 data URI has no payload")
		}
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, domain.Validationf("image_base64 is not valid base64")
	}
	return data, nil
}

func responseFromResult(res dombuilding.Result) BuildingInfoResponse {
	b := res.Building
	dto := BuildingDTO{
		Name:      b.Name,
		YearBuilt: b.YearBuilt,
		Architect: b.Architect,
		History:   b.History,
		ImagePath: b.ImagePath,
	}
	if b.Location != nil {
		dto.Location = &LocationDTO{Lat: b.Location.Lat, Lon: b.Location.Lon}
	}

	sources := make([]string, len(res.Sources))
	copy(sources, res.Sources)
	return BuildingInfoResponse{Building: dto, Source: sources}
}
