package citysnap

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Query describes the building to look up. Address or Coordinates is required;
// Coordinates win when both are set.
type Query struct {
	Address     string
	Coordinates *Coordinates
	Image       []byte // optional photo, jpeg/png/gif/webp
}

// Building is the aggregated description. Nil fields are unknown.
type Building struct {
	Name      *string      `json:"name"`
	YearBuilt *int         `json:"year_built"`
	Architect *string      `json:"architect"`
	Location  *Coordinates `json:"location"`
	History   *string      `json:"history"`
	ImagePath *string      `json:"image_path"`
}

// Result is a successful lookup.
type Result struct {
	Building Building `json:"building"`
	Sources  []string `json:"source"`
}

// HealthStatus represents the aggregated gateway health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

type buildingInfoRequest struct {
	Address     string       `json:"address,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	ImageBase64 string       `json:"image_base64,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
