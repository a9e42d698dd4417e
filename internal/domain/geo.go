package domain

import (
	"fmt"
	"math"
	"strings"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Valid reports whether both components are finite numbers.
func (c Coordinates) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0)
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// OpenStreetMap element types.
const (
	ElementNode     = "node"
	ElementWay      = "way"
	ElementRelation = "relation"
)

// BuildingID identifies a building as an OpenStreetMap element.
type BuildingID struct {
	Type string
	ID   int64
}

// NewBuildingID normalizes the element type ("W", "way", "N", ...) and builds an ID.
func NewBuildingID(elementType string, id int64) (BuildingID, error) {
	t, ok := normalizeElementType(elementType)
	if !ok {
		return BuildingID{}, fmt.Errorf("unknown osm element type %q", elementType)
	}
	if id <= 0 {
		return BuildingID{}, fmt.Errorf("invalid osm id %d", id)
	}
	return BuildingID{Type: t, ID: id}, nil
}

// IsZero reports whether the ID is unset.
func (b BuildingID) IsZero() bool { return b.ID == 0 }

func (b BuildingID) String() string { return fmt.Sprintf("%s/%d", b.Type, b.ID) }

func normalizeElementType(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "node", "n":
		return ElementNode, true
	case "way", "w":
		return ElementWay, true
	case "relation", "r":
		return ElementRelation, true
	}
	return "", false
}

// Place is the result of forward geocoding.
type Place struct {
	Coordinates Coordinates
	BuildingID  BuildingID
}
