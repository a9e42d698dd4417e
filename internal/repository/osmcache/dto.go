package osmcache

import (
	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/domain/building"
)

type buildingIDDTO struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

func buildingIDFromDomain(id domain.BuildingID) buildingIDDTO {
	return buildingIDDTO{Type: id.Type, ID: id.ID}
}

func (d buildingIDDTO) toDomain() (domain.BuildingID, bool) {
	id, err := domain.NewBuildingID(d.Type, d.ID)
	return id, err == nil
}

type placeDTO struct {
	Lat      float64       `json:"lat"`
	Lon      float64       `json:"lon"`
	Building buildingIDDTO `json:"building"`
}

func placeFromDomain(p domain.Place) placeDTO {
	return placeDTO{Lat: p.Coordinates.Lat, Lon: p.Coordinates.Lon, Building: buildingIDFromDomain(p.BuildingID)}
}

func (d placeDTO) toDomain() (domain.Place, bool) {
	id, ok := d.Building.toDomain()
	if !ok {
		return domain.Place{}, false
	}
	return domain.Place{Coordinates: domain.Coordinates{Lat: d.Lat, Lon: d.Lon}, BuildingID: id}, true
}

// infoDTO keeps the map-sourced fields only; location and image path are per request.
type infoDTO struct {
	Name      *string `json:"name,omitempty"`
	YearBuilt *int    `json:"year_built,omitempty"`
	Architect *string `json:"architect,omitempty"`
	History   *string `json:"history,omitempty"`
}

func infoFromDomain(i building.Info) infoDTO {
	return infoDTO{Name: i.Name, YearBuilt: i.YearBuilt, Architect: i.Architect, History: i.History}
}

func (d infoDTO) toDomain() building.Info {
	return building.Info{Name: d.Name, YearBuilt: d.YearBuilt, Architect: d.Architect, History: d.History}
}
