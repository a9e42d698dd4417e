// Package nominatim resolves addresses and points through the OpenStreetMap Nominatim API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/metrics"
	"github.com/citysnap/gateway/internal/transport/upstream"
)

const (
	opSearch  = "search"
	opReverse = "reverse"
)

// Config holds the Nominatim client settings.
type Config struct {
	SearchURL   string
	ReverseURL  string
	UserAgent   string
	Limit       int
	ReverseZoom int
	Timeout     time.Duration
	RetryMax    int
	Logger      *zap.Logger
}

// Geocoder implements forward and reverse geocoding against Nominatim.
type Geocoder struct {
	client      *upstream.Client
	searchURL   string
	reverseURL  string
	limit       int
	reverseZoom int
	logger      *zap.Logger
}

// NewGeocoder creates a Nominatim geocoder.
func NewGeocoder(cfg Config) *Geocoder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 1
	}
	zoom := cfg.ReverseZoom
	if zoom <= 0 {
		zoom = 18
	}

	return &Geocoder{
		client: upstream.New(upstream.Config{
			Provider:  metrics.ProviderNominatim,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
			RetryMax:  cfg.RetryMax,
			Logger:    logger,
		}),
		searchURL:   cfg.SearchURL,
		reverseURL:  cfg.ReverseURL,
		limit:       limit,
		reverseZoom: zoom,
		logger:      logger,
	}
}

// searchResult is one element of the /search response.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	OSMType     string `json:"osm_type"`
	OSMID       int64  `json:"osm_id"`
	DisplayName string `json:"display_name"`
}

// reverseResult is the /reverse response. Error is set when nothing is there.
type reverseResult struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	OSMType string `json:"osm_type"`
	OSMID   int64  `json:"osm_id"`
	Error   string `json:"error"`
}

// Geocode resolves an address to coordinates and a building id.
func (g *Geocoder) Geocode(ctx context.Context, address string) (domain.Place, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(g.limit))

	resp, err := g.client.Get(ctx, opSearch, g.searchURL+"?"+q.Encode())
	if err != nil {
		return domain.Place{}, err
	}
	if !resp.OK() {
		return domain.Place{}, g.client.StatusError(opSearch, resp)
	}

	var results []searchResult
	if err := json.Unmarshal(resp.Body, &results); err != nil {
		return domain.Place{}, g.client.DecodeError(opSearch, resp, err)
	}
	if len(results) == 0 {
		g.logger.Info("No geocoding results", zap.String("address", address))
		return domain.Place{}, domain.NotFoundf("no geocoding results for %q", address)
	}

	first := results[0]
	coords, err := parseCoordinates(first.Lat, first.Lon)
	if err != nil {
		return domain.Place{}, g.client.DecodeError(opSearch, resp, err)
	}

	osmType := first.OSMType
	if osmType == "" {
		osmType = domain.ElementWay
	}
	id, err := domain.NewBuildingID(osmType, first.OSMID)
	if err != nil {
		return domain.Place{}, g.client.DecodeError(opSearch, resp, err)
	}

	g.logger.Debug("Geocoding succeeded",
		zap.String("address", address),
		zap.Stringer("coordinates", coords),
		zap.Stringer("building_id", id),
	)
	return domain.Place{Coordinates: coords, BuildingID: id}, nil
}

// ReverseGeocode resolves a point to the building (way) that contains it.
func (g *Geocoder) ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.BuildingID, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("zoom", strconv.Itoa(g.reverseZoom))

	resp, err := g.client.Get(ctx, opReverse, g.reverseURL+"?"+q.Encode())
	if err != nil {
		return domain.BuildingID{}, err
	}
	if !resp.OK() {
		return domain.BuildingID{}, g.client.StatusError(opReverse, resp)
	}

	var result reverseResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return domain.BuildingID{}, g.client.DecodeError(opReverse, resp, err)
	}
	if result.Error != "" {
		return domain.BuildingID{}, domain.NotFoundf("reverse geocoding %s: %s", coords, result.Error)
	}
	if !isWay(result.OSMType) || result.OSMID <= 0 {
		g.logger.Info("Reverse geocoding did not return a building",
			zap.Stringer("coordinates", coords),
			zap.String("osm_type", result.OSMType),
		)
		return domain.BuildingID{}, domain.NotFoundf("no building at %s", coords)
	}

	return domain.BuildingID{Type: domain.ElementWay, ID: result.OSMID}, nil
}

func isWay(osmType string) bool {
	return osmType == "way" || osmType == "W"
}

func parseCoordinates(lat, lon string) (domain.Coordinates, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("malformed lat %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("malformed lon %q: %w", lon, err)
	}
	c := domain.Coordinates{Lat: la, Lon: lo}
	if !c.Valid() {
		return domain.Coordinates{}, fmt.Errorf("non-finite coordinates %q,%q", lat, lon)
	}
	return c, nil
}
