// Package osm reads building tags from the OpenStreetMap API 0.6.
package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/domain/building"
	"github.com/citysnap/gateway/internal/metrics"
	"github.com/citysnap/gateway/internal/transport/upstream"
)

const opFetch = "fetch"

// Tag keys consulted, in priority order.
var (
	yearTags    = []string{"start_date", "construction", "building:date"}
	historyTags = []string{"description", "note", "wikipedia:synopsis"}
)

var yearRe = regexp.MustCompile(`\d{1,4}`)

// Config holds the OSM API client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	RetryMax  int
	Logger    *zap.Logger
}

// MapData fetches element tags and maps them onto building.Info.
type MapData struct {
	client  *upstream.Client
	baseURL string
	logger  *zap.Logger
}

// NewMapData creates an OSM API client.
func NewMapData(cfg Config) *MapData {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MapData{
		client: upstream.New(upstream.Config{
			Provider:  metrics.ProviderOpenStreetMap,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
			RetryMax:  cfg.RetryMax,
			Logger:    logger,
		}),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

type elementsPayload struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags"`
}

// Fetch returns the descriptive tags of a building. Deleted or unknown
// elements yield an empty Info and no error.
func (m *MapData) Fetch(ctx context.Context, id domain.BuildingID) (building.Info, error) {
	if id.IsZero() {
		return building.Info{}, nil
	}

	u := fmt.Sprintf("%s/%s/%d.json", m.baseURL, id.Type, id.ID)
	resp, err := m.client.Get(ctx, opFetch, u)
	if err != nil {
		return building.Info{}, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		m.logger.Info("Building element not available", zap.Stringer("building_id", id), zap.Int("status", resp.StatusCode))
		return building.Info{}, nil
	case !resp.OK():
		return building.Info{}, m.client.StatusError(opFetch, resp)
	}

	var payload elementsPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return building.Info{}, m.client.DecodeError(opFetch, resp, err)
	}

	el, ok := findElement(payload.Elements, id)
	if !ok {
		m.logger.Warn("Building not found in payload", zap.Stringer("building_id", id))
		return building.Info{}, nil
	}

	return infoFromTags(el.Tags), nil
}

func findElement(elements []element, id domain.BuildingID) (element, bool) {
	for _, el := range elements {
		if el.Type == id.Type && el.ID == id.ID {
			return el, true
		}
	}
	return element{}, false
}

func infoFromTags(tags map[string]string) building.Info {
	return building.Info{
		Name:      building.Text(tags["name"]),
		YearBuilt: yearFromTags(tags),
		Architect: building.Text(tags["architect"]),
		History:   firstText(tags, historyTags),
	}
}

// yearFromTags takes the first number found in the date tags, e.g. "1936..1941" -> 1936.
func yearFromTags(tags map[string]string) *int {
	for _, key := range yearTags {
		m := yearRe.FindString(tags[key])
		if m == "" {
			continue
		}
		if y, err := strconv.Atoi(m); err == nil {
			return building.Year(y)
		}
	}
	return nil
}

func firstText(tags map[string]string, keys []string) *string {
	for _, key := range keys {
		if s := building.Text(tags[key]); s != nil {
			return s
		}
	}
	return nil
}
