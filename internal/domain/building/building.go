// Package building holds the descriptive building model assembled per request.
package building

import (
	"strings"

	"github.com/citysnap/gateway/internal/domain"
)

// Source names recorded in Result.Sources, in the order providers are consulted.
const (
	SourceMapData    = "OpenStreetMap API"
	SourceEnrichment = "Open AI LLM"
)

// Info is a partial description of a building. Every field is optional;
// nil means unknown.
type Info struct {
	Name      *string
	YearBuilt *int
	Architect *string
	History   *string
	Location  *domain.Coordinates
	ImagePath *string
}

// IsComplete reports whether architect, year built and history are all known.
// Name and location do not take part in the test.
func IsComplete(info Info) bool {
	return info.Architect != nil && info.YearBuilt != nil && info.History != nil
}

// HasData reports whether any descriptive field (name, year, architect, history) is set.
func HasData(info Info) bool {
	return info.Name != nil || info.YearBuilt != nil || info.Architect != nil || info.History != nil
}

// FillMissing copies descriptive fields from extra into base where base has none.
// Fields already present in base are never overwritten. Returns the merged
// value and the number of fields that were filled.
func FillMissing(base, extra Info) (Info, int) {
	filled := 0
	if base.Name == nil && extra.Name != nil {
		base.Name = extra.Name
		filled++
	}
	if base.YearBuilt == nil && extra.YearBuilt != nil {
		base.YearBuilt = extra.YearBuilt
		filled++
	}
	if base.Architect == nil && extra.Architect != nil {
		base.Architect = extra.Architect
		filled++
	}
	if base.History == nil && extra.History != nil {
		base.History = extra.History
		filled++
	}
	return base, filled
}

// Text returns a pointer to the trimmed string, or nil when it is blank.
func Text(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Year returns a pointer to y.
func Year(y int) *int { return &y }

// Result is the aggregated answer for one query.
type Result struct {
	Building Info
	Sources  []string
}

// Hint carries request context that helps enrichment providers but is not
// part of the building description.
type Hint struct {
	Address  string
	HasPhoto bool
}
