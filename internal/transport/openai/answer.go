package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/citysnap/gateway/internal/domain/building"
)

var answerYearRe = regexp.MustCompile(`1[0-9]{3}|20[0-9]{2}`)

// Numeric years outside the range answerYearRe accepts are discarded.
const (
	minAnswerYear = 1000
	maxAnswerYear = 2099
)

// Values the model uses to say it does not know.
var unknownMarkers = map[string]struct{}{
	"unknown":          {},
	"n/a":              {},
	"неизвестно":       {},
	"не удалось найти": {},
}

type rawAnswer struct {
	Name      any `json:"name"`
	Year      any `json:"year"`
	Architect any `json:"architect"`
	History   any `json:"history"`
	Sources   any `json:"sources"`
}

type answer struct {
	info    building.Info
	sources []string
}

func parseAnswer(content string) (answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return answer{}, errors.New("empty answer")
	}

	var raw rawAnswer
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return answer{}, fmt.Errorf("answer is not a JSON object: %w", err)
	}

	return answer{
		info: building.Info{
			Name:      normalizeText(raw.Name),
			YearBuilt: normalizeYear(raw.Year),
			Architect: normalizeText(raw.Architect),
			History:   normalizeText(raw.History),
		},
		sources: normalizeSources(raw.Sources),
	}, nil
}

func normalizeText(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if isUnknown(s) {
		return nil
	}
	return building.Text(s)
}

func normalizeYear(v any) *int {
	switch y := v.(type) {
	case float64:
		if math.IsNaN(y) || y < minAnswerYear || y >= maxAnswerYear+1 {
			return nil
		}
		return building.Year(int(y))
	case string:
		lower := strings.ToLower(y)
		if strings.Contains(lower, "unknown") || strings.Contains(lower, "неизвестно") {
			return nil
		}
		m := answerYearRe.FindString(y)
		if m == "" {
			return nil
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return nil
		}
		return building.Year(n)
	}
	return nil
}

func normalizeSources(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func isUnknown(s string) bool {
	_, ok := unknownMarkers[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
