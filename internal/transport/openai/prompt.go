package openai

import (
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/domain/building"
)

const systemPrompt = "You are an expert historian of architecture. " +
	"Given the address, location and known facts about a building, provide:\n" +
	"1) the year it was built (if known),\n" +
	"2) the name of its architect (if known),\n" +
	"3) a short historical note: notable events and style, at most 3 sentences.\n" +
	"If you are not sure about a fact, answer \"unknown\" for it. Do not continue the dialogue.\n" +
	"Answer with a JSON object with the fields `name`, `year`, `architect`, `history`, `sources`."

func buildMessages(partial building.Info, location domain.Coordinates, hint building.Hint) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt(partial, location, hint)},
	}
}

func userPrompt(partial building.Info, location domain.Coordinates, hint building.Hint) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Address: %s\n", addressLine(partial, location, hint))
	fmt.Fprintf(&b, "Location: lat=%.6f, lon=%.6f\n", location.Lat, location.Lon)

	if known := knownFacts(partial); len(known) > 0 {
		b.WriteString("Known facts (keep them as they are):\n")
		for _, fact := range known {
			b.WriteString("- " + fact + "\n")
		}
	}
	if hint.HasPhoto {
		b.WriteString("The user took a photo of the building.\n")
	}

	b.WriteString("Return a JSON object with the fields `name`, `year`, `architect`, `history`, `sources`.\n")
	return b.String()
}

// addressLine prefers the caller's address, then the known name, then raw coordinates.
func addressLine(partial building.Info, location domain.Coordinates, hint building.Hint) string {
	switch {
	case hint.Address != "":
		return hint.Address
	case partial.Name != nil:
		return *partial.Name
	default:
		return fmt.Sprintf("lat=%.6f, lon=%.6f", location.Lat, location.Lon)
	}
}

func knownFacts(info building.Info) []string {
	var facts []string
	if info.Name != nil {
		facts = append(facts, "name: "+*info.Name)
	}
	if info.YearBuilt != nil {
		facts = append(facts, "year: "+strconv.Itoa(*info.YearBuilt))
	}
	if info.Architect != nil {
		facts = append(facts, "architect: "+*info.Architect)
	}
	if info.History != nil {
		facts = append(facts, "history: "+*info.History)
	}
	return facts
}
