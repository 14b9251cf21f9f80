package acquisition

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/tripwise/internal/domain/source"
)

const enrichSystem = `You are a travel research assistant. You turn raw facts about a city into a
structured destination record for travelers. Be factual and conservative: when you do not know a
value, omit it rather than invent it. Legal penalties must carry a severity of minor, moderate or severe.`

const enrichSchema = `{
  "name": string, "country": string, "region": string, "description": string,
  "coordinates": {"lat": number, "lng": number},
  "population": number, "languages": [string], "currency": string,
  "safetyRating": number 1-10, "touristFriendliness": number 1-10,
  "costLevel": costLevel,
  "travelLaws": {"immigration": [string], "transportation": [string], "accommodation": [string],
    "publicBehavior": [string], "photography": [string], "shopping": [string],
    "penalties": [{"violation": string, "penalty": string, "severity": "minor"|"moderate"|"severe"}]},
  "culturalNorms": {"etiquette": [string], "taboos": [string], "dressCode": [string],
    "religious": [string], "business": [string], "social": [string]},
  "attractions": [{"name": string, "type": string, "description": string, "rating": number}],
  "restaurants": [{"name": string, "cuisine": string, "priceLevel": costLevel}],
  "events": [{"name": string, "month": string, "description": string}],
  "transport": [{"mode": string, "description": string, "costLevel": costLevel}],
  "economy": {"averageDailyBudgetUsd": number, "paymentMethods": [string], "tipping": string},
  "climate": {"summary": string, "bestMonths": [string]},
  "languageGuide": {"primary": string, "phrases": [{"english": string, "local": string}]},
  "practical": {"emergencyNumbers": {string: string}, "businessHours": string, "health": [string],
    "connectivity": string, "plug": string}
}
costLevel is one of "budget", "moderate", "expensive", "luxury".`

// enrichPrompt lays out everything the sources returned for the model.
func enrichPrompt(raw source.Raw) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Destination: %s", raw.City)
	if raw.Country != "" {
		fmt.Fprintf(&b, ", %s", raw.Country)
	}
	b.WriteString("\n\nSource data:\n")
	if len(raw.Fragments) == 0 {
		b.WriteString("(no source answered; rely on general knowledge)\n")
	}
	for _, f := range raw.Fragments {
		fmt.Fprintf(&b, "- %s (%s):", f.Source.Name, f.Source.Type)
		if f.Title != "" {
			fmt.Fprintf(&b, " %s.", f.Title)
		}
		if f.Summary != "" {
			fmt.Fprintf(&b, " %s", f.Summary)
		}
		if f.Region != "" {
			fmt.Fprintf(&b, " Region: %s.", f.Region)
		}
		if f.Coordinates != nil {
			fmt.Fprintf(&b, " Coordinates: %.4f, %.4f.", f.Coordinates.Lat, f.Coordinates.Lng)
		}
		keys := make([]string, 0, len(f.Facts))
		for k := range f.Facts {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s: %s.", k, f.Facts[k])
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReturn one JSON object with this shape:\n")
	b.WriteString(enrichSchema)
	return b.String()
}
