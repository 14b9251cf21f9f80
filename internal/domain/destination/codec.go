package destination

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kailas-cloud/tripwise/internal/domain"
)

// Decode parses a destination record. A document matching the current schema is
// decoded directly; anything else (legacy records, loosely shaped AI output) is
// read field by field with defaults. The result is always normalized.
func Decode(data []byte) (Destination, error) {
	if !gjson.ValidBytes(data) {
		return Destination{}, fmt.Errorf("destination is not valid JSON: %w", domain.ErrInvalidInput)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Destination{}, fmt.Errorf("destination must be a JSON object: %w", domain.ErrInvalidInput)
	}

	var d Destination
	if !IsLegacy(data) {
		if err := json.Unmarshal(data, &d); err == nil && d.Name != "" {
			d.Normalize()
			return d, nil
		}
		d = Destination{}
	}

	decodeFields(root, &d)
	if d.Name == "" {
		return Destination{}, fmt.Errorf("destination name is missing: %w", domain.ErrInvalidInput)
	}
	if IsLegacy(data) {
		d.ApplyConservativeDefaults()
	}
	d.Normalize()
	return d, nil
}

// IsLegacy reports whether data predates the structured law and culture blocks.
func IsLegacy(data []byte) bool {
	r := gjson.ParseBytes(data)
	return !r.Get("travelLaws").IsObject() && !r.Get("culturalNorms").IsObject()
}

// Encode serializes a normalized copy of d.
func Encode(d Destination) ([]byte, error) {
	d.Normalize()
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode destination: %w", err)
	}
	return data, nil
}

func decodeFields(root gjson.Result, d *Destination) {
	d.ID = first(root, "id").String()
	d.Name = first(root, "name", "city", "title").String()
	d.Country = first(root, "country", "countryName").String()
	d.Region = first(root, "region", "state", "province").String()
	d.Description = first(root, "description", "summary", "overview").String()
	d.Coordinates.Lat = first(root, "coordinates.lat", "coordinates.latitude", "latitude", "lat").Float()
	d.Coordinates.Lng = first(root, "coordinates.lng", "coordinates.lon", "coordinates.longitude", "longitude", "lng", "lon").Float()
	d.Population = first(root, "population").Int()
	d.Languages = stringList(first(root, "languages", "language"))
	d.Currency = first(root, "currency", "currency.code").String()
	d.SafetyRating = first(root, "safetyRating", "safety_rating", "safety").Float()
	d.TouristFriendliness = first(root, "touristFriendliness", "tourist_friendliness").Float()
	d.CostLevel = ParseCostLevel(first(root, "costLevel", "cost_level", "budget", "priceLevel").String())

	laws := first(root, "travelLaws", "laws")
	if laws.IsObject() {
		d.Laws = TravelLaws{
			Immigration:    stringList(laws.Get("immigration")),
			Transportation: stringList(laws.Get("transportation")),
			Accommodation:  stringList(laws.Get("accommodation")),
			PublicBehavior: stringList(laws.Get("publicBehavior")),
			Photography:    stringList(laws.Get("photography")),
			Shopping:       stringList(laws.Get("shopping")),
			Penalties:      penalties(laws.Get("penalties")),
		}
	} else {
		d.Laws.PublicBehavior = stringList(laws)
	}
	if len(d.Laws.Penalties) == 0 {
		d.Laws.Penalties = penalties(root.Get("penalties"))
	}

	culture := first(root, "culturalNorms", "culture", "customs")
	if culture.IsObject() {
		d.Culture = CulturalNorms{
			Etiquette: stringList(culture.Get("etiquette")),
			Taboos:    stringList(culture.Get("taboos")),
			DressCode: stringList(culture.Get("dressCode")),
			Religious: stringList(culture.Get("religious")),
			Business:  stringList(culture.Get("business")),
			Social:    stringList(culture.Get("social")),
		}
	} else {
		d.Culture.Etiquette = stringList(culture)
	}

	for _, a := range first(root, "attractions", "highlights").Array() {
		if a.Type == gjson.String {
			d.Attractions = append(d.Attractions, Attraction{Name: a.String()})
			continue
		}
		if name := a.Get("name").String(); name != "" {
			d.Attractions = append(d.Attractions, Attraction{
				Name:        name,
				Type:        a.Get("type").String(),
				Description: a.Get("description").String(),
				Rating:      a.Get("rating").Float(),
			})
		}
	}
	for _, e := range root.Get("events").Array() {
		if e.Type == gjson.String {
			d.Events = append(d.Events, Event{Name: e.String()})
		} else if name := e.Get("name").String(); name != "" {
			d.Events = append(d.Events, Event{Name: name, Month: e.Get("month").String(), Description: e.Get("description").String()})
		}
	}
	if q := root.Get("quality.metrics"); q.IsObject() {
		_ = json.Unmarshal([]byte(q.Raw), &d.Quality.Metrics)
	}
	if lu := root.Get("quality.lastUpdated"); lu.Exists() {
		d.Quality.LastUpdated = lu.Time()
	}
}

func first(root gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := root.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// stringList accepts an array of strings, an array of objects with a text-ish
// field, or a comma separated string.
func stringList(r gjson.Result) []string {
	if !r.Exists() {
		return nil
	}
	if r.Type == gjson.String {
		var out []string
		for _, part := range strings.Split(r.String(), ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	var out []string
	for _, item := range r.Array() {
		s := item.String()
		if item.IsObject() {
			s = first(item, "rule", "text", "description", "name").String()
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func penalties(r gjson.Result) []Penalty {
	var out []Penalty
	for _, p := range r.Array() {
		if p.Type == gjson.String {
			out = append(out, Penalty{Violation: p.String(), Severity: SeverityModerate})
			continue
		}
		v := first(p, "violation", "offense", "law").String()
		if v == "" {
			continue
		}
		out = append(out, Penalty{
			Violation: v,
			Penalty:   first(p, "penalty", "consequence", "fine").String(),
			Severity:  ParseSeverity(p.Get("severity").String()),
		})
	}
	return out
}
