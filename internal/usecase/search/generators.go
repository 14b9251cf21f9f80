package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/kailas-cloud/tripwise/internal/domain"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/destination"
	"github.com/kailas-cloud/tripwise/internal/domain/geo"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
	"github.com/kailas-cloud/tripwise/internal/domain/search/request"
	"github.com/kailas-cloud/tripwise/internal/domain/search/response"
	"github.com/kailas-cloud/tripwise/internal/usecase/genai"
	"github.com/kailas-cloud/tripwise/internal/usecase/vectorstore"
)

// Caps on generated lists.
const (
	maxRecommendations = 8
	maxTips            = 8
	maxSimilar         = 5
)

const recommendSystem = `You are a concise travel advisor. Suggest specific things to do that fit the
traveler's interests and budget. Return JSON: {"recommendations":[{"title":string,"description":string}]}.`

// recommendations mixes model suggestions with the top-rated attractions.
func (s *Service) recommendations(
	ctx context.Context, d *destination.Destination, req request.Request,
) []response.Recommendation {
	res := s.gen.Run(ctx, genai.Task{
		Name: "recommendations",
		Completion: domain.Completion{
			System:      recommendSystem,
			Prompt:      recommendPrompt(d, req),
			JSON:        true,
			MaxTokens:   800,
			Temperature: 0.7,
		},
		Validate: func(obj string) error {
			if !gjson.Get(obj, "recommendations").IsArray() {
				return fmt.Errorf("recommendations array missing")
			}
			return nil
		},
		Fallback: `{"recommendations":[]}`,
	})

	var out []response.Recommendation
	for _, r := range gjson.Get(res.Text, "recommendations").Array() {
		title := strings.TrimSpace(r.Get("title").String())
		if title == "" {
			continue
		}
		out = append(out, response.Recommendation{
			Title:       title,
			Description: r.Get("description").String(),
			Kind:        "suggestion",
		})
	}
	for _, a := range topAttractions(d.Attractions) {
		out = append(out, response.Recommendation{Title: a.Name, Description: a.Description, Kind: "attraction"})
	}
	out = lo.UniqBy(out, func(r response.Recommendation) string { return strings.ToLower(r.Title) })
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	if out == nil {
		out = []response.Recommendation{}
	}
	return out
}

func recommendPrompt(d *destination.Destination, req request.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Traveler request: %s\n", req.Enhanced())
	fmt.Fprintf(&b, "Destination: %s, %s (%s cost)\n", d.Name, d.Country, d.CostLevel)
	if d.Description != "" {
		fmt.Fprintf(&b, "About: %s\n", d.Description)
	}
	if len(d.Attractions) > 0 {
		names := lo.Map(d.Attractions, func(a destination.Attraction, _ int) string { return a.Name })
		fmt.Fprintf(&b, "Known attractions: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("Give up to 5 recommendations.")
	return b.String()
}

// topAttractions orders by rating, keeping input order among equals.
func topAttractions(as []destination.Attraction) []destination.Attraction {
	out := slices.Clone(as)
	slices.SortStableFunc(out, func(a, b destination.Attraction) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	return out
}

// concernKeywords maps a traveler concern onto words to look for in laws.
var concernKeywords = map[string][]string{
	"photography": {"photo", "camera", "drone", "filming"},
	"alcohol":     {"alcohol", "liquor", "drinking", "beer", "wine"},
	"drugs":       {"drug", "narcotic", "cannabis", "marijuana"},
	"dress":       {"dress", "cover", "modest", "clothing"},
	"lgbtq":       {"lgbt", "same-sex", "homosexual"},
	"smoking":     {"smok", "vape", "e-cigarette"},
	"religion":    {"religio", "temple", "mosque", "church", "blasphemy"},
}

// legalAlerts raises every severe penalty as critical, plus warnings for
// laws and lesser penalties matching the traveler's stated concerns.
func legalAlerts(d *destination.Destination, concerns []string) []response.LegalAlert {
	out := []response.LegalAlert{}
	for _, p := range d.Laws.Penalties {
		if p.Severity != destination.SeveritySevere {
			continue
		}
		out = append(out, response.LegalAlert{
			Severity: response.AlertCritical,
			Title:    p.Violation,
			Detail:   fmt.Sprintf("%s is punished severely in %s", p.Violation, d.Name),
			Penalty:  p.Penalty,
		})
	}

	laws := lo.Flatten([][]string{
		d.Laws.PublicBehavior, d.Laws.Photography, d.Laws.Transportation,
		d.Laws.Shopping, d.Laws.Accommodation, d.Laws.Immigration,
	})
	for _, c := range concerns {
		key := strings.ToLower(strings.TrimSpace(c))
		words, ok := concernKeywords[key]
		if !ok {
			words = []string{key}
		}
		if key == "photography" {
			for _, rule := range d.Laws.Photography {
				out = append(out, response.LegalAlert{Severity: response.AlertWarning, Title: "Photography", Detail: rule})
			}
			laws = lo.Without(laws, d.Laws.Photography...)
		}
		for _, rule := range laws {
			if containsAny(strings.ToLower(rule), words) {
				out = append(out, response.LegalAlert{Severity: response.AlertWarning, Title: c, Detail: rule})
			}
		}
		// severe penalties are already critical
		for _, p := range d.Laws.Penalties {
			if p.Severity != destination.SeveritySevere && containsAny(strings.ToLower(p.Violation), words) {
				out = append(out, response.LegalAlert{
					Severity: response.AlertWarning,
					Title:    c,
					Detail:   p.Violation,
					Penalty:  p.Penalty,
				})
			}
		}
	}
	return lo.UniqBy(out, func(a response.LegalAlert) string { return a.Severity + "|" + a.Detail })
}

func containsAny(s string, words []string) bool {
	return lo.SomeBy(words, func(w string) bool { return w != "" && strings.Contains(s, w) })
}

// culturalTips lists taboos as essential, etiquette and dress code as important,
// and the remaining notes as nice to know.
func culturalTips(d *destination.Destination) []response.CulturalTip {
	c := d.Culture
	groups := []struct {
		category, importance string
		items                []string
	}{
		{"taboo", response.TipEssential, c.Taboos},
		{"etiquette", response.TipImportant, c.Etiquette},
		{"dress code", response.TipImportant, c.DressCode},
		{"religious", response.TipNiceToKnow, c.Religious},
		{"social", response.TipNiceToKnow, c.Social},
		{"business", response.TipNiceToKnow, c.Business},
	}
	out := []response.CulturalTip{}
	for _, g := range groups {
		for _, item := range g.items {
			out = append(out, response.CulturalTip{Category: g.category, Tip: item, Importance: g.importance})
		}
	}
	out = lo.UniqBy(out, func(t response.CulturalTip) string { return strings.ToLower(t.Tip) })
	if len(out) > maxTips {
		out = out[:maxTips]
	}
	return out
}

func practicalInfo(d *destination.Destination) response.PracticalInfo {
	p := d.Practical
	if p.EmergencyNumbers == nil {
		p.EmergencyNumbers = map[string]string{}
	}
	if p.Health == nil {
		p.Health = []string{}
	}
	return response.PracticalInfo{
		EmergencyNumbers: p.EmergencyNumbers,
		BusinessHours:    p.BusinessHours,
		Health:           p.Health,
		Connectivity:     p.Connectivity,
		Currency:         d.Currency,
		Tipping:          d.Economy.Tipping,
	}
}

// similar looks for destinations in other countries with the same cost tier.
func (s *Service) similar(ctx context.Context, d *destination.Destination) []response.SimilarDestination {
	costCond, err := filter.NewMatch(domcontent.MetaCostLevel, string(d.CostLevel))
	if err != nil {
		return []response.SimilarDestination{}
	}
	var mustNot []filter.Condition
	if d.Country != "" {
		if c, err := filter.NewMatch(domcontent.MetaCountry, strings.ToLower(d.Country)); err == nil {
			mustNot = append(mustNot, c)
		}
	}
	types := filter.ContentTypes(domcontent.FieldContentType, domcontent.DestinationTypes...)
	expr, err := filter.NewExpression([]filter.Condition{costCond}, types.Should(), mustNot)
	if err != nil {
		return []response.SimilarDestination{}
	}

	hits := s.retriever.SearchSimilar(ctx, vectorstore.Query{
		Text:      fmt.Sprintf("%s %s", d.Name, d.Description),
		Filters:   expr,
		Limit:     maxSimilar + 1,
		Threshold: s.cfg.Threshold,
	})

	out := []response.SimilarDestination{}
	for i := range hits {
		alt, _ := destination.FromRecord(&hits[i].Record)
		if alt.ID == d.ID || strings.EqualFold(alt.Country, d.Country) {
			continue
		}
		sd := response.SimilarDestination{
			ID:         alt.ID,
			Name:       alt.Name,
			Country:    alt.Country,
			CostLevel:  alt.CostLevel,
			Similarity: hits[i].Similarity,
		}
		if d.Coordinates.Valid() && alt.Coordinates.Valid() {
			sd.DistanceKm = geo.DistanceKm(d.Coordinates, alt.Coordinates)
		}
		out = append(out, sd)
		if len(out) == maxSimilar {
			break
		}
	}
	return out
}
