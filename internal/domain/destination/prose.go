package destination

import (
	"fmt"
	"strings"
)

// Prose flattens the structured record into text suitable for embedding.
func (d *Destination) Prose() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", d.Name)
	if d.Region != "" {
		fmt.Fprintf(&b, ", %s", d.Region)
	}
	if d.Country != "" {
		fmt.Fprintf(&b, ", %s", d.Country)
	}
	b.WriteString(".\n")
	if d.Description != "" {
		b.WriteString(d.Description)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Cost level: %s. Safety rating: %.1f/10.\n", d.CostLevel, d.SafetyRating)
	if len(d.Languages) > 0 {
		fmt.Fprintf(&b, "Languages: %s.\n", strings.Join(d.Languages, ", "))
	}

	section(&b, "Attractions", names(d.Attractions, func(a Attraction) string { return a.Name }))
	section(&b, "Laws", concat(d.Laws.PublicBehavior, d.Laws.Photography, d.Laws.Transportation, d.Laws.Shopping))
	section(&b, "Penalties", names(d.Laws.Penalties, func(p Penalty) string {
		return fmt.Sprintf("%s (%s)", p.Violation, p.Severity)
	}))
	section(&b, "Etiquette", concat(d.Culture.Etiquette, d.Culture.DressCode))
	section(&b, "Taboos", d.Culture.Taboos)
	section(&b, "Events", names(d.Events, func(e Event) string { return e.Name }))
	section(&b, "Best months", d.Climate.BestMonths)
	return strings.TrimSpace(b.String())
}

func section(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s.\n", title, strings.Join(items, "; "))
}

func names[T any](items []T, f func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := f(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
