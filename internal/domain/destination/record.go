package destination

import (
	"strings"

	"github.com/kailas-cloud/tripwise/internal/domain/content"
)

// FromRecord materializes a destination from a stored content record.
// Records carrying the structured entity decode directly; legacy records whose
// body is an older JSON shape are upgraded; plain prose becomes a minimal record.
// Legacy reports whether conservative defaults had to be applied.
func FromRecord(rec *content.Record) (d Destination, legacy bool) {
	if raw := rec.Metadata()[content.MetaRecord]; raw != "" {
		if dec, err := Decode([]byte(raw)); err == nil {
			d, legacy = dec, IsLegacy([]byte(raw))
		}
	}
	if d.Name == "" {
		body := strings.TrimSpace(rec.Content())
		if strings.HasPrefix(body, "{") {
			if dec, err := Decode([]byte(body)); err == nil {
				d, legacy = dec, IsLegacy([]byte(body))
			}
		}
	}
	if d.Name == "" {
		d = Destination{
			Name:        rec.Title(),
			Country:     rec.Metadata()[content.MetaCountry],
			Region:      rec.Metadata()[content.MetaRegion],
			Description: rec.Content(),
			CostLevel:   ParseCostLevel(rec.Metadata()[content.MetaCostLevel]),
		}
		d.ApplyConservativeDefaults()
		legacy = true
	}

	d.ID = rec.ContentID()
	if d.Quality.LastUpdated.IsZero() {
		d.Quality.LastUpdated = rec.UpdatedAt()
	}
	d.Normalize()
	return d, legacy
}
