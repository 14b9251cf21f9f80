package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kailas-cloud/tripwise/internal/domain"
	"github.com/kailas-cloud/tripwise/internal/domain/geo"
	"github.com/kailas-cloud/tripwise/internal/domain/source"
)

// DefaultNominatimURL is the public OpenStreetMap geocoder.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim geocodes a city through the OpenStreetMap Nominatim search API.
type Nominatim struct {
	base   string
	client *client
	now    func() time.Time
}

// NewNominatim creates the geocoding source.
func NewNominatim(baseURL string, cfg ClientConfig) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Nominatim{
		base:   strings.TrimRight(baseURL, "/"),
		client: newClient("nominatim", cfg),
		now:    time.Now,
	}
}

// Name returns the source name.
func (n *Nominatim) Name() string { return "nominatim" }

// Fetch returns coordinates, country and region for the best match.
func (n *Nominatim) Fetch(ctx context.Context, city, country string) (source.Fragment, error) {
	q := strings.TrimSpace(city)
	if q == "" {
		return source.Fragment{}, fmt.Errorf("city is required: %w", domain.ErrInvalidInput)
	}
	if country != "" {
		q += ", " + country
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	params.Set("accept-language", "en")

	body, err := n.client.get(ctx, n.base+"/search?"+params.Encode())
	if err != nil {
		return source.Fragment{}, err
	}
	if !gjson.ValidBytes(body) {
		return source.Fragment{}, domain.NewSourceError(n.Name(), 0, fmt.Errorf("invalid JSON"))
	}

	top := gjson.GetBytes(body, "0")
	if !top.Exists() {
		return source.Fragment{}, domain.NewSourceError(n.Name(), 0, fmt.Errorf("no match for %q", q))
	}

	frag := source.Fragment{
		Source: source.DataSource{
			Name:        n.Name(),
			Type:        source.TypeGeocoding,
			URL:         n.base,
			LastFetched: n.now().UTC(),
			Reliability: 0.9,
		},
		Title:   top.Get("name").String(),
		Country: top.Get("address.country").String(),
		Region:  firstNonEmpty(top.Get("address.state").String(), top.Get("address.region").String()),
		Facts:   map[string]string{},
	}
	if dn := top.Get("display_name").String(); dn != "" {
		frag.Facts["display_name"] = dn
	}
	if cc := top.Get("address.country_code").String(); cc != "" {
		frag.Facts["country_code"] = strings.ToUpper(cc)
	}
	coords := geo.Coordinates{Lat: top.Get("lat").Float(), Lng: top.Get("lon").Float()}
	if coords.Valid() {
		frag.Coordinates = &coords
	}
	return frag, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
