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

// DefaultWikipediaURL is the REST API root for English Wikipedia.
const DefaultWikipediaURL = "https://en.wikipedia.org/api/rest_v1"

// Wikipedia reads page summaries from the Wikipedia REST API.
type Wikipedia struct {
	base   string
	client *client
	now    func() time.Time
}

// NewWikipedia creates the encyclopedia source.
func NewWikipedia(baseURL string, cfg ClientConfig) *Wikipedia {
	if baseURL == "" {
		baseURL = DefaultWikipediaURL
	}
	return &Wikipedia{
		base:   strings.TrimRight(baseURL, "/"),
		client: newClient("wikipedia", cfg),
		now:    time.Now,
	}
}

// Name returns the source name.
func (w *Wikipedia) Name() string { return "wikipedia" }

// Fetch returns the page summary for city.
func (w *Wikipedia) Fetch(ctx context.Context, city, _ string) (source.Fragment, error) {
	title := strings.ReplaceAll(strings.TrimSpace(city), " ", "_")
	if title == "" {
		return source.Fragment{}, fmt.Errorf("city is required: %w", domain.ErrInvalidInput)
	}
	endpoint := w.base + "/page/summary/" + url.PathEscape(title)

	body, err := w.client.get(ctx, endpoint)
	if err != nil {
		return source.Fragment{}, err
	}
	if !gjson.ValidBytes(body) {
		return source.Fragment{}, domain.NewSourceError(w.Name(), 0, fmt.Errorf("invalid JSON"))
	}

	doc := gjson.ParseBytes(body)
	if doc.Get("type").String() == "disambiguation" {
		return source.Fragment{}, domain.NewSourceError(w.Name(), 0, fmt.Errorf("%q is ambiguous", city))
	}

	frag := source.Fragment{
		Source: source.DataSource{
			Name:        w.Name(),
			Type:        source.TypeEncyclopedia,
			URL:         doc.Get("content_urls.desktop.page").String(),
			LastFetched: w.now().UTC(),
			Reliability: 0.8,
		},
		Title:   doc.Get("title").String(),
		Summary: doc.Get("extract").String(),
		Facts:   map[string]string{},
	}
	if d := doc.Get("description").String(); d != "" {
		frag.Facts["description"] = d
	}
	if c := doc.Get("coordinates"); c.Exists() {
		coords := geo.Coordinates{Lat: c.Get("lat").Float(), Lng: c.Get("lon").Float()}
		if coords.Valid() {
			frag.Coordinates = &coords
		}
	}
	return frag, nil
}
