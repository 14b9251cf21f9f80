package destination

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/domain"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	domdest "github.com/kailas-cloud/tripwise/internal/domain/destination"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/source"
	"github.com/kailas-cloud/tripwise/internal/usecase/acquisition"
	"github.com/kailas-cloud/tripwise/internal/usecase/genai"
	qualityuc "github.com/kailas-cloud/tripwise/internal/usecase/quality"
)

// --- Mocks ---

type mockAcquirer struct {
	dest     domdest.Destination
	acquired []string
	stored   []domdest.Destination
	storeErr error
}

func (m *mockAcquirer) Acquire(_ context.Context, city, country string) domdest.Destination {
	m.acquired = append(m.acquired, city+"|"+country)
	d := m.dest
	if d.Name == "" {
		d.Name = city
		d.Country = country
	}
	d.ID = domdest.Slug(d.Name, d.Country)
	return d
}

func (m *mockAcquirer) StoreInKnowledgeBase(_ context.Context, d domdest.Destination) (string, error) {
	if m.storeErr != nil {
		return "", m.storeErr
	}
	m.stored = append(m.stored, d)
	return "rec-" + d.ID, nil
}

type mockScorer struct {
	score      float64
	validation float64
	hasRatings bool
}

func (m *mockScorer) Passes(_ *domdest.Destination) (quality.Assessment, bool) {
	return quality.Assessment{Score: m.score, Valid: m.score == 1}, m.score >= 0.6
}

func (m *mockScorer) UserValidation(context.Context, string) (float64, bool) {
	return m.validation, m.hasRatings
}

type mockRecords struct {
	rec domcontent.Record
	err error
}

func (m *mockRecords) GetByKey(context.Context, string, string) (domcontent.Record, error) {
	return m.rec, m.err
}

func storedRecord(t *testing.T, d domdest.Destination) domcontent.Record {
	t.Helper()
	data, err := domdest.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return domcontent.Reconstruct("r1", d.ID, domcontent.TypeDestination, d.Name, d.Prose(),
		map[string]string{domcontent.MetaRecord: string(data)}, nil, d.Quality.LastUpdated, d.Quality.LastUpdated)
}

type downSource struct{ name string }

func (s downSource) Name() string { return s.name }

func (s downSource) Fetch(context.Context, string, string) (source.Fragment, error) {
	return source.Fragment{}, domain.NewSourceError(s.name, 503, domain.ErrSourceUnavailable)
}

type recordingKB struct {
	stored []domcontent.Record
}

func (k *recordingKB) Store(_ context.Context, rec domcontent.Record) (string, error) {
	k.stored = append(k.stored, rec)
	return "rec-" + rec.ContentID(), nil
}

// degradedService wires the real acquisition and scoring path with every
// source down and no generation provider.
func degradedService(kb *recordingKB) *Service {
	acq := acquisition.New(
		[]acquisition.Source{downSource{"wikipedia"}, downSource{"nominatim"}},
		genai.NewChain(zap.NewNop()), kb, time.Second, zap.NewNop())
	return New(acq, qualityuc.New(nil, nil, 0, zap.NewNop()), &mockRecords{}, zap.NewNop())
}

// --- Tests ---

func TestAdd_StoresEvenBelowGate(t *testing.T) {
	acq := &mockAcquirer{}
	svc := New(acq, &mockScorer{score: 0.3}, &mockRecords{}, zap.NewNop())

	res, err := svc.Add(context.Background(), " Pushkar ", "India")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !res.Stored || res.RecordID != "rec-pushkar-india" {
		t.Errorf("unexpected result %+v", res)
	}
	if acq.acquired[0] != "Pushkar|India" {
		t.Errorf("acquired %v", acq.acquired)
	}
}

func TestAdd_RequiresName(t *testing.T) {
	svc := New(&mockAcquirer{}, &mockScorer{}, &mockRecords{}, zap.NewNop())
	if _, err := svc.Add(context.Background(), "  ", "India"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExpand_SkipsBelowGate(t *testing.T) {
	acq := &mockAcquirer{}
	svc := New(acq, &mockScorer{score: 0.5}, &mockRecords{}, zap.NewNop())

	res, err := svc.Expand(context.Background(), "Hampi", "India")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if res.Stored || len(acq.stored) != 0 {
		t.Error("record below gate must not be stored")
	}

	svc = New(acq, &mockScorer{score: 0.8}, &mockRecords{}, zap.NewNop())
	res, _ = svc.Expand(context.Background(), "Hampi", "India")
	if !res.Stored {
		t.Error("record above gate must be stored")
	}
}

func TestAdd_PersistenceError(t *testing.T) {
	acq := &mockAcquirer{storeErr: domain.ErrPersistence}
	svc := New(acq, &mockScorer{score: 1}, &mockRecords{}, zap.NewNop())

	if _, err := svc.Add(context.Background(), "Goa", ""); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestUpdate_KeepsIDAndBumpsVersion(t *testing.T) {
	existing := domdest.Destination{ID: "pushkar", Name: "Pushkar", Country: "India"}
	existing.Normalize()
	existing.Quality.Version = 3
	acq := &mockAcquirer{}
	scorer := &mockScorer{score: 0.9, validation: 1, hasRatings: true}
	svc := New(acq, scorer, &mockRecords{rec: storedRecord(t, existing)}, zap.NewNop())

	res, err := svc.Update(context.Background(), "pushkar")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	d := res.Destination
	if d.ID != "pushkar" {
		t.Errorf("id = %q, want pushkar", d.ID)
	}
	if d.Quality.Version != 4 {
		t.Errorf("version = %d, want 4", d.Quality.Version)
	}
	if d.Quality.Metrics.UserValidation != 1 {
		t.Errorf("user validation = %f", d.Quality.Metrics.UserValidation)
	}
	if acq.acquired[0] != "Pushkar|India" {
		t.Errorf("acquired %v", acq.acquired)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := New(&mockAcquirer{}, &mockScorer{}, &mockRecords{err: domain.ErrNotFound}, zap.NewNop())
	if _, err := svc.Update(context.Background(), "nowhere"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExists(t *testing.T) {
	svc := New(&mockAcquirer{}, &mockScorer{}, &mockRecords{err: domain.ErrNotFound}, zap.NewNop())
	ok, err := svc.Exists(context.Background(), "x")
	if err != nil || ok {
		t.Errorf("got %v %v", ok, err)
	}

	svc = New(&mockAcquirer{}, &mockScorer{}, &mockRecords{err: errors.New("down")}, zap.NewNop())
	if _, err := svc.Exists(context.Background(), "x"); err == nil {
		t.Error("expected error")
	}
}

func TestExpand_DegradedRecordFailsGate(t *testing.T) {
	kb := &recordingKB{}
	svc := degradedService(kb)

	res, err := svc.Expand(context.Background(), "Atlantis", "Nowhere")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if res.Stored || len(kb.stored) != 0 {
		t.Fatalf("record built from placeholders was stored (score %f)", res.Assessment.Score)
	}
	if res.Assessment.Score >= 0.6 || res.Assessment.Valid {
		t.Errorf("assessment = %+v", res.Assessment)
	}
}

func TestAdd_NonLatinNames(t *testing.T) {
	kb := &recordingKB{}
	svc := degradedService(kb)
	idPattern := regexp.MustCompile(`^[a-z0-9-]+$`)

	for _, tc := range [][2]string{{"東京", "日本"}, {"Αθήνα", "Ελλάδα"}, {"Zürich", "Switzerland"}} {
		res, err := svc.Add(context.Background(), tc[0], tc[1])
		if err != nil {
			t.Fatalf("Add(%s): %v", tc[0], err)
		}
		if !res.Stored || !idPattern.MatchString(res.Destination.ID) {
			t.Errorf("Add(%s): stored=%v id=%q", tc[0], res.Stored, res.Destination.ID)
		}
	}
	if got := kb.stored[2].ContentID(); got != "zurich-switzerland" {
		t.Errorf("zurich id = %q", got)
	}
}
