package content

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kailas-cloud/tripwise/internal/db"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
)

// Hash field names.
const (
	fieldID        = "id"
	fieldContentID = "content_id"
	fieldTitle     = "title"
	fieldContent   = "content"
	fieldMetadata  = "metadata"
	fieldVector    = "vector"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// returnFields excludes the raw vector from search replies.
var returnFields = []string{
	fieldID, fieldContentID, domcontent.FieldContentType, fieldTitle, fieldContent,
	fieldMetadata, fieldCreatedAt, fieldUpdatedAt,
}

func buildIndex(name, prefix string, dim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(name).
		Prefix(prefix).
		Tag(fieldID).
		Tag(fieldContentID).
		Tag(domcontent.FieldContentType)
	for _, k := range domcontent.IndexedMetadata {
		b = b.Tag(k)
	}
	return b.
		Text(fieldTitle).
		SortableNumeric(fieldUpdatedAt).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		Build()
}

func buildHashFields(rec *domcontent.Record) (map[string]string, error) {
	meta, err := json.Marshal(rec.Metadata())
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	m := map[string]string{
		fieldID:                     rec.ID(),
		fieldContentID:              rec.ContentID(),
		domcontent.FieldContentType: rec.ContentType(),
		fieldTitle:                  rec.Title(),
		fieldContent:                rec.Content(),
		fieldMetadata:               string(meta),
		fieldVector:                 vectorToBytes(rec.Embedding()),
		fieldCreatedAt:              strconv.FormatInt(rec.CreatedAt().UnixMilli(), 10),
		fieldUpdatedAt:              strconv.FormatInt(rec.UpdatedAt().UnixMilli(), 10),
	}
	for _, k := range domcontent.IndexedMetadata {
		if v, ok := rec.Metadata()[k]; ok && v != "" {
			m[k] = v
		}
	}
	return m, nil
}

func parseHashFields(m map[string]string) (domcontent.Record, error) {
	var meta map[string]string
	if raw := m[fieldMetadata]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return domcontent.Record{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return domcontent.Reconstruct(
		m[fieldID], m[fieldContentID], m[domcontent.FieldContentType],
		m[fieldTitle], m[fieldContent], meta,
		bytesToVector(m[fieldVector]),
		parseMillis(m[fieldCreatedAt]), parseMillis(m[fieldUpdatedAt]),
	), nil
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
