package content

import (
	"fmt"
	"maps"
	"regexp"
	"time"
)

// Content types stored in the knowledge base.
const (
	TypeDestination = "destination"
	TypeCity        = "city"
	TypeLocation    = "location"
	TypeGuide       = "guide"
)

// DestinationTypes are the content types the search engine materializes as destinations.
var DestinationTypes = []string{TypeDestination, TypeCity, TypeLocation}

// Filterable field names. Metadata keys listed in IndexedMetadata are also
// stored as top-level tag fields so filters can address them.
const (
	FieldContentType = "content_type"
	MetaCountry      = "country"
	MetaRegion       = "region"
	MetaCostLevel    = "cost_level"
	MetaSource       = "source"
	// MetaRecord holds the serialized structured entity behind a prose record.
	MetaRecord = "record"
)

// IndexedMetadata lists metadata keys exposed to filters.
var IndexedMetadata = []string{MetaCountry, MetaRegion, MetaCostLevel}

// MaxContentSize is the maximum record content size in bytes.
const MaxContentSize = 262144

var keyRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Record is one logical knowledge-base entity. ContentID+ContentType identify it
// across its update history; ID is assigned on first store and never changes.
type Record struct {
	id          string
	contentID   string
	contentType string
	title       string
	content     string
	metadata    map[string]string
	embedding   []float32
	createdAt   time.Time
	updatedAt   time.Time
}

// New validates and creates an unsaved Record.
func New(contentID, contentType, title, body string, metadata map[string]string) (Record, error) {
	if contentID == "" {
		return Record{}, fmt.Errorf("content id is required")
	}
	if !keyRegex.MatchString(contentID) {
		return Record{}, fmt.Errorf("content id must be alphanumeric with dots, underscores and hyphens")
	}
	if !keyRegex.MatchString(contentType) {
		return Record{}, fmt.Errorf("content type %q is invalid", contentType)
	}
	if title == "" && body == "" {
		return Record{}, fmt.Errorf("title or content is required")
	}
	if len(body) > MaxContentSize {
		return Record{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	return Record{
		contentID:   contentID,
		contentType: contentType,
		title:       title,
		content:     body,
		metadata:    maps.Clone(metadata),
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(
	id, contentID, contentType, title, body string, metadata map[string]string,
	embedding []float32, createdAt, updatedAt time.Time,
) Record {
	return Record{
		id: id, contentID: contentID, contentType: contentType,
		title: title, content: body, metadata: metadata,
		embedding: embedding, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the store-assigned identifier.
func (r *Record) ID() string { return r.id }

// ContentID returns the logical entity identifier.
func (r *Record) ContentID() string { return r.contentID }

// ContentType returns the entity type.
func (r *Record) ContentType() string { return r.contentType }

// Key returns the logical identity "contentType:contentID".
func (r *Record) Key() string { return Key(r.contentType, r.contentID) }

// Title returns the record title.
func (r *Record) Title() string { return r.title }

// Content returns the record body, often a serialized structured entity.
func (r *Record) Content() string { return r.content }

// Metadata returns the metadata map.
func (r *Record) Metadata() map[string]string { return r.metadata }

// Embedding returns the stored vector.
func (r *Record) Embedding() []float32 { return r.embedding }

// CreatedAt returns the first-store time.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last-store time.
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// FilterFields returns the values filters match against: the content type
// plus every metadata entry.
func (r *Record) FilterFields() map[string]string {
	fields := make(map[string]string, len(r.metadata)+1)
	maps.Copy(fields, r.metadata)
	fields[FieldContentType] = r.contentType
	return fields
}

// EmbeddingText is the text that gets vectorized.
func (r *Record) EmbeddingText() string { return EmbeddingText(r.title, r.content) }

// SameText reports whether other carries identical embedding text.
func (r *Record) SameText(other *Record) bool {
	return r.title == other.title && r.content == other.content
}

// WithIdentity returns a copy with id and timestamps set.
func (r Record) WithIdentity(id string, createdAt, updatedAt time.Time) Record {
	r.id = id
	r.createdAt = createdAt
	r.updatedAt = updatedAt
	return r
}

// WithEmbedding returns a copy carrying the given vector.
func (r Record) WithEmbedding(v []float32) Record {
	r.embedding = v
	return r
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title    *string
	Content  *string
	Metadata map[string]string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && len(p.Metadata) == 0
}

// Apply returns a patched copy and whether the embedding text changed.
func (r Record) Apply(p Patch) (Record, bool) {
	changed := false
	if p.Title != nil && *p.Title != r.title {
		r.title = *p.Title
		changed = true
	}
	if p.Content != nil && *p.Content != r.content {
		r.content = *p.Content
		changed = true
	}
	if len(p.Metadata) > 0 {
		merged := maps.Clone(r.metadata)
		if merged == nil {
			merged = make(map[string]string, len(p.Metadata))
		}
		maps.Copy(merged, p.Metadata)
		r.metadata = merged
	}
	return r, changed
}

// Key builds the logical identity for a content type and id.
func Key(contentType, contentID string) string {
	return contentType + ":" + contentID
}

// EmbeddingText joins title and body the way records are vectorized.
func EmbeddingText(title, body string) string {
	switch {
	case title == "":
		return body
	case body == "":
		return title
	default:
		return title + "\n\n" + body
	}
}

// Hit is a search result. Similarity is in [0,1]; Lexical marks text-match fallback hits.
type Hit struct {
	Record     Record
	Similarity float64
	Lexical    bool
}
