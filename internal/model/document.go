package model

// Metadata is an open key-value mapping attached to documents and chunks.
// No schema is enforced here; values are whatever the caller submitted as JSON.
type Metadata map[string]interface{}

// Clone returns a shallow copy so callers can extend metadata without
// mutating the source map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+4)
	for k, v := range m {
		out[k] = v
	}
	return out
}

type Document struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Ctime    int64    `json:"ctime"`
	Mtime    int64    `json:"mtime"`
}

// Chunk is the unit actually indexed and retrieved. Every chunk carries a
// back-reference to its parent document and inherits the parent metadata
// plus its own chunk_index.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Metadata   Metadata  `json:"metadata"`
	Embedding  []float32 `json:"-"`
	// Seq is the global indexing order. Equal-score retrieval hits are
	// tie-broken on it so rank numbers stay reproducible.
	Seq int64 `json:"-"`
}
