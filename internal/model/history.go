package model

// HistoryEntry is one record of the append-only query log.
type HistoryEntry struct {
	Query           string   `json:"query"`
	Answer          string   `json:"answer"`
	Sources         []Source `json:"sources"`
	RetrievalMethod string   `json:"retrieval_method"`
	Timestamp       int64    `json:"timestamp"`
}
