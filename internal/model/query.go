package model

const (
	RetrievalSemantic = "semantic"
	RetrievalHybrid   = "hybrid"
)

// Source is one retrieved chunk returned alongside an answer. Score is
// normalized to [0,1].
type Source struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}

type QueryResult struct {
	Query           string   `json:"query"`
	Answer          string   `json:"answer"`
	Sources         []Source `json:"sources"`
	RetrievalMethod string   `json:"retrieval_method"`
}
