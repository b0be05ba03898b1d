// Package engine implements the online query pipeline: embed, retrieve,
// rerank, expand context, dedup per book, and trim.
package engine

// Request carries one semantic search invocation.
type Request struct {
	Query         string `json:"query"`
	Topic         string `json:"topic,omitempty"`
	Book          string `json:"book,omitempty"` // exact filename filter within the topic
	K             int    `json:"k,omitempty"`
	Rerank        bool   `json:"rerank,omitempty"`
	ContextWindow int    `json:"context_window"`
	MaxPerBook    int    `json:"max_per_book"` // 0 disables the per-book cap
	ExpandQuery   bool   `json:"expand_query,omitempty"`
}

// Context holds the chunks adjacent to a result within the same book.
type Context struct {
	Before []string `json:"before"`
	After  []string `json:"after"`
}

// Result is one ranked passage returned to the caller.
type Result struct {
	Text         string  `json:"text"`
	BookTitle    string  `json:"book_title"`
	BookAuthor   string  `json:"book_author"`
	Topic        string  `json:"topic"`
	Similarity   float64 `json:"similarity"`
	Score        float64 `json:"score"` // rerank score when reranked, else similarity
	Filename     string  `json:"filename"`
	FolderPath   string  `json:"folder_path"` // topic directory relative to the library root
	RelativePath string  `json:"relative_path"`
	Location     string  `json:"location"`
	Page         *int    `json:"page,omitempty"`
	Chapter      *string `json:"chapter,omitempty"`
	Paragraph    int     `json:"paragraph"`
	Format       string  `json:"format"`
	Context      Context `json:"context"`
	SourceTopic  string  `json:"source_topic,omitempty"` // set by multi-topic search
}

// Diagnostics describes how a query was executed.
type Diagnostics struct {
	Query            string         `json:"query"`
	ExpandedQuery    string         `json:"expanded_query,omitempty"`
	Topic            string         `json:"topic,omitempty"`
	TopicsSearched   []string       `json:"topics_searched,omitempty"`
	TotalRetrieved   int            `json:"total_retrieved"`
	Returned         int            `json:"returned"`
	Reranked         bool           `json:"reranked"`
	ContextWindow    int            `json:"context_window"`
	MaxPerBook       int            `json:"max_per_book"`
	BookDistribution map[string]int `json:"book_distribution,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// Response bundles results with their diagnostics.
type Response struct {
	Results     []Result    `json:"results"`
	Diagnostics Diagnostics `json:"diagnostics"`
}
