package domain

// KeyPrefix namespaces every Redis key this service writes.
const KeyPrefix = "nebula:"

// Movie mirrors the metadata the ingestion pipeline attaches to every vector.
type Movie struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Poster           string  `json:"poster,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	Rating           float64 `json:"rating"`
	Genres           string  `json:"genres,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	Year             int     `json:"year,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Popularity       float64 `json:"popularity"`
}

// Node is a single movie in a search or graph response. Val sizes the node
// in the frontend visualization. The raw vector never leaves the process.
type Node struct {
	Movie
	Score  float64   `json:"score"`
	Val    float64   `json:"val"`
	Vector []float32 `json:"-"`
}

// Edge is a similarity link between two nodes, one per unordered pair.
// Value duplicates Similarity for force-graph consumers that read "value".
type Edge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Value      float64 `json:"value"`
	Similarity float64 `json:"similarity"`
}

// SearchResponse is the assembled search payload. It is also the value
// stored in the response cache, so the JSON shape is the cache format.
type SearchResponse struct {
	Nodes        []Node `json:"nodes"`
	Links        []Edge `json:"links"`
	Query        string `json:"query"`
	TotalResults int    `json:"totalResults"`
	Cached       bool   `json:"cached"`
}

// BrowseResponse is a paginated movie listing.
type BrowseResponse struct {
	Movies  []Movie `json:"movies"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
	HasMore bool    `json:"hasMore"`
}
