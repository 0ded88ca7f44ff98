package models

// SearchResponse is the response for a search request.
// Results are ordered by similarity descending; ties keep catalog order.
type SearchResponse struct {
	Mode      SearchMode `json:"mode"`
	Query     string     `json:"query,omitempty"`
	ItemID    string     `json:"item_id,omitempty"`
	TopK      int        `json:"top_k"`
	Threshold float64    `json:"threshold"`
	Results   []Match    `json:"results"`
	Total     int        `json:"total"`
	QueryTime int64      `json:"query_time_ms"`
}
