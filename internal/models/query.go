package models

import "fmt"

// SearchMode names one of the query shapes the search handler accepts.
type SearchMode string

const (
	ModeText       SearchMode = "text"
	ModeImage      SearchMode = "image"
	ModeMultimodal SearchMode = "multimodal"
	ModeSimilar    SearchMode = "similar"
)

// SearchQuery is a search request. Text and Image are the raw inputs; ItemID is
// used only by ModeSimilar.
type SearchQuery struct {
	Mode        SearchMode `json:"mode"`
	Text        string     `json:"text,omitempty"`
	Image       []byte     `json:"-"`
	ItemID      string     `json:"item_id,omitempty"`
	TopK        int        `json:"top_k,omitempty"`
	Threshold   *float64   `json:"threshold,omitempty"`
	ExcludeSelf *bool      `json:"exclude_self,omitempty"`
}

// Normalize fills TopK and Threshold from the given defaults and caps TopK at maxTopK.
// Returns an error if the mode is unknown or the threshold is outside [-1, 1].
func (q *SearchQuery) Normalize(defaultTopK, maxTopK int, defaultThreshold float64) error {
	switch q.Mode {
	case ModeText, ModeImage, ModeMultimodal, ModeSimilar:
	case "":
		return fmt.Errorf("mode is required")
	default:
		return fmt.Errorf("unknown search mode: %s", q.Mode)
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	if q.Threshold == nil {
		t := defaultThreshold
		q.Threshold = &t
	}
	if *q.Threshold < -1 || *q.Threshold > 1 {
		return fmt.Errorf("threshold must be within [-1, 1], got %g", *q.Threshold)
	}
	return nil
}

// ThresholdOrDefault returns the threshold, or 0 (every non-negative score,
// the store's default) when unset. Normalize fills it from configuration first.
func (q *SearchQuery) ThresholdOrDefault() float64 {
	if q.Threshold != nil {
		return *q.Threshold
	}
	return 0
}

// ExcludeSelfOrDefault returns whether a similar-item query drops the query item; defaults to true when unset.
func (q *SearchQuery) ExcludeSelfOrDefault() bool {
	if q.ExcludeSelf != nil {
		return *q.ExcludeSelf
	}
	return true
}
