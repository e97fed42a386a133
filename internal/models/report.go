package models

// HeaderCount is a header name paired with the number of responses that
// contained it at least once.
type HeaderCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	// Percent is Count as a share of the analyzed responses, in [0,100].
	Percent float64 `json:"percent"`
}

// AnalysisReport is the derived statistics for one batch
type AnalysisReport struct {
	TopN            []HeaderCount `json:"top_n"`
	RequestedTopN   int           `json:"requested_top_n"`
	CoveragePercent float64       `json:"coverage_percent"`
	// CoveredCount is the number of responses containing every TopN header.
	CoveredCount int `json:"covered_count"`
	BatchSize    int `json:"batch_size"`
	// DistinctHeaders is the number of distinct header names seen in the batch.
	DistinctHeaders int `json:"distinct_headers"`
}

// Names returns the header names of TopN in rank order
func (r *AnalysisReport) Names() []string {
	names := make([]string, len(r.TopN))
	for i, hc := range r.TopN {
		names[i] = hc.Name
	}
	return names
}
