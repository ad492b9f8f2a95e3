package snapshot

import (
	"encoding/json"
	"math"
)

// TotalRows counts the captured rows across all tables.
func (d *Document) TotalRows() int {
	total := 0
	for _, t := range d.Tables {
		total += len(t.Data)
	}
	return total
}

// ComputeStatistics measures the document as it stands. The size estimate is the
// compact JSON encoding, taken before statistics are attached.
func ComputeStatistics(d *Document) (Statistics, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return Statistics{}, err
	}
	size := int64(len(b))
	return Statistics{
		TotalTables:        len(d.Tables),
		TotalRows:          d.TotalRows(),
		EstimatedSizeBytes: size,
		EstimatedSizeMB:    math.Round(float64(size)/(1024*1024)*100) / 100,
	}, nil
}
