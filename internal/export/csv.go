package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

type csvRecord struct {
	Category    string  `csv:"category"`
	Description string  `csv:"description"`
	Unit        string  `csv:"unit"`
	Quantity    float64 `csv:"quantity"`
	UnitPrice   float64 `csv:"unit_price"`
	Total       float64 `csv:"total"`
}

// CSV writes one row per line item. Text cells are guarded against formula
// injection the same way as the spreadsheet export.
func CSV(w io.Writer, doc Document) error {
	records := lo.Map(doc.lines(), func(l Line, _ int) *csvRecord {
		return &csvRecord{
			Category:    sanitizeCell(l.Category),
			Description: sanitizeCell(l.Description),
			Unit:        sanitizeCell(l.Unit),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
		}
	})
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
