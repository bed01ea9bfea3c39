package estimate

import "github.com/vbonduro/feestatement/internal/domain"

// ComputeArea returns d with its derived square footage recomputed from the
// dimension fields. Missing dimensions are zero, which yields zero area.
func ComputeArea(d domain.ProjectDetails) domain.ProjectDetails {
	if d.ProjectType.IsSplit() {
		d.FinishedSqft = footprint(d.FinishedWidth, d.FinishedLength)
		d.UnfinishedSqft = footprint(d.UnfinishedWidth, d.UnfinishedLength)
		d.Sqft = fromDecimal(toDecimal(d.FinishedSqft).Add(toDecimal(d.UnfinishedSqft)).Round(2))
		return d
	}
	d.Sqft = footprint(d.Width, d.Length)
	d.FinishedSqft = 0
	d.UnfinishedSqft = 0
	return d
}

func footprint(width, length float64) float64 {
	return LineTotal(width, length)
}
