// Package export renders a statement as PDF, XLSX or CSV, either as the
// internal breakdown or as the customer-facing marked-up view.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/vbonduro/feestatement/internal/domain"
	"github.com/vbonduro/feestatement/internal/estimate"
)

type View string

const (
	ViewInternal View = "internal"
	ViewCustomer View = "customer"
)

// ParseView accepts "internal" or "customer"; empty means internal.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewInternal:
		return ViewInternal, nil
	case ViewCustomer:
		return ViewCustomer, nil
	}
	return "", fmt.Errorf("unknown export view %q", s)
}

// Document is everything an export needs to render one statement.
type Document struct {
	Company      string
	ProjectID    string
	VersionID    int64
	Date         time.Time
	View         View
	Details      domain.ProjectDetails
	Items        []domain.FeeItem
	ProfitMargin float64
}

type Line struct {
	Category    string
	Description string
	Unit        string
	Quantity    float64
	UnitPrice   float64
	Total       float64
}

type section struct {
	Category string
	Lines    []Line
	Total    float64
}

// lines returns the rows to print. The customer view has the margin folded
// into every price.
func (d Document) lines() []Line {
	if d.View == ViewCustomer {
		return lo.Map(estimate.CustomerLines(d.Items, d.ProfitMargin).Lines, func(l estimate.CustomerLine, _ int) Line {
			return Line(l)
		})
	}
	return lo.Map(d.Items, func(it domain.FeeItem, _ int) Line {
		return Line{
			Category:    it.Category,
			Description: it.Description,
			Unit:        it.Unit,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		}
	})
}

// sections groups lines by category in first-seen order.
func (d Document) sections() []section {
	all := d.lines()
	categories := lo.Uniq(lo.Map(all, func(l Line, _ int) string { return l.Category }))
	grouped := lo.GroupBy(all, func(l Line) string { return l.Category })
	return lo.Map(categories, func(c string, _ int) section {
		ls := grouped[c]
		return section{
			Category: c,
			Lines:    ls,
			Total:    estimate.Round2(lo.SumBy(ls, func(l Line) float64 { return l.Total })),
		}
	})
}

func (d Document) totals() estimate.Totals {
	return estimate.CalculateTotals(d.Items, d.ProfitMargin)
}

func (d Document) title() string {
	if d.Details.ProjectName != "" {
		return d.Details.ProjectName
	}
	return fmt.Sprintf("Project %s", d.ProjectID)
}

func (d Document) date() string {
	if d.Date.IsZero() {
		return time.Now().Format("January 2, 2006")
	}
	return d.Date.Format("January 2, 2006")
}

type summaryRow struct {
	label string
	value float64
}

// summary lists the closing rows. Customers only ever see the total.
func (d Document) summary() []summaryRow {
	t := d.totals()
	if d.View == ViewCustomer {
		return []summaryRow{{"Total", t.Total}}
	}
	return []summaryRow{
		{"Subtotal", t.Subtotal},
		{fmt.Sprintf("Profit (%s%%)", quantity(d.ProfitMargin)), t.Profit},
		{"Total", t.Total},
	}
}

// Reference is the payload of the QR code printed on PDFs.
type Reference struct {
	ProjectID string  `json:"projectId"`
	VersionID int64   `json:"versionId,omitempty"`
	Total     float64 `json:"total"`
}

func (d Document) reference() Reference {
	return Reference{ProjectID: d.ProjectID, VersionID: d.VersionID, Total: d.totals().Total}
}

func money(v float64) string {
	neg := v < 0
	s := fmt.Sprintf("%.2f", estimate.Round2(lo.Ternary(neg, -v, v)))
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return lo.Ternary(neg, "-$", "$") + b.String() + "." + frac
}

func quantity(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s
}
