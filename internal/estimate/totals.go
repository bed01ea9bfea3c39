package estimate

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/vbonduro/feestatement/internal/domain"
)

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Profit   float64 `json:"profit"`
	Total    float64 `json:"total"`
}

// CalculateTotals derives subtotal, profit and total from the line items and
// a margin expressed as a percentage (20 means 20%).
func CalculateTotals(items []domain.FeeItem, profitMargin float64) Totals {
	subtotal := lo.Reduce(items, func(acc decimal.Decimal, item domain.FeeItem, _ int) decimal.Decimal {
		return acc.Add(toDecimal(item.Total))
	}, decimal.Zero).Round(2)

	profit := subtotal.Mul(toDecimal(profitMargin)).Div(hundred).Round(2)

	return Totals{
		Subtotal: fromDecimal(subtotal),
		Profit:   fromDecimal(profit),
		Total:    fromDecimal(subtotal.Add(profit).Round(2)),
	}
}

// MarkUp applies the profit margin to a customer-facing amount.
func MarkUp(amount, profitMargin float64) float64 {
	factor := decimal.NewFromInt(1).Add(toDecimal(profitMargin).Div(hundred))
	return fromDecimal(toDecimal(amount).Mul(factor).Round(2))
}

// CustomerLine is a line item as the customer sees it: the margin is folded
// into the unit price and total.
type CustomerLine struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// CustomerView is the customer-facing statement. It never exposes the
// subtotal/profit split.
type CustomerView struct {
	Lines []CustomerLine `json:"lines"`
	Total float64        `json:"total"`
}

// CustomerLines marks up every line by the profit margin. Total is the
// statement total, so the customer figure always matches the internal one.
func CustomerLines(items []domain.FeeItem, profitMargin float64) CustomerView {
	return CustomerView{
		Lines: lo.Map(items, func(item domain.FeeItem, _ int) CustomerLine {
			return CustomerLine{
				Category:    item.Category,
				Description: item.Description,
				Unit:        item.Unit,
				Quantity:    item.Quantity,
				UnitPrice:   MarkUp(item.UnitPrice, profitMargin),
				Total:       MarkUp(item.Total, profitMargin),
			}
		}),
		Total: CalculateTotals(items, profitMargin).Total,
	}
}
