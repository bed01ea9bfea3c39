package estimate

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vbonduro/feestatement/internal/domain"
)

// Unit strings the rule table dispatches on.
const (
	UnitSqFt           = "sq ft"
	UnitFinishedSqFt   = "finished sq ft"
	UnitUnfinishedSqFt = "unfinished sq ft"
	UnitAcre           = "acre"
	UnitEach           = "each"
	UnitLinearFt       = "linear ft"
)

const excavationFactor = 1.1

// Rule pairs a predicate over an item with the source of its quantity.
type Rule struct {
	Name     string
	Matches  func(item domain.FeeItem, d domain.ProjectDetails) bool
	Quantity func(item domain.FeeItem, d domain.ProjectDetails) float64
}

var (
	footprintKeywords  = []string{"structure", "frame", "siding", "roofing", "site prep", "slab", "vapor barrier", "commercial electrical", "hvac", "fire"}
	excavationKeywords = []string{"excavation", "grading"}
	perFloorKeywords   = []string{"drywall", "paint", "flooring"}
	walkDoorKeywords   = []string{"walk-in door", "walk door", "entry door"}
	fixedEachKeywords  = []string{"permit", "impact fee", "inspection", "project manager", "septic", "electrical panel"}
)

// Rules is evaluated top to bottom; the first match decides the quantity.
// Unit-based rules come before description-only rules.
var Rules = []Rule{
	{
		Name: "sq-ft-footprint",
		Matches: func(item domain.FeeItem, d domain.ProjectDetails) bool {
			if !unitIs(item, UnitSqFt) {
				return false
			}
			if describes(item, footprintKeywords...) {
				return true
			}
			return d.ProjectType == domain.ProjectTypeGarage && describes(item, "basic electrical")
		},
		Quantity: func(_ domain.FeeItem, d domain.ProjectDetails) float64 { return d.Sqft },
	},
	{
		Name: "sq-ft-excavation",
		Matches: func(item domain.FeeItem, _ domain.ProjectDetails) bool {
			return unitIs(item, UnitSqFt) && describes(item, excavationKeywords...)
		},
		Quantity: func(_ domain.FeeItem, d domain.ProjectDetails) float64 {
			return fromDecimal(toDecimal(d.Sqft).Mul(decimal.NewFromFloat(excavationFactor)))
		},
	},
	{
		Name: "finished-sq-ft",
		Matches: func(item domain.FeeItem, _ domain.ProjectDetails) bool {
			return unitIs(item, UnitFinishedSqFt)
		},
		Quantity: func(item domain.FeeItem, d domain.ProjectDetails) float64 {
			// Finish trades cover both floors; rough-in and insulation do not.
			if d.Floors == 2 && describes(item, perFloorKeywords...) {
				return d.FinishedSqft * 2
			}
			return d.FinishedSqft
		},
	},
	{
		Name: "unfinished-sq-ft",
		Matches: func(item domain.FeeItem, _ domain.ProjectDetails) bool {
			return unitIs(item, UnitUnfinishedSqFt)
		},
		Quantity: func(_ domain.FeeItem, d domain.ProjectDetails) float64 { return d.UnfinishedSqft },
	},
	{
		Name: "acreage",
		Matches: func(item domain.FeeItem, _ domain.ProjectDetails) bool {
			return unitIs(item, UnitAcre)
		},
		Quantity: func(_ domain.FeeItem, d domain.ProjectDetails) float64 {
			if d.Acres == 0 {
				return 1
			}
			return d.Acres
		},
	},
	descriptionRule("overhead-doors", []string{"overhead door"}, func(d domain.ProjectDetails) float64 { return d.Doors }),
	descriptionRule("walk-doors", walkDoorKeywords, func(d domain.ProjectDetails) float64 { return d.WalkDoors }),
	descriptionRule("kitchen-cabinets", []string{"kitchen cabinets"}, func(d domain.ProjectDetails) float64 { return d.KitchenCabinets }),
	descriptionRule("bathroom-vanities", []string{"bathroom vanities"}, func(d domain.ProjectDetails) float64 { return d.Bathrooms }),
	descriptionRule("interior-stairs", []string{"interior stairs"}, func(d domain.ProjectDetails) float64 {
		if d.Floors == 2 {
			return 1
		}
		return 0
	}),
	{
		Name: "fixed-each",
		Matches: func(item domain.FeeItem, _ domain.ProjectDetails) bool {
			return unitIs(item, UnitEach) && describes(item, fixedEachKeywords...)
		},
		Quantity: func(domain.FeeItem, domain.ProjectDetails) float64 { return 1 },
	},
	descriptionRule("concrete-sealing", []string{"concrete sealing"}, func(d domain.ProjectDetails) float64 { return d.UnfinishedSqft }),
}

func descriptionRule(name string, keywords []string, qty func(domain.ProjectDetails) float64) Rule {
	return Rule{
		Name: name,
		Matches: func(item domain.FeeItem, _ domain.ProjectDetails) bool {
			return describes(item, keywords...)
		},
		Quantity: func(_ domain.FeeItem, d domain.ProjectDetails) float64 { return qty(d) },
	}
}

func unitIs(item domain.FeeItem, unit string) bool {
	return strings.EqualFold(strings.TrimSpace(item.Unit), unit)
}

func describes(item domain.FeeItem, keywords ...string) bool {
	desc := strings.ToLower(item.Description)
	for _, k := range keywords {
		if strings.Contains(desc, k) {
			return true
		}
	}
	return false
}

// MatchRule returns the first rule in Rules that applies to item.
func MatchRule(item domain.FeeItem, d domain.ProjectDetails) (Rule, bool) {
	for _, r := range Rules {
		if r.Matches(item, d) {
			return r, true
		}
	}
	return Rule{}, false
}

// AutoCalculation is the outcome of one auto-calculate pass.
type AutoCalculation struct {
	Items []domain.FeeItem
	// Applied maps item id to the name of the rule that set its quantity.
	Applied map[string]string
}

// AutoCalculate derives quantities for every rule-matched item from d. Items
// no rule matches keep their manual quantity. The input slice is not modified.
func AutoCalculate(items []domain.FeeItem, d domain.ProjectDetails) AutoCalculation {
	out := AutoCalculation{
		Items:   make([]domain.FeeItem, len(items)),
		Applied: make(map[string]string),
	}
	for i, item := range items {
		rule, ok := MatchRule(item, d)
		if ok {
			item.Quantity = Round2(rule.Quantity(item, d))
			item.Total = LineTotal(item.Quantity, item.UnitPrice)
			out.Applied[item.ID] = rule.Name
		}
		out.Items[i] = item
	}
	return out
}
