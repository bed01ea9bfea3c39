// Package catalog holds the default fee item tables, one per project type.
package catalog

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/vbonduro/feestatement/internal/domain"
	"github.com/vbonduro/feestatement/internal/estimate"
)

// DefaultProjectType is used when a project type is missing or unknown.
const DefaultProjectType = domain.ProjectTypeBarndominium

const (
	catSiteWork   = "Site Work & Foundation"
	catStructure  = "Structure & Shell"
	catInterior   = "Interior Finishes"
	catMEP        = "Mechanical, Electrical & Plumbing"
	catKitchen    = "Kitchen & Bath"
	catShop       = "Shop Area"
	catPermits    = "Permits & Fees"
	catElectrical = "Electrical"
	catLifeSafety = "Mechanical & Life Safety"
	catBuildOut   = "Interior Build-out"
)

type entry struct {
	category    string
	description string
	unit        string
	unitPrice   float64
}

var tables = map[domain.ProjectType][]entry{
	domain.ProjectTypeBarndominium: {
		{catSiteWork, "Site Prep & Clearing", estimate.UnitAcre, 3500},
		{catSiteWork, "Excavation & Grading", estimate.UnitSqFt, 1.25},
		{catSiteWork, `Concrete Slab (4")`, estimate.UnitSqFt, 6.50},
		{catSiteWork, "Vapor Barrier", estimate.UnitSqFt, 0.35},
		{catSiteWork, "Concrete Sealing", estimate.UnitSqFt, 0.85},
		{catStructure, "Steel Frame Structure", estimate.UnitSqFt, 14},
		{catStructure, "Metal Roofing", estimate.UnitSqFt, 4.25},
		{catStructure, "Metal Siding", estimate.UnitSqFt, 3.75},
		{catStructure, "Overhead Doors", estimate.UnitEach, 1800},
		{catStructure, "Walk-in Doors", estimate.UnitEach, 650},
		{catStructure, "Windows", estimate.UnitEach, 450},
		{catInterior, "Interior Framing", estimate.UnitFinishedSqFt, 3.50},
		{catInterior, "Spray Foam Insulation", estimate.UnitFinishedSqFt, 2.25},
		{catInterior, "Drywall & Finishing", estimate.UnitFinishedSqFt, 4.75},
		{catInterior, "Interior Paint", estimate.UnitFinishedSqFt, 2.10},
		{catInterior, "Flooring (LVP)", estimate.UnitFinishedSqFt, 5.50},
		{catInterior, "Interior Stairs", estimate.UnitEach, 4500},
		{catInterior, "Interior Doors", estimate.UnitEach, 350},
		{catMEP, "Electrical Rough-in", estimate.UnitFinishedSqFt, 3.25},
		{catMEP, "Electrical Panel (200A)", estimate.UnitEach, 2200},
		{catMEP, "Plumbing Rough-in", estimate.UnitFinishedSqFt, 2.75},
		{catMEP, "HVAC System", estimate.UnitFinishedSqFt, 6},
		{catMEP, "Septic System", estimate.UnitEach, 8500},
		{catKitchen, "Kitchen Cabinets", estimate.UnitLinearFt, 325},
		{catKitchen, "Countertops", estimate.UnitLinearFt, 95},
		{catKitchen, "Bathroom Vanities", estimate.UnitEach, 1200},
		{catKitchen, "Plumbing Fixtures", estimate.UnitEach, 650},
		{catShop, "Shop Electrical", estimate.UnitUnfinishedSqFt, 1.75},
		{catShop, "Shop Lighting", estimate.UnitUnfinishedSqFt, 0.95},
		{catPermits, "Building Permit", estimate.UnitEach, 2500},
		{catPermits, "Impact Fees", estimate.UnitEach, 1500},
		{catPermits, "Inspections", estimate.UnitEach, 800},
		{catPermits, "Project Manager", estimate.UnitEach, 6000},
	},
	domain.ProjectTypeGarage: {
		{catSiteWork, "Site Prep", estimate.UnitSqFt, 0.75},
		{catSiteWork, "Excavation & Grading", estimate.UnitSqFt, 1.10},
		{catSiteWork, `Concrete Slab (4")`, estimate.UnitSqFt, 6.25},
		{catSiteWork, "Vapor Barrier", estimate.UnitSqFt, 0.30},
		{catStructure, "Lumber Frame Structure", estimate.UnitSqFt, 12},
		{catStructure, "Asphalt Shingle Roofing", estimate.UnitSqFt, 3.90},
		{catStructure, "Vinyl Siding", estimate.UnitSqFt, 3.25},
		{catStructure, "Overhead Doors", estimate.UnitEach, 1800},
		{catStructure, "Walk Door", estimate.UnitEach, 550},
		{catStructure, "Windows", estimate.UnitEach, 400},
		{catElectrical, "Basic Electrical", estimate.UnitSqFt, 2.50},
		{catElectrical, "Electrical Panel (100A)", estimate.UnitEach, 1400},
		{catElectrical, "Wall Insulation", estimate.UnitSqFt, 1.50},
		{catPermits, "Building Permit", estimate.UnitEach, 1200},
		{catPermits, "Inspections", estimate.UnitEach, 450},
		{catPermits, "Project Manager", estimate.UnitEach, 2500},
	},
	domain.ProjectTypeCommercial: {
		{catSiteWork, "Site Prep & Clearing", estimate.UnitAcre, 4500},
		{catSiteWork, "Excavation & Grading", estimate.UnitSqFt, 1.50},
		{catSiteWork, `Concrete Slab (6")`, estimate.UnitSqFt, 8.75},
		{catSiteWork, "Vapor Barrier", estimate.UnitSqFt, 0.40},
		{catStructure, "Steel Frame Structure", estimate.UnitSqFt, 18},
		{catStructure, "Standing Seam Roofing", estimate.UnitSqFt, 6.50},
		{catStructure, "Metal Siding", estimate.UnitSqFt, 4.25},
		{catStructure, "Overhead Doors", estimate.UnitEach, 3200},
		{catStructure, "Entry Doors", estimate.UnitEach, 1800},
		{catStructure, "Storefront Glazing", estimate.UnitSqFt, 65},
		{catLifeSafety, "Commercial Electrical", estimate.UnitSqFt, 7.50},
		{catLifeSafety, "Electrical Panel & Service", estimate.UnitEach, 9500},
		{catLifeSafety, "HVAC System", estimate.UnitSqFt, 9.50},
		{catLifeSafety, "Commercial Plumbing", estimate.UnitSqFt, 5.25},
		{catLifeSafety, "Fire Sprinkler System", estimate.UnitSqFt, 4.25},
		{catLifeSafety, "Fire Alarm System", estimate.UnitSqFt, 1.25},
		{catBuildOut, "Interior Build-out", estimate.UnitSqFt, 35},
		{catBuildOut, "ADA Restrooms", estimate.UnitEach, 12000},
		{catPermits, "Building Permit", estimate.UnitEach, 6500},
		{catPermits, "Impact Fees", estimate.UnitEach, 5000},
		{catPermits, "Inspections", estimate.UnitEach, 2200},
		{catPermits, "Engineering & Plans", estimate.UnitEach, 12000},
		{catPermits, "Project Manager", estimate.UnitEach, 15000},
	},
}

// Resolve maps pt onto a project type that has a catalog.
func Resolve(pt domain.ProjectType) domain.ProjectType {
	if _, ok := tables[pt]; ok {
		return pt
	}
	return DefaultProjectType
}

// ForProjectType returns a fresh copy of the default items for pt, with
// quantities and totals zeroed. Unknown types get the default catalog.
// Callers own the returned slice.
func ForProjectType(pt domain.ProjectType) []domain.FeeItem {
	pt = Resolve(pt)
	return lo.Map(tables[pt], func(e entry, i int) domain.FeeItem {
		return domain.FeeItem{
			ID:          fmt.Sprintf("%s-%02d", pt, i+1),
			Category:    e.category,
			Description: e.description,
			Unit:        e.unit,
			UnitPrice:   e.unitPrice,
		}
	})
}

// Categories returns the distinct categories of pt's catalog in display order.
func Categories(pt domain.ProjectType) []string {
	return lo.Uniq(lo.Map(tables[Resolve(pt)], func(e entry, _ int) string { return e.category }))
}
