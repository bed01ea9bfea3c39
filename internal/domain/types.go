package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type ProjectType string

const (
	ProjectTypeBarndominium ProjectType = "barndominium"
	ProjectTypeGarage       ProjectType = "garage"
	ProjectTypeCommercial   ProjectType = "commercial"
)

// ProjectTypes lists the closed set of project types in display order.
var ProjectTypes = []ProjectType{ProjectTypeBarndominium, ProjectTypeGarage, ProjectTypeCommercial}

// ParseProjectType normalizes s and reports whether it names a known type.
func ParseProjectType(s string) (ProjectType, bool) {
	pt := ProjectType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ProjectTypes {
		if pt == known {
			return pt, true
		}
	}
	return pt, false
}

// IsSplit reports whether the type tracks finished and unfinished areas separately.
func (t ProjectType) IsSplit() bool {
	return t == ProjectTypeBarndominium
}

// FeeItem is one priced line of a statement. Total always equals
// round2(Quantity * UnitPrice).
type FeeItem struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

type ProjectDetails struct {
	ProjectType ProjectType `json:"projectType"`
	ProjectName string      `json:"projectName,omitempty"`
	ClientName  string      `json:"clientName,omitempty"`
	Address     string      `json:"address,omitempty"`

	// Single footprint (non-split types).
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
	Height float64 `json:"height"`

	// Split type.
	FinishedWidth    float64 `json:"finishedWidth"`
	FinishedLength   float64 `json:"finishedLength"`
	FinishedHeight   float64 `json:"finishedHeight"`
	UnfinishedWidth  float64 `json:"unfinishedWidth"`
	UnfinishedLength float64 `json:"unfinishedLength"`
	UnfinishedHeight float64 `json:"unfinishedHeight"`
	Floors           int     `json:"floors"`

	// Derived; only ever written by the area calculator.
	Sqft           float64 `json:"sqft"`
	FinishedSqft   float64 `json:"finishedSqft"`
	UnfinishedSqft float64 `json:"unfinishedSqft"`

	Acres           float64 `json:"acres"`
	Doors           float64 `json:"doors"`
	WalkDoors       float64 `json:"walkDoors"`
	KitchenCabinets float64 `json:"kitchenCabinets"`
	Bathrooms       float64 `json:"bathrooms"`
}

// StatementData is the portion of a statement that round-trips through the
// version store.
type StatementData struct {
	Items          []FeeItem      `json:"items"`
	ProjectDetails ProjectDetails `json:"projectDetails"`
	ProfitMargin   float64        `json:"profitMargin"`
}

// Snapshot is the local cache entry for one project.
type Snapshot struct {
	ProjectID string `json:"projectId"`
	StatementData
	LastSaved time.Time `json:"lastSaved"`
}

type StatementVersion struct {
	ID          int64
	ProjectID   string
	DisplayName string
	Data        json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
