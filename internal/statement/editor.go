// Package statement holds the in-memory state of one project's fee statement
// and every edit the presentation layer can apply to it.
package statement

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/vbonduro/feestatement/internal/catalog"
	"github.com/vbonduro/feestatement/internal/domain"
	"github.com/vbonduro/feestatement/internal/estimate"
)

var (
	ErrLocked             = errors.New("statement is locked")
	ErrItemNotFound       = errors.New("fee item not found")
	ErrUnknownField       = errors.New("unknown field")
	ErrFieldNotApplicable = errors.New("field does not apply to this project type")
	ErrDerivedField       = errors.New("field is derived and cannot be set")
)

const (
	newItemDescription = "New Item"
	newItemUnit        = estimate.UnitEach
)

// Editor is one open statement. All methods are safe for concurrent use.
type Editor struct {
	mu sync.Mutex

	projectID     string
	defaultMargin float64
	defaultType   domain.ProjectType
	items         []domain.FeeItem
	details       domain.ProjectDetails
	profitMargin  float64
	locked        bool

	editingVersionID int64
	isNewVersion     bool

	totals *estimate.Totals
	newID  func() string
}

type Option func(*Editor)

// WithDefaultProjectType sets the catalog used for missing or unknown
// project types. It falls back to catalog.DefaultProjectType.
func WithDefaultProjectType(pt domain.ProjectType) Option {
	return func(e *Editor) { e.defaultType = catalog.Resolve(pt) }
}

// WithIDGenerator replaces the UUID generator used for user-added items.
func WithIDGenerator(fn func() string) Option {
	return func(e *Editor) { e.newID = fn }
}

// New returns an editor seeded with the catalog defaults for projectType.
func New(projectID string, projectType domain.ProjectType, profitMargin float64, opts ...Option) *Editor {
	e := &Editor{
		projectID:     projectID,
		defaultMargin: estimate.Round2(estimate.Clamp(profitMargin)),
		defaultType:   catalog.DefaultProjectType,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetLocked(projectType)
	return e
}

// Restore returns an editor seeded from a cached snapshot.
func Restore(s domain.Snapshot, defaultMargin float64, opts ...Option) *Editor {
	e := New(s.ProjectID, s.ProjectDetails.ProjectType, defaultMargin, opts...)
	e.loadLocked(s.StatementData)
	return e
}

func (e *Editor) ProjectID() string { return e.projectID }

// resolveType maps pt onto a project type that has a catalog.
func (e *Editor) resolveType(pt domain.ProjectType) domain.ProjectType {
	if catalog.Resolve(pt) == pt {
		return pt
	}
	return e.defaultType
}

func (e *Editor) resetLocked(pt domain.ProjectType) {
	pt = e.resolveType(pt)
	e.items = catalog.ForProjectType(pt)
	e.details = estimate.ComputeArea(domain.ProjectDetails{ProjectType: pt, Floors: defaultFloors(pt)})
	e.profitMargin = e.defaultMargin
	e.totals = nil
}

func defaultFloors(pt domain.ProjectType) int {
	if pt.IsSplit() {
		return 1
	}
	return 0
}

func (e *Editor) findLocked(id string) int {
	return slices.IndexFunc(e.items, func(it domain.FeeItem) bool { return it.ID == id })
}

func (e *Editor) checkLocked() error {
	if e.locked {
		return ErrLocked
	}
	return nil
}

// UpdateItem sets one field of an item. Numeric fields go through
// parse-or-default and never go negative; total follows automatically.
func (e *Editor) UpdateItem(id, field string, value any) (domain.FeeItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkLocked(); err != nil {
		return domain.FeeItem{}, err
	}
	idx := e.findLocked(id)
	if idx < 0 {
		return domain.FeeItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	item := e.items[idx]
	switch field {
	case "quantity":
		item.Quantity = estimate.ParseNonNegative(value)
	case "unitPrice":
		item.UnitPrice = estimate.ParseNonNegative(value)
	case "description":
		item.Description = cast.ToString(value)
	case "unit":
		item.Unit = cast.ToString(value)
	case "category":
		item.Category = cast.ToString(value)
	case "total":
		return domain.FeeItem{}, fmt.Errorf("%w: %s", ErrDerivedField, field)
	default:
		return domain.FeeItem{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	item.Total = estimate.LineTotal(item.Quantity, item.UnitPrice)

	e.items[idx] = item
	e.totals = nil
	return item, nil
}

// AddNewItem appends a blank user item to category.
func (e *Editor) AddNewItem(category string) (domain.FeeItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkLocked(); err != nil {
		return domain.FeeItem{}, err
	}
	item := domain.FeeItem{
		ID:          e.newID(),
		Category:    category,
		Description: newItemDescription,
		Unit:        newItemUnit,
	}
	e.items = append(e.items, item)
	e.totals = nil
	return item, nil
}

func (e *Editor) DeleteItem(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkLocked(); err != nil {
		return err
	}
	idx := e.findLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	e.items = slices.Delete(e.items, idx, idx+1)
	e.totals = nil
	return nil
}

// AutoCalculateQuantities runs the rule table over every item and returns how
// many items a rule set.
func (e *Editor) AutoCalculateQuantities() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkLocked(); err != nil {
		return 0, err
	}
	result := estimate.AutoCalculate(e.items, e.details)
	e.items = result.Items
	e.totals = nil
	return len(result.Applied), nil
}

// ChangeProjectType replaces every item, custom ones included, with the
// catalog of pt. Dimensions of the other shape are cleared; counts and
// descriptive fields are kept.
func (e *Editor) ChangeProjectType(pt domain.ProjectType) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkLocked(); err != nil {
		return err
	}
	e.changeProjectTypeLocked(pt)
	return nil
}

func (e *Editor) changeProjectTypeLocked(pt domain.ProjectType) {
	pt = e.resolveType(pt)
	d := e.details
	d.ProjectType = pt
	d.Floors = defaultFloors(pt)
	if pt.IsSplit() {
		d.Width, d.Length, d.Height = 0, 0, 0
	} else {
		d.FinishedWidth, d.FinishedLength, d.FinishedHeight = 0, 0, 0
		d.UnfinishedWidth, d.UnfinishedLength, d.UnfinishedHeight = 0, 0, 0
	}
	e.details = estimate.ComputeArea(d)
	e.items = catalog.ForProjectType(pt)
	e.totals = nil
}

type dimensionField struct {
	split bool
	ptr   func(*domain.ProjectDetails) *float64
}

var dimensionFields = map[string]dimensionField{
	"width":            {false, func(d *domain.ProjectDetails) *float64 { return &d.Width }},
	"length":           {false, func(d *domain.ProjectDetails) *float64 { return &d.Length }},
	"height":           {false, func(d *domain.ProjectDetails) *float64 { return &d.Height }},
	"finishedWidth":    {true, func(d *domain.ProjectDetails) *float64 { return &d.FinishedWidth }},
	"finishedLength":   {true, func(d *domain.ProjectDetails) *float64 { return &d.FinishedLength }},
	"finishedHeight":   {true, func(d *domain.ProjectDetails) *float64 { return &d.FinishedHeight }},
	"unfinishedWidth":  {true, func(d *domain.ProjectDetails) *float64 { return &d.UnfinishedWidth }},
	"unfinishedLength": {true, func(d *domain.ProjectDetails) *float64 { return &d.UnfinishedLength }},
	"unfinishedHeight": {true, func(d *domain.ProjectDetails) *float64 { return &d.UnfinishedHeight }},
}

var countFields = map[string]func(*domain.ProjectDetails) *float64{
	"acres":           func(d *domain.ProjectDetails) *float64 { return &d.Acres },
	"doors":           func(d *domain.ProjectDetails) *float64 { return &d.Doors },
	"walkDoors":       func(d *domain.ProjectDetails) *float64 { return &d.WalkDoors },
	"kitchenCabinets": func(d *domain.ProjectDetails) *float64 { return &d.KitchenCabinets },
	"bathrooms":       func(d *domain.ProjectDetails) *float64 { return &d.Bathrooms },
}

var textFields = map[string]func(*domain.ProjectDetails) *string{
	"projectName": func(d *domain.ProjectDetails) *string { return &d.ProjectName },
	"clientName":  func(d *domain.ProjectDetails) *string { return &d.ClientName },
	"address":     func(d *domain.ProjectDetails) *string { return &d.Address },
}

var derivedFields = []string{"sqft", "finishedSqft", "unfinishedSqft"}

// UpdateProjectDetails sets one project detail field. Only dimension edits
// recompute the derived area.
func (e *Editor) UpdateProjectDetails(field string, value any) (domain.ProjectDetails, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkLocked(); err != nil {
		return domain.ProjectDetails{}, err
	}

	d := e.details
	if dim, ok := dimensionFields[field]; ok {
		if dim.split != d.ProjectType.IsSplit() {
			return domain.ProjectDetails{}, fmt.Errorf("%w: %s on %s", ErrFieldNotApplicable, field, d.ProjectType)
		}
		*dim.ptr(&d) = estimate.ParseNonNegative(value)
		e.details = estimate.ComputeArea(d)
		return e.details, nil
	}
	if ptr, ok := countFields[field]; ok {
		*ptr(&d) = estimate.ParseNonNegative(value)
		e.details = d
		return e.details, nil
	}
	if ptr, ok := textFields[field]; ok {
		*ptr(&d) = cast.ToString(value)
		e.details = d
		return e.details, nil
	}

	switch {
	case field == "floors":
		if !d.ProjectType.IsSplit() {
			return domain.ProjectDetails{}, fmt.Errorf("%w: %s on %s", ErrFieldNotApplicable, field, d.ProjectType)
		}
		d.Floors = normalizeFloors(estimate.ParseNumber(value))
		e.details = d
		return e.details, nil
	case field == "projectType":
		pt, _ := domain.ParseProjectType(cast.ToString(value))
		e.changeProjectTypeLocked(pt)
		return e.details, nil
	case lo.Contains(derivedFields, field):
		return domain.ProjectDetails{}, fmt.Errorf("%w: %s", ErrDerivedField, field)
	}
	return domain.ProjectDetails{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
}

func normalizeFloors(v float64) int {
	if v >= 2 {
		return 2
	}
	return 1
}

// SetProfitMargin stores the margin percentage rounded to two decimals.
// Negative input is treated as zero.
func (e *Editor) SetProfitMargin(value any) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkLocked(); err != nil {
		return 0, err
	}
	e.profitMargin = estimate.Round2(estimate.ParseNonNegative(value))
	e.totals = nil
	return e.profitMargin, nil
}

func (e *Editor) ProfitMargin() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profitMargin
}

// Totals is memoized until the next item or margin change.
func (e *Editor) Totals() estimate.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalsLocked()
}

func (e *Editor) totalsLocked() estimate.Totals {
	if e.totals == nil {
		t := estimate.CalculateTotals(e.items, e.profitMargin)
		e.totals = &t
	}
	return *e.totals
}

func (e *Editor) Subtotal() float64 { return e.Totals().Subtotal }
func (e *Editor) Profit() float64   { return e.Totals().Profit }
func (e *Editor) Total() float64    { return e.Totals().Total }

func (e *Editor) SetLocked(locked bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locked = locked
}

func (e *Editor) Locked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locked
}

func (e *Editor) Items() []domain.FeeItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.items)
}

func (e *Editor) ProjectDetails() domain.ProjectDetails {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.details
}

// Data returns a copy of the persistable part of the statement.
func (e *Editor) Data() domain.StatementData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dataLocked()
}

func (e *Editor) dataLocked() domain.StatementData {
	return domain.StatementData{
		Items:          slices.Clone(e.items),
		ProjectDetails: e.details,
		ProfitMargin:   e.profitMargin,
	}
}

// Snapshot returns the local cache form of the statement. LastSaved is left
// for the caller to stamp.
func (e *Editor) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Snapshot{ProjectID: e.projectID, StatementData: e.dataLocked()}
}

// LoadStatementData replaces the whole statement with data. Item totals and
// derived area are recomputed so stored values cannot break the invariants.
// Loading is allowed while locked.
func (e *Editor) LoadStatementData(data domain.StatementData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadLocked(data)
}

func (e *Editor) loadLocked(data domain.StatementData) {
	d := data.ProjectDetails
	d.ProjectType = e.resolveType(d.ProjectType)
	if d.ProjectType.IsSplit() {
		d.Floors = normalizeFloors(float64(d.Floors))
	} else {
		d.Floors = 0
	}
	for _, dim := range dimensionFields {
		p := dim.ptr(&d)
		*p = estimate.Clamp(*p)
	}
	for _, ptr := range countFields {
		p := ptr(&d)
		*p = estimate.Clamp(*p)
	}
	e.details = estimate.ComputeArea(d)

	e.items = lo.Map(data.Items, func(item domain.FeeItem, _ int) domain.FeeItem {
		item.Quantity = estimate.Clamp(item.Quantity)
		item.UnitPrice = estimate.Clamp(item.UnitPrice)
		item.Total = estimate.LineTotal(item.Quantity, item.UnitPrice)
		return item
	})
	e.profitMargin = estimate.Round2(estimate.Clamp(data.ProfitMargin))
	e.totals = nil
}

// Reset discards the statement and reseeds it with catalog defaults for the
// current project type. Version-editing state is cleared.
func (e *Editor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked(e.details.ProjectType)
	e.editingVersionID = 0
	e.isNewVersion = false
}

// EditingVersion reports the version the editor was loaded from or last
// saved as, and whether the session was flagged to save a new version.
func (e *Editor) EditingVersion() (id int64, isNew bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editingVersionID, e.isNewVersion
}

// VersionSave is what the next version save writes and where.
type VersionSave struct {
	Data      domain.StatementData
	VersionID int64
	// Update is true when VersionID should be overwritten rather than a new
	// version created.
	Update bool
}

// PendingVersionSave captures the statement and the update-or-create
// decision under one lock, so a concurrent version load cannot mix them.
func (e *Editor) PendingVersionSave() VersionSave {
	e.mu.Lock()
	defer e.mu.Unlock()
	return VersionSave{
		Data:      e.dataLocked(),
		VersionID: e.editingVersionID,
		Update:    e.editingVersionID != 0 && !e.isNewVersion,
	}
}

func (e *Editor) MarkVersionSaved(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editingVersionID = id
	e.isNewVersion = false
}

// ForgetVersion leaves editing mode if the editor is editing versionID,
// so the next version save creates a new version.
func (e *Editor) ForgetVersion(versionID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editingVersionID == versionID {
		e.editingVersionID = 0
		e.isNewVersion = false
	}
}

// StartNewVersion keeps the current contents but makes the next version save
// create a new version.
func (e *Editor) StartNewVersion() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isNewVersion = true
}

// EnterVersion loads data and puts the editor in editing mode for versionID.
func (e *Editor) EnterVersion(versionID int64, data domain.StatementData) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadLocked(data)
	e.editingVersionID = versionID
	e.isNewVersion = false
}

// View is the full internal rendering of the statement.
type View struct {
	ProjectID        string                `json:"projectId"`
	Items            []domain.FeeItem      `json:"items"`
	ProjectDetails   domain.ProjectDetails `json:"projectDetails"`
	ProfitMargin     float64               `json:"profitMargin"`
	Totals           estimate.Totals       `json:"totals"`
	Locked           bool                  `json:"locked"`
	EditingVersionID int64                 `json:"editingVersionId,omitempty"`
	IsNewVersion     bool                  `json:"isNewVersion"`
}

func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return View{
		ProjectID:        e.projectID,
		Items:            slices.Clone(e.items),
		ProjectDetails:   e.details,
		ProfitMargin:     e.profitMargin,
		Totals:           e.totalsLocked(),
		Locked:           e.locked,
		EditingVersionID: e.editingVersionID,
		IsNewVersion:     e.isNewVersion,
	}
}

// CustomerView renders the statement with the margin folded into each line.
func (e *Editor) CustomerView() estimate.CustomerView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return estimate.CustomerLines(e.items, e.profitMargin)
}
