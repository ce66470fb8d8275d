package grid

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/gridsync/internal/eval"
	"github.com/roach88/gridsync/internal/ref"
)

// IDGenerator produces sheet identifiers. Implemented by UUIDv7Generator
// (production) and testutil.FixedIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// EditFunc observes origin mutations. The collaboration session
// registers one to mirror local edits onto the broadcast channel.
type EditFunc func(sheetID, cellID string, patch Patch)

// Workbook owns an ordered collection of sheets, exactly one of which
// is active for editing focus. All sheets' data stay live for (same
// sheet only) formula evaluation.
type Workbook struct {
	mu        sync.RWMutex
	userID    string
	sheets    []*Sheet
	active    string
	updatedAt time.Time
	nextSheet int

	ids    IDGenerator
	now    func() time.Time
	onEdit EditFunc
}

// Option configures a Workbook.
type Option func(*Workbook)

// WithIDGenerator overrides the sheet ID generator. Tests use a fixed
// generator for deterministic IDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(w *Workbook) { w.ids = g }
}

// WithNow overrides the time source for created/updated stamps.
func WithNow(now func() time.Time) Option {
	return func(w *Workbook) { w.now = now }
}

// New creates a workbook for the given user with one empty sheet.
func New(userID string, opts ...Option) *Workbook {
	w := &Workbook{
		userID: userID,
		ids:    UUIDv7Generator{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	sheet := w.newSheetLocked()
	w.sheets = append(w.sheets, sheet)
	w.active = sheet.ID
	w.updatedAt = sheet.CreatedAt
	return w
}

func (w *Workbook) newSheetLocked() *Sheet {
	w.nextSheet++
	now := w.now()
	return &Sheet{
		ID:        w.ids.Generate(),
		Name:      fmt.Sprintf("Sheet %d", w.nextSheet),
		Data:      make(map[string]Cell),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UserID returns the owning user.
func (w *Workbook) UserID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.userID
}

// OnEdit registers the origin-mutation hook. The hook is invoked after
// the mutation is applied and outside the workbook lock, so it may call
// back into the workbook.
func (w *Workbook) OnEdit(fn EditFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onEdit = fn
}

func (w *Workbook) sheetLocked(sheetID string) *Sheet {
	for _, s := range w.sheets {
		if s.ID == sheetID {
			return s
		}
	}
	return nil
}

// Get returns the cell record at the given address, if present.
func (w *Workbook) Get(sheetID, cellID string) (Cell, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	sheet := w.sheetLocked(sheetID)
	if sheet == nil {
		return Cell{}, false
	}
	cell, ok := sheet.Data[cellID]
	return cell, ok
}

// SetCell shallow-merges the patch into the cell record, creating the
// record if absent, and refreshes the sheet's updated_at stamp.
//
// origin=true marks a local optimistic write and additionally triggers
// the registered edit hook; origin=false applies a remote edit silently,
// which is the mechanism that prevents broadcast echo loops. Re-applying
// an identical patch leaves the store observably unchanged.
func (w *Workbook) SetCell(sheetID, cellID string, patch Patch, origin bool) error {
	if !ref.Valid(cellID) {
		return &ref.Error{Ref: cellID, Message: "not a cell identifier"}
	}

	w.mu.Lock()
	sheet := w.sheetLocked(sheetID)
	if sheet == nil {
		w.mu.Unlock()
		return fmt.Errorf("set cell %s: %w", sheetID, ErrSheetNotFound)
	}

	current := sheet.Data[cellID]
	if !current.equalAfter(patch) {
		sheet.Data[cellID] = current.merge(patch)
		now := w.now()
		sheet.UpdatedAt = now
		w.updatedAt = now
	}
	hook := w.onEdit
	w.mu.Unlock()

	if origin && hook != nil {
		hook(sheetID, cellID, patch)
	}
	return nil
}

// Enter records authored cell content the way the editor delivers it.
//
// Content starting with the formula marker becomes the cell's formula
// (source of truth) with the evaluated result cached in Value; anything
// else is a literal whose Value is the text itself and whose formula is
// cleared.
func (w *Workbook) Enter(sheetID, cellID, content string, origin bool) error {
	patch := Patch{}
	if eval.IsFormula(content) {
		snap, err := w.Snapshot(sheetID)
		if err != nil {
			return err
		}
		patch.Formula = str(content)
		v, evalErr := eval.Evaluate(content, snap)
		if evalErr != nil {
			patch.Value = str(eval.DisplayToken(evalErr))
		} else {
			patch.Value = str(v.String())
		}
	} else {
		patch.Value = str(content)
		patch.Formula = str("")
	}
	return w.SetCell(sheetID, cellID, patch, origin)
}

// Snapshot returns an immutable copy of a sheet's cell mapping for the
// evaluator.
func (w *Workbook) Snapshot(sheetID string) (Snapshot, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	sheet := w.sheetLocked(sheetID)
	if sheet == nil {
		return nil, fmt.Errorf("snapshot %s: %w", sheetID, ErrSheetNotFound)
	}
	return sheet.snapshotLocked(), nil
}

// DisplayValue derives what the cell renders: formulas evaluate against
// the current snapshot (errors collapse to their display token), and
// numeric values pass through the style's display format.
func (w *Workbook) DisplayValue(sheetID, cellID string) (string, error) {
	w.mu.RLock()
	sheet := w.sheetLocked(sheetID)
	if sheet == nil {
		w.mu.RUnlock()
		return "", fmt.Errorf("display %s: %w", sheetID, ErrSheetNotFound)
	}
	cell := sheet.Data[cellID]
	snap := sheet.snapshotLocked()
	w.mu.RUnlock()

	raw := cell.Value
	if cell.Formula != "" {
		v, err := eval.Evaluate(cell.Formula, snap)
		if err != nil {
			return eval.DisplayToken(err), nil
		}
		raw = v.String()
	}
	return formatDisplay(raw, cell.Style), nil
}

// Recalculate re-evaluates every formula cell on the sheet and refreshes
// its cached Value. There is no dependency-graph ordering: each formula
// is re-evaluated directly against the current snapshot, so chained
// formulas may need a render (or another pass) to settle.
func (w *Workbook) Recalculate(sheetID string) error {
	snap, err := w.Snapshot(sheetID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	sheet := w.sheetLocked(sheetID)
	if sheet == nil {
		return fmt.Errorf("recalculate %s: %w", sheetID, ErrSheetNotFound)
	}
	for id, cell := range sheet.Data {
		if cell.Formula == "" {
			continue
		}
		v, evalErr := eval.Evaluate(cell.Formula, snap)
		if evalErr != nil {
			cell.Value = eval.DisplayToken(evalErr)
		} else {
			cell.Value = v.String()
		}
		sheet.Data[id] = cell
	}
	return nil
}

// AddSheet appends a new empty sheet with an auto-generated name and
// returns its id.
func (w *Workbook) AddSheet() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	sheet := w.newSheetLocked()
	w.sheets = append(w.sheets, sheet)
	w.updatedAt = sheet.CreatedAt
	return sheet.ID
}

// RemoveSheet deletes a sheet. Removing the last remaining sheet is
// rejected with ErrLastSheet and leaves the workbook untouched. If the
// active sheet is removed, the first remaining sheet becomes active.
func (w *Workbook) RemoveSheet(sheetID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.sheets {
		if s.ID == sheetID {
			if len(w.sheets) == 1 {
				return fmt.Errorf("remove sheet %s: %w", sheetID, ErrLastSheet)
			}
			w.sheets = append(w.sheets[:i], w.sheets[i+1:]...)
			if w.active == sheetID {
				w.active = w.sheets[0].ID
			}
			w.updatedAt = w.now()
			return nil
		}
	}
	return fmt.Errorf("remove sheet %s: %w", sheetID, ErrSheetNotFound)
}

// RenameSheet changes a sheet's display name.
func (w *Workbook) RenameSheet(sheetID, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	sheet := w.sheetLocked(sheetID)
	if sheet == nil {
		return fmt.Errorf("rename sheet %s: %w", sheetID, ErrSheetNotFound)
	}
	sheet.Name = name
	sheet.UpdatedAt = w.now()
	w.updatedAt = sheet.UpdatedAt
	return nil
}

// SetActive switches editing focus to the given sheet.
func (w *Workbook) SetActive(sheetID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sheetLocked(sheetID) == nil {
		return fmt.Errorf("activate sheet %s: %w", sheetID, ErrSheetNotFound)
	}
	w.active = sheetID
	return nil
}

// Active returns the active sheet id.
func (w *Workbook) Active() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// SheetIDs returns the sheet ids in order.
func (w *Workbook) SheetIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		ids[i] = s.ID
	}
	return ids
}

// SheetName returns a sheet's display name.
func (w *Workbook) SheetName(sheetID string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	sheet := w.sheetLocked(sheetID)
	if sheet == nil {
		return "", fmt.Errorf("sheet name %s: %w", sheetID, ErrSheetNotFound)
	}
	return sheet.Name, nil
}

// File is the persisted workbook shape consumed and produced by the
// storage collaborator.
type File struct {
	UserID        string    `json:"userId"`
	Sheets        []*Sheet  `json:"sheets"`
	ActiveSheetID string    `json:"activeSheetId"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Export deep-copies the workbook into its persisted shape. The copy is
// detached: the autosaver can serialize it while edits continue.
func (w *Workbook) Export() *File {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f := &File{
		UserID:        w.userID,
		Sheets:        make([]*Sheet, len(w.sheets)),
		ActiveSheetID: w.active,
		UpdatedAt:     w.updatedAt,
	}
	for i, s := range w.sheets {
		f.Sheets[i] = s.clone()
	}
	return f
}

// Load reconstructs a workbook from its persisted shape. Files with no
// sheets get one empty sheet, preserving the at-least-one invariant.
func Load(f *File, opts ...Option) *Workbook {
	w := New(f.UserID, opts...)
	if len(f.Sheets) == 0 {
		return w
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets = make([]*Sheet, len(f.Sheets))
	for i, s := range f.Sheets {
		w.sheets[i] = s.clone()
	}
	w.active = f.ActiveSheetID
	if w.sheetLocked(w.active) == nil {
		w.active = w.sheets[0].ID
	}
	w.updatedAt = f.UpdatedAt
	w.nextSheet = len(f.Sheets)
	return w
}
