package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridsync/internal/ref"
	"github.com/roach88/gridsync/internal/testutil"
)

func newTestWorkbook(t *testing.T) *Workbook {
	t.Helper()
	clock := testutil.NewWallClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), time.Second)
	return New("user-1",
		WithIDGenerator(testutil.NewFixedIDs("sheet")),
		WithNow(clock.Now),
	)
}

func TestNew_StartsWithOneSheet(t *testing.T) {
	w := newTestWorkbook(t)
	ids := w.SheetIDs()
	require.Len(t, ids, 1)
	assert.Equal(t, "sheet-1", ids[0])
	assert.Equal(t, "sheet-1", w.Active())

	name, err := w.SheetName("sheet-1")
	require.NoError(t, err)
	assert.Equal(t, "Sheet 1", name)
}

func TestSetCell_MergeIsShallow(t *testing.T) {
	w := newTestWorkbook(t)

	require.NoError(t, w.SetCell("sheet-1", "A1", Patch{Value: str("42")}, false))
	require.NoError(t, w.SetCell("sheet-1", "A1", Patch{Style: &Style{Bold: true}}, false))

	cell, ok := w.Get("sheet-1", "A1")
	require.True(t, ok)
	assert.Equal(t, "42", cell.Value, "style patch must not clobber the value")
	require.NotNil(t, cell.Style)
	assert.True(t, cell.Style.Bold)

	// Value patch keeps the style.
	require.NoError(t, w.SetCell("sheet-1", "A1", Patch{Value: str("43")}, false))
	cell, _ = w.Get("sheet-1", "A1")
	assert.Equal(t, "43", cell.Value)
	require.NotNil(t, cell.Style)
	assert.True(t, cell.Style.Bold)
}

func TestSetCell_RejectsMalformedID(t *testing.T) {
	w := newTestWorkbook(t)
	err := w.SetCell("sheet-1", "a1", Patch{Value: str("x")}, false)
	require.Error(t, err)
	assert.True(t, ref.IsMalformed(err))

	err = w.SetCell("sheet-1", "AA1", Patch{Value: str("x")}, false)
	assert.True(t, ref.IsMalformed(err))
}

func TestSetCell_UnknownSheet(t *testing.T) {
	w := newTestWorkbook(t)
	err := w.SetCell("nope", "A1", Patch{Value: str("x")}, false)
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestSetCell_OriginTriggersHook(t *testing.T) {
	w := newTestWorkbook(t)

	var fired int
	w.OnEdit(func(sheetID, cellID string, patch Patch) {
		fired++
		assert.Equal(t, "sheet-1", sheetID)
		assert.Equal(t, "B2", cellID)
	})

	require.NoError(t, w.SetCell("sheet-1", "B2", Patch{Value: str("1")}, true))
	assert.Equal(t, 1, fired)

	// Remote-origin mutations stay silent. This is the echo-loop guard.
	require.NoError(t, w.SetCell("sheet-1", "B2", Patch{Value: str("2")}, false))
	assert.Equal(t, 1, fired)
}

func TestSetCell_Idempotent(t *testing.T) {
	w := newTestWorkbook(t)
	patch := Patch{Value: str("7"), Style: &Style{Italic: true}}

	require.NoError(t, w.SetCell("sheet-1", "C3", patch, false))
	before := w.Export()

	require.NoError(t, w.SetCell("sheet-1", "C3", patch, false))
	after := w.Export()

	assert.Equal(t, before.Sheets[0].Data, after.Sheets[0].Data)
	assert.Equal(t, before.Sheets[0].UpdatedAt, after.Sheets[0].UpdatedAt,
		"re-applying an identical edit must not bump updated_at")
}

func TestEnter_LiteralAndFormula(t *testing.T) {
	w := newTestWorkbook(t)

	require.NoError(t, w.Enter("sheet-1", "A1", "2", false))
	require.NoError(t, w.Enter("sheet-1", "A2", "3", false))
	require.NoError(t, w.Enter("sheet-1", "A3", "=A1+A2", false))

	cell, _ := w.Get("sheet-1", "A1")
	assert.Equal(t, "2", cell.Value)
	assert.Empty(t, cell.Formula)

	cell, _ = w.Get("sheet-1", "A3")
	assert.Equal(t, "=A1+A2", cell.Formula, "formula keeps its raw text including the marker")
	assert.Equal(t, "5", cell.Value, "value caches the evaluation result")

	// Replacing a formula with a literal clears the formula.
	require.NoError(t, w.Enter("sheet-1", "A3", "plain", false))
	cell, _ = w.Get("sheet-1", "A3")
	assert.Empty(t, cell.Formula)
	assert.Equal(t, "plain", cell.Value)
}

func TestEnter_FormulaErrorCachesDisplayToken(t *testing.T) {
	w := newTestWorkbook(t)
	require.NoError(t, w.Enter("sheet-1", "A1", "=1/0", false))
	cell, _ := w.Get("sheet-1", "A1")
	assert.Equal(t, "#DIV/0!", cell.Value)
	assert.Equal(t, "=1/0", cell.Formula)
}

func TestDisplayValue(t *testing.T) {
	w := newTestWorkbook(t)
	require.NoError(t, w.Enter("sheet-1", "A1", "4", false))
	require.NoError(t, w.Enter("sheet-1", "A2", "6", false))
	require.NoError(t, w.Enter("sheet-1", "A3", "=AVERAGE(A1:A2)", false))

	got, err := w.DisplayValue("sheet-1", "A3")
	require.NoError(t, err)
	assert.Equal(t, "5", got)

	// Formulas re-evaluate at display time, so a stale cache does not show.
	require.NoError(t, w.Enter("sheet-1", "A1", "14", false))
	got, err = w.DisplayValue("sheet-1", "A3")
	require.NoError(t, err)
	assert.Equal(t, "10", got)

	// Absent cells display empty.
	got, err = w.DisplayValue("sheet-1", "Z9")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = w.DisplayValue("nope", "A1")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestDisplayValue_NumberFormat(t *testing.T) {
	w := newTestWorkbook(t)
	require.NoError(t, w.SetCell("sheet-1", "A1", Patch{
		Value: str("1234567.891"),
		Style: &Style{NumberFormat: FormatNumber},
	}, false))

	got, err := w.DisplayValue("sheet-1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "1,234,567.89", got)
}

func TestRecalculate(t *testing.T) {
	w := newTestWorkbook(t)
	require.NoError(t, w.Enter("sheet-1", "A1", "1", false))
	require.NoError(t, w.Enter("sheet-1", "A2", "=A1*10", false))

	// Remote edit arrives without re-entering the formula.
	require.NoError(t, w.SetCell("sheet-1", "A1", Patch{Value: str("5")}, false))
	cell, _ := w.Get("sheet-1", "A2")
	assert.Equal(t, "10", cell.Value, "cache is stale before recalculation")

	require.NoError(t, w.Recalculate("sheet-1"))
	cell, _ = w.Get("sheet-1", "A2")
	assert.Equal(t, "50", cell.Value)
}

func TestAddRemoveSheet(t *testing.T) {
	w := newTestWorkbook(t)
	id2 := w.AddSheet()
	assert.Equal(t, "sheet-2", id2)

	name, err := w.SheetName(id2)
	require.NoError(t, err)
	assert.Equal(t, "Sheet 2", name)

	require.NoError(t, w.SetActive(id2))
	assert.Equal(t, id2, w.Active())

	// Removing the active sheet falls back to the first remaining one.
	require.NoError(t, w.RemoveSheet(id2))
	assert.Equal(t, "sheet-1", w.Active())
	assert.Len(t, w.SheetIDs(), 1)

	err = w.RemoveSheet("sheet-1")
	assert.ErrorIs(t, err, ErrLastSheet)
	assert.Len(t, w.SheetIDs(), 1, "rejected removal must be a no-op")

	err = w.RemoveSheet("ghost")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestSnapshot_IsDetached(t *testing.T) {
	w := newTestWorkbook(t)
	require.NoError(t, w.Enter("sheet-1", "A1", "1", false))

	snap, err := w.Snapshot("sheet-1")
	require.NoError(t, err)

	require.NoError(t, w.Enter("sheet-1", "A1", "999", false))

	v, ok := snap.Lookup("A1")
	assert.True(t, ok)
	assert.Equal(t, "1", v, "snapshot must not see later mutations")

	_, ok = snap.Lookup("B1")
	assert.False(t, ok)
}

func TestExportLoad_RoundTrip(t *testing.T) {
	w := newTestWorkbook(t)
	require.NoError(t, w.Enter("sheet-1", "A1", "=SUM(1,2)", false))
	require.NoError(t, w.SetCell("sheet-1", "B1", Patch{
		Value: str("x"),
		Style: &Style{Bold: true, NumberFormat: FormatInteger},
	}, false))
	id2 := w.AddSheet()
	require.NoError(t, w.SetActive(id2))

	f := w.Export()
	assert.Equal(t, "user-1", f.UserID)
	assert.Equal(t, id2, f.ActiveSheetID)
	require.Len(t, f.Sheets, 2)

	loaded := Load(f)
	assert.Equal(t, w.SheetIDs(), loaded.SheetIDs())
	assert.Equal(t, id2, loaded.Active())

	cell, ok := loaded.Get("sheet-1", "A1")
	require.True(t, ok)
	assert.Equal(t, "=SUM(1,2)", cell.Formula)
	assert.Equal(t, "3", cell.Value)

	// Export is detached from the live workbook.
	require.NoError(t, w.Enter("sheet-1", "A1", "changed", false))
	assert.Equal(t, "=SUM(1,2)", f.Sheets[0].Data["A1"].Formula)
}

func TestLoad_EmptyFileKeepsOneSheet(t *testing.T) {
	loaded := Load(&File{UserID: "u"}, WithIDGenerator(testutil.NewFixedIDs("s")))
	assert.Len(t, loaded.SheetIDs(), 1)
	assert.NotEmpty(t, loaded.Active())
}

func TestFormatDisplay(t *testing.T) {
	assert.Equal(t, "raw", formatDisplay("raw", nil))
	assert.Equal(t, "raw", formatDisplay("raw", &Style{NumberFormat: FormatNumber}),
		"non-numeric values pass through")
	assert.Equal(t, "1,234.50", formatDisplay("1234.5", &Style{NumberFormat: FormatNumber}))
	assert.Equal(t, "1,235", formatDisplay("1234.6", &Style{NumberFormat: FormatInteger}))
	assert.Equal(t, "12.5%", formatDisplay("0.125", &Style{NumberFormat: FormatPercent}))
	assert.Equal(t, "5", formatDisplay("5", &Style{NumberFormat: "bogus"}))
}
