package grid

// Style holds presentation attributes. Style never affects evaluation.
type Style struct {
	Bold         bool   `json:"bold,omitempty"`
	Italic       bool   `json:"italic,omitempty"`
	Underline    bool   `json:"underline,omitempty"`
	Background   string `json:"background,omitempty"`
	Color        string `json:"color,omitempty"`
	Align        string `json:"align,omitempty"`
	NumberFormat string `json:"number_format,omitempty"`
	FontSize     int    `json:"font_size,omitempty"`
}

// Cell is one cell record.
//
// Value is the last computed or entered textual representation and is
// always present (empty string is a valid value). Formula is set iff the
// authored content began with the formula marker and holds the raw text
// including the marker.
type Cell struct {
	Value   string `json:"value"`
	Formula string `json:"formula,omitempty"`
	Style   *Style `json:"style,omitempty"`
}

// Patch is a partial cell update. Nil fields leave the corresponding
// cell field untouched; a pointer to the zero value clears it. This is
// the shallow-merge payload carried by edit events.
type Patch struct {
	Value   *string `json:"value,omitempty"`
	Formula *string `json:"formula,omitempty"`
	Style   *Style  `json:"style,omitempty"`
}

// merge applies the patch to a cell, returning the merged record.
func (c Cell) merge(p Patch) Cell {
	if p.Value != nil {
		c.Value = *p.Value
	}
	if p.Formula != nil {
		c.Formula = *p.Formula
	}
	if p.Style != nil {
		s := *p.Style
		c.Style = &s
	}
	return c
}

// Equal reports whether applying the patch would change the cell.
// Used to make re-applied edit events observable no-ops.
func (c Cell) equalAfter(p Patch) bool {
	return sameCell(c, c.merge(p))
}

func sameCell(a, b Cell) bool {
	if a.Value != b.Value || a.Formula != b.Formula {
		return false
	}
	if (a.Style == nil) != (b.Style == nil) {
		return false
	}
	return a.Style == nil || *a.Style == *b.Style
}

func str(s string) *string {
	return &s
}
