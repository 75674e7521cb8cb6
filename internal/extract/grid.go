package extract

import (
	"sort"
	"strings"
)

// Geometry constants for grid reconstruction. PDF user space has its origin
// at the bottom-left corner, so larger Y means higher on the page.
const (
	rowTolerance    = 4.0  // max Y delta for spans on the same visual row
	cellGap         = 10.0 // min horizontal whitespace separating two cells
	columnTolerance = 16.0 // max X delta when aligning cells into columns
	minTableRows    = 2    // rows needed before a block counts as a table
	minTableCells   = 2    // cells needed before a row counts as tabular
)

// textSpan is one positioned run of page text.
type textSpan struct {
	x, y, w float64
	s       string
}

// gridCell is a merged cell candidate with its left edge.
type gridCell struct {
	x    float64
	text string
}

// clusterRows groups spans into visual rows by Y proximity, top of page
// first, left to right within a row.
func clusterRows(spans []textSpan) [][]textSpan {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]textSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].y != sorted[j].y {
			return sorted[i].y > sorted[j].y
		}
		return sorted[i].x < sorted[j].x
	})

	var rows [][]textSpan
	current := []textSpan{sorted[0]}
	rowY := sorted[0].y
	for _, sp := range sorted[1:] {
		if rowY-sp.y > rowTolerance {
			rows = append(rows, current)
			current = nil
			rowY = sp.y
		}
		current = append(current, sp)
	}
	rows = append(rows, current)

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].x < row[j].x })
	}
	return rows
}

// rowCells merges adjacent spans of one row into cells. A new cell starts
// where the horizontal gap to the previous span exceeds cellGap; smaller
// gaps are intra-cell spacing and join with a space when visible.
func rowCells(row []textSpan) []gridCell {
	var cells []gridCell
	var buf strings.Builder
	var cellX, rightEdge float64

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			cells = append(cells, gridCell{x: cellX, text: text})
		}
		buf.Reset()
	}

	for i, sp := range row {
		if i == 0 {
			cellX = sp.x
		} else {
			gap := sp.x - rightEdge
			switch {
			case gap > cellGap:
				flush()
				cellX = sp.x
			case gap > 1.0:
				buf.WriteByte(' ')
			}
		}
		buf.WriteString(sp.s)
		rightEdge = sp.x + sp.w
	}
	flush()
	return cells
}

// buildTables reconstructs table grids from page spans. Consecutive rows
// with at least minTableCells cells form one table block; blocks shorter
// than minTableRows are treated as flowing text, not tables. A row with a
// single cell stays in an open block when its left edge aligns with one of
// the block's inner columns, which is the shape of a wrapped content cell,
// whereas flowing text returns to the left margin. Each emitted grid has
// the same cell count on every row, empty strings for cells the row does
// not populate.
func buildTables(spans []textSpan) [][][]string {
	rows := clusterRows(spans)

	var tables [][][]string
	var block [][]gridCell
	var blockCols []float64
	closeBlock := func() {
		if len(block) >= minTableRows {
			tables = append(tables, alignColumns(block))
		}
		block = nil
		blockCols = nil
	}

	for _, row := range rows {
		cells := rowCells(row)
		switch {
		case len(cells) >= minTableCells:
			block = append(block, cells)
			for _, c := range cells {
				blockCols = append(blockCols, c.x)
			}
		case len(cells) == 1 && len(block) > 0 && alignsWithInnerColumn(blockCols, cells[0].x):
			block = append(block, cells)
		default:
			closeBlock()
		}
	}
	closeBlock()
	return tables
}

// alignsWithInnerColumn reports whether x sits on one of the block's known
// column starts other than the leftmost one.
func alignsWithInnerColumn(cols []float64, x float64) bool {
	if len(cols) == 0 {
		return false
	}
	leftmost := cols[0]
	for _, c := range cols {
		if c < leftmost {
			leftmost = c
		}
	}
	for _, c := range cols {
		if c-leftmost > columnTolerance && abs(x-c) <= columnTolerance {
			return true
		}
	}
	return false
}

// alignColumns maps the cells of a table block onto a shared column layout
// derived from clustering cell left edges across all rows.
func alignColumns(block [][]gridCell) [][]string {
	var edges []float64
	for _, row := range block {
		for _, c := range row {
			edges = append(edges, c.x)
		}
	}
	sort.Float64s(edges)

	var columns []float64
	for _, x := range edges {
		if len(columns) == 0 || x-columns[len(columns)-1] > columnTolerance {
			columns = append(columns, x)
		}
	}

	grid := make([][]string, len(block))
	for i, row := range block {
		cells := make([]string, len(columns))
		for _, c := range row {
			col := nearestColumn(columns, c.x)
			if cells[col] != "" {
				cells[col] += " "
			}
			cells[col] += c.text
		}
		grid[i] = cells
	}
	return grid
}

func nearestColumn(columns []float64, x float64) int {
	best := 0
	for i := range columns {
		if abs(x-columns[i]) < abs(x-columns[best]) {
			best = i
		}
	}
	return best
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
