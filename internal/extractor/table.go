package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/docs-crawler/pkg/failure"
)

/*
TablePlugin extracts every top-level HTML table as a grid of cell text,
expanding rowspan/colspan so the resulting grid is rectangular (grounded
on crawlit's extractors/tables.py). Tables nested inside another table are
skipped; their cells already belong to the enclosing table's grid.
*/

var tableFootnoteRe = regexp.MustCompile(`\[\d+\]`)

// TablePlugin extracts a "tables" field.
type TablePlugin struct {
	MinRows int
	MinCols int
}

// NewTablePlugin constructs a TablePlugin with crawlit's original
// defaults (every non-empty table qualifies).
func NewTablePlugin() *TablePlugin {
	return &TablePlugin{MinRows: 1, MinCols: 1}
}

func (p *TablePlugin) Name() string { return "table" }

func (p *TablePlugin) Extract(doc *goquery.Document) (map[string]any, failure.ClassifiedError) {
	var tables [][][]string

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if isNestedTable(table) {
			return
		}
		grid := extractTableGrid(table)
		if len(grid) < p.MinRows {
			return
		}
		hasWideEnoughRow := false
		for _, row := range grid {
			if len(row) >= p.MinCols {
				hasWideEnoughRow = true
				break
			}
		}
		if !hasWideEnoughRow {
			return
		}
		tables = append(tables, grid)
	})

	if tables == nil {
		tables = [][][]string{}
	}
	return map[string]any{"tables": tables}, nil
}

func isNestedTable(table *goquery.Selection) bool {
	nested := false
	table.ParentsFiltered("table").Each(func(_ int, _ *goquery.Selection) {
		nested = true
	})
	return nested
}

// belongsToTable reports whether tr's closest table ancestor is table
// itself, as opposed to some table nested inside one of tr's cells.
func belongsToTable(tr, table *goquery.Selection) bool {
	closest := tr.Closest("table")
	if closest.Length() == 0 {
		return false
	}
	return closest.Nodes[0] == table.Nodes[0]
}

type pendingSpan struct {
	text     string
	rowsLeft int
}

func pendingAtOrAfter(pending map[int]pendingSpan, col int) bool {
	for c := range pending {
		if c >= col {
			return true
		}
	}
	return false
}

// extractTableGrid walks <tr> rows top to bottom, expanding rowspan and
// colspan attributes column by column so every row in the result has a
// consistent cell count (carried-over spanning cells are repeated
// verbatim, matching how a browser renders them).
func extractTableGrid(table *goquery.Selection) [][]string {
	var grid [][]string
	pending := map[int]pendingSpan{}

	rows := table.Find("tr")
	rows.Each(func(_ int, tr *goquery.Selection) {
		// Rows belonging to a table nested inside one of this table's
		// cells are skipped; their text is already part of that cell's text.
		if !belongsToTable(tr, table) {
			return
		}

		var row []string
		col := 0
		cells := tr.Find("> td, > th")
		cellIdx, totalCells := 0, cells.Length()

		for cellIdx < totalCells || pendingAtOrAfter(pending, col) {
			if carry, ok := pending[col]; ok {
				row = append(row, carry.text)
				if carry.rowsLeft--; carry.rowsLeft > 0 {
					pending[col] = carry
				} else {
					delete(pending, col)
				}
				col++
				continue
			}
			if cellIdx >= totalCells {
				break
			}
			cell := cells.Eq(cellIdx)
			cellIdx++
			text := cleanCellContent(cell)
			colspan := attrInt(cell, "colspan", 1)
			rowspan := attrInt(cell, "rowspan", 1)

			for i := 0; i < colspan; i++ {
				row = append(row, text)
				if rowspan > 1 {
					pending[col] = pendingSpan{text: text, rowsLeft: rowspan - 1}
				}
				col++
			}
		}

		grid = append(grid, row)
	})

	return grid
}

func cleanCellContent(cell *goquery.Selection) string {
	text := cell.Text()
	text = tableFootnoteRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, " ", " ")
	return strings.Join(strings.Fields(text), " ")
}

func attrInt(s *goquery.Selection, name string, fallback int) int {
	val, exists := s.Attr(name)
	if !exists {
		return fallback
	}
	n := 0
	for _, r := range val {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return fallback
	}
	return n
}
