package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Statement"

var (
	xlsxColumns = []string{"A", "B", "C", "D", "E"}
	xlsxWidths  = []float64{44, 16, 12, 16, 18}
)

type xlsxStyles struct {
	title, subtitle, header, category, line, money, summaryLabel, summaryValue int
}

// XLSX writes the statement as a single-sheet workbook grouped by category.
func XLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}
	for i, col := range xlsxColumns {
		if err := f.SetColWidth(sheetName, col, col, xlsxWidths[i]); err != nil {
			return fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	st, err := newXLSXStyles(f)
	if err != nil {
		return err
	}

	lastCol := xlsxColumns[len(xlsxColumns)-1]
	set := func(cell string, v any, style int) {
		f.SetCellValue(sheetName, cell, v)
		f.SetCellStyle(sheetName, cell, cell, style)
	}

	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	set("A1", sanitizeCell(doc.Company), st.title)
	set("A2", sanitizeCell(doc.title()), st.subtitle)
	row := 3
	if doc.Details.ClientName != "" {
		set(fmt.Sprintf("A%d", row), "Client: "+sanitizeCell(doc.Details.ClientName), st.subtitle)
		row++
	}
	if doc.Details.Address != "" {
		set(fmt.Sprintf("A%d", row), "Address: "+sanitizeCell(doc.Details.Address), st.subtitle)
		row++
	}
	set(fmt.Sprintf("A%d", row), "Date: "+doc.date(), st.subtitle)
	row += 2

	for i, h := range []string{"Description", "Unit", "Qty", "Unit Price", "Total"} {
		set(fmt.Sprintf("%s%d", xlsxColumns[i], row), h, st.header)
	}
	row++

	for _, sec := range doc.sections() {
		if err := f.MergeCell(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row)); err != nil {
			return fmt.Errorf("merge category: %w", err)
		}
		set(fmt.Sprintf("A%d", row), sanitizeCell(sec.Category), st.category)
		row++
		for _, l := range sec.Lines {
			set(fmt.Sprintf("A%d", row), sanitizeCell(l.Description), st.line)
			set(fmt.Sprintf("B%d", row), sanitizeCell(l.Unit), st.line)
			set(fmt.Sprintf("C%d", row), l.Quantity, st.line)
			set(fmt.Sprintf("D%d", row), l.UnitPrice, st.money)
			set(fmt.Sprintf("E%d", row), l.Total, st.money)
			row++
		}
	}
	row++

	for _, s := range doc.summary() {
		set(fmt.Sprintf("D%d", row), s.label, st.summaryLabel)
		set(fmt.Sprintf("E%d", row), s.value, st.summaryValue)
		row++
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	moneyFmt := "$#,##0.00"
	defs := []struct {
		name  string
		style *excelize.Style
	}{
		{"title", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{"subtitle", &excelize.Style{Font: &excelize.Font{Size: 11}}},
		{"header", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    thinBorders(),
		}},
		{"category", &excelize.Style{
			Font:   &excelize.Font{Bold: true, Size: 10},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
			Border: thinBorders(),
		}},
		{"line", &excelize.Style{Font: &excelize.Font{Size: 10}, Border: thinBorders()}},
		{"money", &excelize.Style{Font: &excelize.Font{Size: 10}, Border: thinBorders(), CustomNumFmt: &moneyFmt}},
		{"summary label", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11},
			Alignment: &excelize.Alignment{Horizontal: "right"},
		}},
		{"summary value", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 11}, CustomNumFmt: &moneyFmt}},
	}

	var st xlsxStyles
	targets := []*int{&st.title, &st.subtitle, &st.header, &st.category, &st.line, &st.money, &st.summaryLabel, &st.summaryValue}
	for i, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return xlsxStyles{}, fmt.Errorf("create %s style: %w", d.name, err)
		}
		*targets[i] = id
	}
	return st, nil
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}

// sanitizeCell stops spreadsheet apps from evaluating user text as a formula.
func sanitizeCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}
