package export

import (
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// PDF genera un reporte A4 apaisado con título, fecha de emisión y la tabla.
// Sólo se incluyen las columnas con PDFWidth > 0.
func PDF(t Table, organizationID string, generatedAt time.Time) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(t.Title, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(titleRow(t.Title, organizationID, generatedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(headerRow(t.Columns))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.2}))
	for _, r := range t.Rows {
		m.AddRows(dataRow(t.Columns, r))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.2}))
	m.AddRows(row.New(6).Add(col.New(12).Add(text.New(
		fmt.Sprintf("Total de registros: %d", len(t.Rows)),
		props.Text{Size: 8, Align: align.Right, Top: 1, Color: colorGray},
	))))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func titleRow(title, organizationID string, at time.Time) core.Row {
	return row.New(14).Add(
		col.New(8).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("Organización: "+organizationID, props.Text{Size: 8, Top: 8, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("Emitido: "+at.UTC().Format(pdfTime)+" UTC", props.Text{Size: 8, Align: align.Right, Top: 3, Color: colorGray}),
		),
	)
}

func headerRow(cols []Column) core.Row {
	r := row.New(7)
	for _, c := range cols {
		if c.PDFWidth == 0 {
			continue
		}
		r.Add(col.New(c.PDFWidth).Add(text.New(c.Header, props.Text{
			Style: fontstyle.Bold, Size: 8, Top: 1.5, Left: 1, Color: colorPrimary,
		})))
	}
	return r
}

func dataRow(cols []Column, values []string) core.Row {
	r := row.New(6)
	for i, c := range cols {
		if c.PDFWidth == 0 || i >= len(values) {
			continue
		}
		r.Add(col.New(c.PDFWidth).Add(text.New(values[i], props.Text{Size: 7, Top: 1, Left: 1})))
	}
	return r
}
