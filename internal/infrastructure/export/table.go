// Package export genera los archivos CSV y PDF de saldos, reservas y movimientos.
package export

import (
	"time"

	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// Column columna del reporte. PDFWidth en la grilla de 12 de maroto; 0 = sólo CSV.
type Column struct {
	Header   string
	PDFWidth int
}

// Table datos ya formateados, comunes a CSV y PDF.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

const (
	csvTime = time.RFC3339
	pdfTime = "02/01/2006 15:04"
)

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// BalancesTable saldos por línea.
func BalancesTable(rows []repository.BalanceRow) Table {
	t := Table{
		Title: "Saldos de stock",
		Columns: []Column{
			{"Unidad (código)", 0}, {"Unidad", 2}, {"Producto (código)", 2}, {"Producto", 3},
			{"Lote", 2}, {"Disponible", 1}, {"Reservado", 1}, {"Neto", 1}, {"Actualizado", 0},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.UnitCode, r.UnitName, r.ProductCode, r.ProductName, str(r.LotNumber),
			r.Available.String(), r.Reserved.String(), r.Net.String(), r.UpdatedAt.UTC().Format(csvTime),
		})
	}
	return t
}

// ReservationsTable reservas (activas o histórico).
func ReservationsTable(title string, rows []repository.ReservationRow) Table {
	t := Table{
		Title: title,
		Columns: []Column{
			{"ID", 0}, {"Unidad", 2}, {"Producto (código)", 1}, {"Producto", 3}, {"Lote", 1},
			{"Cantidad", 1}, {"Estado", 1}, {"Vence", 2}, {"Creada", 0}, {"Referencia", 1},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.ID, r.UnitName, r.ProductCode, r.ProductName, str(r.LotNumber),
			r.Quantity.String(), r.Status, r.ExpiresAt.UTC().Format(csvTime), r.CreatedAt.UTC().Format(csvTime),
			str(r.ReferenceDocument),
		})
	}
	return t
}

// MovementsTable histórico de movimientos.
func MovementsTable(rows []repository.MovementRow) Table {
	t := Table{
		Title: "Movimientos de stock",
		Columns: []Column{
			{"ID", 0}, {"Fecha", 2}, {"Unidad", 2}, {"Producto (código)", 1}, {"Producto", 3},
			{"Lote", 1}, {"Tipo", 1}, {"Cantidad", 1}, {"Referencia", 1},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.ID, r.OccurredAt.UTC().Format(csvTime), r.UnitName, r.ProductCode, r.ProductName,
			str(r.LotNumber), r.Kind, r.Quantity.String(), str(r.ReferenceDocument),
		})
	}
	return t
}

// FileName "{recurso}_{yyyyMMdd_HHmmss}.{ext}".
func FileName(resource string, at time.Time, ext string) string {
	return resource + "_" + at.UTC().Format("20060102_150405") + "." + ext
}
