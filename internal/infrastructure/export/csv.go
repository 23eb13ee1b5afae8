package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// utf8BOM para que planillas abran el archivo como UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV serializa la tabla con BOM y cabecera.
func CSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)

	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("csv: escribir cabecera: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("csv: escribir filas: %w", err)
	}
	return buf.Bytes(), nil
}
