/*
Package ingest decodes uploaded ticket-history exports and encodes
enriched results back to spreadsheet formats.

PURPOSE:
  The boundary between file formats and the engine. Uploads arrive as
  CSV or XLSX; both decode to an engine.Table of raw string cells, with
  spreadsheet numerics (serial dates) kept in their raw textual form so
  the engine's datetime normalizer can interpret them. Exports go the
  other way: the enriched table renders to XLSX (with the derived
  columns highlighted) or CSV.

FORMAT DETECTION:
  Decode sniffs the XLSX zip signature rather than trusting the file
  extension; browsers and proxies mangle both names and content types.

SEE ALSO:
  - engine/table.go: The Table the decoders produce
  - api/handlers.go: The upload handler driving this package
*/
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/warp/sla-engine/engine"
)

// xlsxSignature is the zip local-file-header magic an XLSX file opens with.
var xlsxSignature = []byte{0x50, 0x4b, 0x03, 0x04}

// Decode reads an uploaded export in either CSV or XLSX form. The
// returned table is raw: callers run engine.Prepare before deriving.
func Decode(r io.Reader) (engine.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return engine.Table{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if bytes.HasPrefix(data, xlsxSignature) {
		return DecodeXLSX(bytes.NewReader(data))
	}
	return DecodeCSV(bytes.NewReader(data))
}

// DecodeCSV reads a CSV export. Rows may be ragged; the engine pads
// them during Prepare.
func DecodeCSV(r io.Reader) (engine.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return engine.Table{}, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return engine.Table{}, fmt.Errorf("export has no header row")
	}

	return engine.Table{Headers: records[0], Rows: records[1:]}, nil
}

// EncodeCSV writes the table as CSV.
func EncodeCSV(w io.Writer, t engine.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// SheetBaseName strips a file extension for use as a sheet title.
func SheetBaseName(filename string) string {
	name := filename
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "Report"
	}
	return name
}
