package importer

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// FormatFromFilename picks the format by extension; anything that is not
// JSON is read as CSV.
func FormatFromFilename(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return FormatJSON
	}

	return FormatCSV
}

type Importer interface {
	Parse(kind record.Kind, r io.Reader) (*record.Batch, error)
}
