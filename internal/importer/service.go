package importer

import (
	"fmt"
	"io"

	"github.com/MrJamesThe3rd/reconciler/internal/importer/csvfile"
	"github.com/MrJamesThe3rd/reconciler/internal/importer/jsonfile"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

type Service struct {
	importers map[Format]Importer
}

func NewService() *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatCSV:  csvfile.NewParser(),
			FormatJSON: jsonfile.NewDecoder(),
		},
	}
}

func (s *Service) Import(format Format, kind record.Kind, r io.Reader) (*record.Batch, error) {
	importer, ok := s.importers[format]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	return importer.Parse(kind, r)
}
