package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"crossmarket/core/types"
	"crossmarket/internal/errors"
)

// CSVSource reads one or more listing CSV files into a single snapshot.
// The delimiter is detected per file from its header line unless Comma is set.
type CSVSource struct {
	paths  []string
	comma  rune
	logger *zap.Logger
}

// NewCSVSource creates a CSV source over paths
func NewCSVSource(logger *zap.Logger, paths ...string) *CSVSource {
	return &CSVSource{paths: paths, logger: logger}
}

// WithComma forces a field delimiter
func (s *CSVSource) WithComma(r rune) *CSVSource {
	s.comma = r
	return s
}

// Name returns the joined file names
func (s *CSVSource) Name() string {
	names := make([]string, len(s.paths))
	for i, p := range s.paths {
		names[i] = filepath.Base(p)
	}
	return "csv:" + strings.Join(names, ",")
}

// Load reads every file
func (s *CSVSource) Load(ctx context.Context) (*types.Snapshot, Report, error) {
	if len(s.paths) == 0 {
		return nil, Report{}, errors.Input("no input files")
	}
	c := newCollector(s.Name(), s.logger)
	for _, path := range s.paths {
		if err := s.loadFile(ctx, c, path); err != nil {
			return nil, c.report, err
		}
	}
	snap, report := c.finish()
	return snap, report, nil
}

func (s *CSVSource) loadFile(ctx context.Context, c *collector, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Source("failed to open input file", err).WithContext("path", path)
	}
	defer f.Close()

	if err := readCSV(ctx, f, s.comma, c); err != nil {
		if e, ok := err.(*errors.Error); ok {
			return e.WithContext("path", path)
		}
		return err
	}
	return nil
}

// readCSV feeds a CSV stream into c. comma 0 means detect.
func readCSV(ctx context.Context, r io.Reader, comma rune, c *collector) error {
	br := bufio.NewReader(r)
	if comma == 0 {
		comma = detectComma(br)
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return errors.Structural("input has no header row")
	}
	if err != nil {
		return errors.Source("failed to read header", err)
	}
	if err := c.header(header); err != nil {
		return err
	}

	for n := 0; ; n++ {
		if n%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(errors.TypeInternal, "load cancelled", err)
			}
		}
		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Source("failed to read row", err).WithContext("row", n+1)
		}
		c.add(record)
	}
}

// detectComma picks the most frequent of ';' ',' and tab on the first line
func detectComma(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', 0
	for _, r := range []rune{';', ',', '\t'} {
		if n := strings.Count(string(line), string(r)); n > bestN {
			best, bestN = r, n
		}
	}
	return best
}
