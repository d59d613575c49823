package export

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"crossmarket/core/engine"
	"crossmarket/internal/errors"
	"crossmarket/internal/logging"
)

// Format is an output format
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", errors.Newf(errors.TypeInput, "unknown format %q (table, csv, json)", s)
	}
}

// Uploader delivers a payload to a remote location
type Uploader interface {
	Upload(ctx context.Context, location string, data []byte, contentType string) error
}

// Exporter renders a run and writes it to stdout, a file or S3
type Exporter struct {
	csv        CSVOptions
	tableLimit int
	uploader   Uploader
	stdout     io.Writer
	now        func() time.Time
	logger     *zap.Logger
}

// NewExporter creates an exporter. uploader may be nil when S3 is not used.
func NewExporter(csvOpts CSVOptions, uploader Uploader, logger *zap.Logger) *Exporter {
	return &Exporter{
		csv:        csvOpts,
		tableLimit: 25,
		uploader:   uploader,
		stdout:     os.Stdout,
		now:        time.Now,
		logger:     logging.OrNop(logger),
	}
}

// WithStdout redirects "-" and empty destinations
func (e *Exporter) WithStdout(w io.Writer) *Exporter {
	e.stdout = w
	return e
}

// WithTableLimit caps the rows printed by the table format
func (e *Exporter) WithTableLimit(n int) *Exporter {
	e.tableLimit = n
	return e
}

// Render formats res
func (e *Exporter) Render(res *engine.RunResult, format Format) ([]byte, error) {
	if res == nil {
		return nil, errors.Input("nothing to export")
	}
	doc := NewDocument(res, e.now())

	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		if err := NewCSVWriter(e.csv).Write(&buf, doc.Rows); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := WriteJSON(&buf, doc); err != nil {
			return nil, err
		}
	default:
		WriteTable(&buf, doc, e.tableLimit)
	}
	return buf.Bytes(), nil
}

// Export renders res and writes it to dest: "" or "-" for stdout, s3://bucket/key, or a file path
func (e *Exporter) Export(ctx context.Context, res *engine.RunResult, format Format, dest string) error {
	data, err := e.Render(res, format)
	if err != nil {
		return err
	}

	switch {
	case dest == "" || dest == "-":
		if _, err := e.stdout.Write(data); err != nil {
			return errors.Export("failed to write output", err)
		}
		return nil
	case IsS3URL(dest):
		if e.uploader == nil {
			return errors.New(errors.TypeConfig, "S3 destination given but no uploader is configured")
		}
		return e.uploader.Upload(ctx, dest, data, contentType(format))
	default:
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return errors.Export("failed to create output directory", err).WithContext("path", dest)
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return errors.Export("failed to write output file", err).WithContext("path", dest)
		}
		e.logger.Info("export written",
			zap.String("path", dest),
			zap.String("format", string(format)),
			zap.Int("rows", len(res.Opportunities)))
		return nil
	}
}

func contentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}
