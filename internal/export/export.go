// Package export writes the records an ingestion scope applied to local
// backup files (CSV, JSON, Parquet) and optionally ships them to S3.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// Format is a backup file encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

// ParseFormats parses a list such as "csv,parquet". Unknown names are errors.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			f := Format(strings.ToLower(strings.TrimSpace(part)))
			if f == "" || seen[f] {
				continue
			}
			switch f {
			case FormatCSV, FormatJSON, FormatParquet:
			default:
				return nil, fmt.Errorf("unknown export format %q", part)
			}
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Uploader stores a finished backup file remotely.
type Uploader interface {
	Upload(ctx context.Context, key, path string) error
}

// Backup writes one file per format for every exported scope.
type Backup struct {
	Dir      string
	Formats  []Format
	Target   string   // appended to file names so targets never overwrite each other
	Uploader Uploader // optional
	Prefix   string   // remote key prefix

	logger *slog.Logger
	now    func() time.Time
}

// NewBackup returns a Backup writing into dir.
func NewBackup(dir, target string, formats []Format, logger *slog.Logger) *Backup {
	if logger == nil {
		logger = slog.Default()
	}
	if len(formats) == 0 {
		formats = []Format{FormatCSV}
	}
	return &Backup{Dir: dir, Formats: formats, Target: target, logger: logger, now: time.Now}
}

// FileName returns the base name of a backup file without extension.
func (b *Backup) FileName(cat provider.Category, season int) string {
	name := fmt.Sprintf("ngs_%s_%d", cat, season)
	if b.Target != "" {
		name += "_" + b.Target
	}
	return name
}

// Export writes recs in every configured format, then uploads each file.
func (b *Backup) Export(ctx context.Context, cat provider.Category, season int, recs []provider.Record) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	spec := cat.Spec()
	stamp := b.now().UTC().Format("20060102T150405Z")

	for _, f := range b.Formats {
		path := filepath.Join(b.Dir, b.FileName(cat, season)+"."+string(f))
		if err := Write(path, f, spec, recs); err != nil {
			return err
		}
		b.logger.Info("Wrote backup", "path", path, "rows", len(recs))

		if b.Uploader == nil {
			continue
		}
		key := strings.TrimPrefix(fmt.Sprintf("%s/%s/%s", strings.Trim(b.Prefix, "/"), stamp, filepath.Base(path)), "/")
		if err := b.Uploader.Upload(ctx, key, path); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		b.logger.Info("Uploaded backup", "key", key)
	}
	return nil
}

// Write creates the backup file at path in format f.
func Write(path string, f Format, spec provider.CategorySpec, recs []provider.Record) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	switch f {
	case FormatCSV:
		err = WriteCSV(out, spec, recs)
	case FormatJSON:
		err = WriteJSON(out, spec, recs)
	case FormatParquet:
		err = WriteParquet(out, spec, recs)
	default:
		err = fmt.Errorf("unknown export format %q", f)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
