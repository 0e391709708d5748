package nflverse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// FileSource reads NGS files from a local directory laid out like the
// release: ngs_{category}.csv.gz or ngs_{category}.csv. Used for offline
// runs and replaying a saved download.
type FileSource struct {
	Dir string

	mu   sync.Mutex
	memo map[provider.Category][]provider.RawRecord
}

// NewFileSource returns a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir, memo: make(map[provider.Category][]provider.RawRecord)}
}

// Fetch returns the rows of cat for one season. A missing file or a season
// with no rows wraps provider.ErrSourceUnavailable.
func (s *FileSource) Fetch(ctx context.Context, cat provider.Category, season int) ([]provider.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all, err := s.load(cat)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", provider.ErrSourceUnavailable, cat, err)
	}
	rows, dated := filterSeason(all, season)
	if dated == 0 {
		return nil, fmt.Errorf("%w: no %s rows for season %d in %s", provider.ErrSourceUnavailable, cat, season, s.Dir)
	}
	return rows, nil
}

func (s *FileSource) load(cat provider.Category) ([]provider.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memo == nil {
		s.memo = make(map[provider.Category][]provider.RawRecord)
	}
	if rows, ok := s.memo[cat]; ok {
		return rows, nil
	}

	base := filepath.Join(s.Dir, "ngs_"+string(cat))
	for _, candidate := range []struct {
		path    string
		gzipped bool
	}{
		{base + ".csv.gz", true},
		{base + ".csv", false},
	} {
		f, err := os.Open(candidate.path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows, err := decode(f, candidate.gzipped, cat)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", candidate.path, err)
		}
		s.memo[cat] = rows
		return rows, nil
	}
	return nil, fmt.Errorf("no ngs_%s.csv(.gz) in %s", cat, s.Dir)
}
