package csvsource

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
)

// File is one station's CSV file. It implements pipeline.Source.
type File struct {
	path      string
	station   string
	id        string
	pollutant string
}

// OpenFile stats path and reads enough of it to learn the station name. The
// returned File's ID changes whenever the file's size or modification time
// does.
func OpenFile(path, pollutant string) (*File, error) {
	if pollutant == "" {
		pollutant = DefaultPollutant
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	station, err := peekStation(abs)
	if err != nil {
		return nil, err
	}
	return &File{
		path:      abs,
		station:   station,
		id:        fmt.Sprintf("%s#%s@%d-%d", abs, pollutant, info.Size(), info.ModTime().UnixNano()),
		pollutant: pollutant,
	}, nil
}

func (f *File) ID() string      { return f.id }
func (f *File) Station() string { return f.station }
func (f *File) Path() string    { return f.path }

// Extract parses the whole file.
func (f *File) Extract(ctx context.Context) ([]domain.RawRecord, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer fh.Close()

	raws, err := Parse(ctx, fh, f.pollutant)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(f.path), err)
	}
	return raws, nil
}

// peekStation returns the station column of the first data row, falling back
// to the name embedded in PRSA file names (PRSA_Data_<Station>_<range>.csv).
func peekStation(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	cr := csv.NewReader(fh)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == nil {
		if row, rerr := cr.Read(); rerr == nil {
			for i, h := range header {
				if strings.EqualFold(strings.TrimSpace(h), "station") && i < len(row) {
					if s := strings.TrimSpace(row[i]); s != "" {
						return s, nil
					}
				}
			}
		}
	}
	return stationFromName(path), nil
}

func stationFromName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if rest, ok := strings.CutPrefix(name, "PRSA_Data_"); ok {
		if i := strings.LastIndex(rest, "_"); i > 0 {
			return rest[:i]
		}
		return rest
	}
	return name
}

// Catalog serves the CSV files under a directory, one station per file. A
// path to a single file serves just that station. Files are re-examined on
// every lookup, so edits are picked up as new source versions.
type Catalog struct {
	root      string
	pollutant string
}

// NewCatalog creates a Catalog over root, a directory or a single file.
func NewCatalog(root, pollutant string) *Catalog {
	return &Catalog{root: root, pollutant: pollutant}
}

// Stations returns the station names, sorted.
func (c *Catalog) Stations(_ context.Context) ([]string, error) {
	files, err := c.files()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Station())
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Source returns the file for station, matched case-insensitively.
func (c *Catalog) Source(_ context.Context, station string) (pipeline.Source, error) {
	files, err := c.files()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if strings.EqualFold(f.Station(), station) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownStation, station)
}

func (c *Catalog) files() ([]*File, error) {
	info, err := os.Stat(c.root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", c.root, err)
	}
	paths := []string{c.root}
	if info.IsDir() {
		paths, err = filepath.Glob(filepath.Join(c.root, "*.csv"))
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", c.root, err)
		}
		slices.Sort(paths)
	}

	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		f, err := OpenFile(p, c.pollutant)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
