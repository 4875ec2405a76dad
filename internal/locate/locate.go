// Package locate resolves a ZIP code to a coordinate and ranks distributors
// around it, reading the same sheet layout the distributor spreadsheet uses.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/srcpatch/internal/ranker"
)

// Sheet and column names of the distributor workbook.
const (
	ZipSheet        = "GA Zip Codes"
	CommercialSheet = "GAF Distributors - Commercial"
	HomeDepotSheet  = "GAF Distributors - HD"
	LowesSheet      = "GAF Distributors - Lowes"

	colZip       = "ZIP Code"
	colZipLat    = "Latitude"
	colZipLon    = "Longitude"
	colName      = "Distributor Name"
	colStreet    = "Street Number & Name"
	colAddress   = "Address"
	colCity      = "City"
	colLatitude  = "Latitude (N)"
	colLongitude = "Longitude (W)"
)

var (
	// ErrTargetNotFound is returned when the ZIP code has no usable row.
	ErrTargetNotFound = errors.New("target not found")
	// ErrUnknownType is returned by ParseType.
	ErrUnknownType = errors.New("unknown distributor type")
)

// DistributorType selects which distributor sheets are searched.
type DistributorType string

const (
	Commercial DistributorType = "commercial"
	Retail     DistributorType = "retail"
	All        DistributorType = "all"
)

// ParseType accepts commercial, retail or all, case-insensitively. Empty means all.
func ParseType(s string) (DistributorType, error) {
	switch t := DistributorType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return All, nil
	case Commercial, Retail, All:
		return t, nil
	default:
		return "", fmt.Errorf("%w %q (want commercial, retail or all)", ErrUnknownType, s)
	}
}

// Sheets returns the sheets holding distributors of type t.
func (t DistributorType) Sheets() []string {
	switch t {
	case Commercial:
		return []string{CommercialSheet}
	case Retail:
		return []string{HomeDepotSheet, LowesSheet}
	default:
		return []string{CommercialSheet, HomeDepotSheet, LowesSheet}
	}
}

// Table reads a sheet as rows keyed by header.
type Table interface {
	Rows(ctx context.Context, sheet string) ([]map[string]string, error)
}

// Result is the lookup response.
type Result struct {
	ZipCode         string          `json:"zip_code"`
	DistributorType DistributorType `json:"distributor_type"`
	Results         []ranker.Ranked `json:"results"`
	// Dropped counts distributor rows without usable coordinates.
	Dropped int `json:"-"`
}

// Finder answers nearest-distributor queries against a Table.
type Finder struct {
	table  Table
	logger *zap.Logger
}

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets the logger for dropped-row diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(f *Finder) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFinder creates a Finder over table.
func NewFinder(table Table, opts ...Option) *Finder {
	f := &Finder{table: table, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Target returns the centroid of zip. Only the first matching row is
// considered; if its coordinates are unusable the ZIP counts as not found.
func (f *Finder) Target(ctx context.Context, zip string) (ranker.Coordinate, error) {
	rows, err := f.table.Rows(ctx, ZipSheet)
	if err != nil {
		return ranker.Coordinate{}, fmt.Errorf("read %s: %w", ZipSheet, err)
	}
	zip = strings.TrimSpace(zip)
	for _, row := range rows {
		if strings.TrimSpace(row[colZip]) != zip {
			continue
		}
		c, err := ranker.ParseCoordinate(row[colZipLat], row[colZipLon])
		if err != nil {
			f.logger.Warn("zip row has unusable coordinates", zap.String("zip", zip), zap.Error(err))
			break
		}
		return c, nil
	}
	return ranker.Coordinate{}, fmt.Errorf("zip code %s: %w", zip, ErrTargetNotFound)
}

// Nearest returns the k distributors of type t closest to zip.
func (f *Finder) Nearest(ctx context.Context, zip string, t DistributorType, k int) (Result, error) {
	if t == "" {
		t = All
	}
	target, err := f.Target(ctx, zip)
	if err != nil {
		return Result{}, err
	}

	var candidates []ranker.Candidate
	for _, sheet := range t.Sheets() {
		rows, err := f.table.Rows(ctx, sheet)
		if err != nil {
			return Result{}, fmt.Errorf("read %s: %w", sheet, err)
		}
		for _, row := range rows {
			candidates = append(candidates, candidateFromRow(row))
		}
	}

	ranked, dropped := ranker.Rank(target, candidates, k)
	if dropped > 0 {
		f.logger.Debug("dropped distributors without coordinates", zap.Int("count", dropped))
	}
	return Result{
		ZipCode:         strings.TrimSpace(zip),
		DistributorType: t,
		Results:         ranked,
		Dropped:         dropped,
	}, nil
}

// candidateFromRow prefers the street column and falls back to Address only
// when the sheet has no street column at all.
func candidateFromRow(row map[string]string) ranker.Candidate {
	street, ok := row[colStreet]
	if !ok {
		street = row[colAddress]
	}
	return ranker.Candidate{
		Name:      row[colName],
		Address:   street + ", " + row[colCity],
		Latitude:  row[colLatitude],
		Longitude: row[colLongitude],
	}
}
