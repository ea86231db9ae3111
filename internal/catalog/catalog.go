// Package catalog builds the lookup structures that drive the vehicle form:
// the sorted brand, fuel type and transmission lists and the sorted models
// offered for each brand.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
)

// Dataset column names.
const (
	ColumnMake         = "Make"
	ColumnModel        = "Model"
	ColumnFuelType     = "Fuel Type"
	ColumnTransmission = "Transmission"
)

// Record is one row of the dataset reduced to the columns the form needs.
type Record struct {
	Make         string
	Model        string
	FuelType     string
	Transmission string
}

// Categories holds the global option lists, each deduplicated and sorted.
type Categories struct {
	Brands        []string `json:"brands"`
	FuelTypes     []string `json:"fuel_types"`
	Transmissions []string `json:"transmissions"`
}

// ModelsByBrand maps a brand to its deduplicated, sorted model names.
type ModelsByBrand map[string][]string

// Index is the immutable catalog built once at startup. Accessors return
// copies so callers cannot mutate shared state.
type Index struct {
	categories    Categories
	modelsByBrand ModelsByBrand
	rows          int
	missingMake   int
}

// LoadFile opens path and builds an Index from it.
func LoadFile(ctx context.Context, path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("failed to load car data", "path", path, "error", err)
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	idx, err := Load(ctx, f)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
		}
		slog.Error("failed to load car data", "path", path, "error", err)
		return nil, err
	}

	slog.Info("car data loaded", "path", path, "rows", idx.rows, "brands", len(idx.categories.Brands))
	return idx, nil
}

// Load streams CSV records from r and builds an Index. The first row must be
// a header naming the dataset columns; other columns are ignored. A missing
// column or short row yields an empty value, which is indexed as-is.
func Load(ctx context.Context, r io.Reader) (*Index, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrMissingHeader
		}
		return nil, &LoadError{Err: err}
	}
	cols := columnIndex(header)

	b := newBuilder()
	for {
		if err := ctx.Err(); err != nil {
			return nil, &LoadError{Err: err}
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Err: err}
		}

		b.add(Record{
			Make:         cols.field(row, ColumnMake),
			Model:        cols.field(row, ColumnModel),
			FuelType:     cols.field(row, ColumnFuelType),
			Transmission: cols.field(row, ColumnTransmission),
		})
	}

	idx := b.build()
	if idx.missingMake > 0 {
		slog.Warn("dataset rows without a make were indexed under an empty brand", "rows", idx.missingMake)
	}
	return idx, nil
}

// FromRecords builds an Index from in-memory records.
func FromRecords(records []Record) *Index {
	b := newBuilder()
	for _, rec := range records {
		b.add(rec)
	}
	return b.build()
}

type columns map[string]int

func columnIndex(header []string) columns {
	cols := make(columns, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	return cols
}

func (c columns) field(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

type set map[string]struct{}

func (s set) sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

type builder struct {
	brands        set
	fuelTypes     set
	transmissions set
	models        map[string]set
	rows          int
	missingMake   int
}

func newBuilder() *builder {
	return &builder{
		brands:        set{},
		fuelTypes:     set{},
		transmissions: set{},
		models:        map[string]set{},
	}
}

func (b *builder) add(rec Record) {
	b.rows++
	if rec.Make == "" {
		b.missingMake++
	}

	models, ok := b.models[rec.Make]
	if !ok {
		models = set{}
		b.models[rec.Make] = models
	}
	models[rec.Model] = struct{}{}

	b.brands[rec.Make] = struct{}{}
	b.fuelTypes[rec.FuelType] = struct{}{}
	b.transmissions[rec.Transmission] = struct{}{}
}

func (b *builder) build() *Index {
	byBrand := make(ModelsByBrand, len(b.models))
	for brand, models := range b.models {
		byBrand[brand] = models.sorted()
	}

	return &Index{
		categories: Categories{
			Brands:        b.brands.sorted(),
			FuelTypes:     b.fuelTypes.sorted(),
			Transmissions: b.transmissions.sorted(),
		},
		modelsByBrand: byBrand,
		rows:          b.rows,
		missingMake:   b.missingMake,
	}
}

// Categories returns a copy of the global option lists.
func (i *Index) Categories() Categories {
	return Categories{
		Brands:        slices.Clone(i.categories.Brands),
		FuelTypes:     slices.Clone(i.categories.FuelTypes),
		Transmissions: slices.Clone(i.categories.Transmissions),
	}
}

// ModelsByBrand returns a deep copy of the brand to models mapping.
func (i *Index) ModelsByBrand() ModelsByBrand {
	out := make(ModelsByBrand, len(i.modelsByBrand))
	for brand, models := range i.modelsByBrand {
		out[brand] = slices.Clone(models)
	}
	return out
}

// Models returns the sorted models for brand and whether the brand is known.
func (i *Index) Models(brand string) ([]string, bool) {
	models, ok := i.modelsByBrand[brand]
	return slices.Clone(models), ok
}

// Rows returns the number of data rows ingested.
func (i *Index) Rows() int {
	return i.rows
}

// MissingMake returns the number of rows indexed without a make.
func (i *Index) MissingMake() int {
	return i.missingMake
}

// HasBrand reports whether brand appears in the dataset.
func (i *Index) HasBrand(brand string) bool {
	return contains(i.categories.Brands, brand)
}

// HasModel reports whether model is listed for brand.
func (i *Index) HasModel(brand, model string) bool {
	return contains(i.modelsByBrand[brand], model)
}

// HasFuelType reports whether fuelType appears in the dataset.
func (i *Index) HasFuelType(fuelType string) bool {
	return contains(i.categories.FuelTypes, fuelType)
}

// HasTransmission reports whether transmission appears in the dataset.
func (i *Index) HasTransmission(transmission string) bool {
	return contains(i.categories.Transmissions, transmission)
}

func contains(sorted []string, v string) bool {
	_, found := slices.BinarySearch(sorted, v)
	return found
}
