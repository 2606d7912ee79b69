// Package importer moves coverage tables in and out of XLSX workbooks.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/salscrudato/product-console/internal/model"
)

// coverageHeader is the expected column layout for coverage workbooks, in
// order. Export writes it; import requires it.
var coverageHeader = []string{
	"product_code", "coverage_code", "coverage_name", "parent_code",
	"limits", "deductibles", "states",
}

// ImportResult reports what an import run did.
type ImportResult struct {
	Inserted int64
	Skipped  int
	Problems []string
}

// Store is the slice of the persistence layer the importer needs.
type Store interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListAllCoverages(ctx context.Context) ([]model.Coverage, error)
	BulkInsertCoverages(ctx context.Context, covs []model.Coverage) (int64, error)
}

// Importer reads and writes coverage workbooks against the store.
type Importer struct {
	store Store
}

// New creates an Importer.
func New(st Store) *Importer {
	return &Importer{store: st}
}

// ImportCoverages loads a workbook and bulk-inserts its coverage rows.
// Product codes resolve against existing products; parent codes resolve
// within the workbook first, then against stored coverages of the same
// product. Rows that fail resolution or parent validation are skipped and
// reported, not fatal.
func (im *Importer) ImportCoverages(ctx context.Context, path string) (*ImportResult, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return &ImportResult{}, nil
	}

	if err := checkHeader(sheet.Rows[0]); err != nil {
		return nil, err
	}

	products, err := im.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	productByCode := make(map[string]model.Product, len(products))
	for _, p := range products {
		productByCode[strings.ToUpper(p.ProductCode)] = p
	}

	existing, err := im.store.ListAllCoverages(ctx)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	var pending []model.Coverage
	// Coverage ID by (productID, code), spanning stored rows and rows
	// earlier in the workbook so parents can be declared in either.
	idByCode := make(map[string]string, len(existing))
	for _, c := range existing {
		idByCode[coverageKey(c.ProductID, c.CoverageCode)] = c.ID
	}

	for i, row := range sheet.Rows[1:] {
		line := i + 2
		cells := rowStrings(row)
		if len(cells) < len(coverageHeader) {
			cells = append(cells, make([]string, len(coverageHeader)-len(cells))...)
		}
		if strings.TrimSpace(strings.Join(cells, "")) == "" {
			continue
		}

		product, ok := productByCode[strings.ToUpper(strings.TrimSpace(cells[0]))]
		if !ok {
			result.Skipped++
			result.Problems = append(result.Problems, fmt.Sprintf("row %d: unknown product code %q", line, cells[0]))
			continue
		}

		cov := model.Coverage{
			ID:           uuid.New().String(),
			ProductID:    product.ID,
			CoverageCode: strings.TrimSpace(cells[1]),
			CoverageName: strings.TrimSpace(cells[2]),
			States:       splitList(cells[6]),
		}
		if cov.CoverageCode == "" || cov.CoverageName == "" {
			result.Skipped++
			result.Problems = append(result.Problems, fmt.Sprintf("row %d: missing coverage code or name", line))
			continue
		}

		if cov.Limits, err = parseAmounts(cells[4]); err != nil {
			result.Skipped++
			result.Problems = append(result.Problems, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if cov.Deductibles, err = parseAmounts(cells[5]); err != nil {
			result.Skipped++
			result.Problems = append(result.Problems, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		if parentCode := strings.TrimSpace(cells[3]); parentCode != "" {
			parentID, ok := idByCode[coverageKey(product.ID, parentCode)]
			if !ok {
				result.Skipped++
				result.Problems = append(result.Problems, fmt.Sprintf("row %d: parent code %q not found for product %s", line, parentCode, product.ProductCode))
				continue
			}
			cov.ParentCoverageID = parentID
		}

		idByCode[coverageKey(cov.ProductID, cov.CoverageCode)] = cov.ID
		pending = append(pending, cov)
	}

	// Validate parent links over the combined view before writing anything.
	var valid []model.Coverage
	for _, cov := range pending {
		siblings := siblingsOf(cov.ProductID, existing, pending)
		if err := model.ValidateParent(cov, siblings); err != nil {
			result.Skipped++
			result.Problems = append(result.Problems, fmt.Sprintf("coverage %s: %v", cov.CoverageCode, err))
			continue
		}
		valid = append(valid, cov)
	}

	if len(valid) > 0 {
		result.Inserted, err = im.store.BulkInsertCoverages(ctx, valid)
		if err != nil {
			return nil, err
		}
	}

	zap.L().Info("importer: coverage import complete",
		zap.Int64("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// ExportCoverages writes every coverage to a workbook in import-compatible
// column order.
func (im *Importer) ExportCoverages(ctx context.Context, path string) error {
	products, err := im.store.ListProducts(ctx)
	if err != nil {
		return err
	}
	coverages, err := im.store.ListAllCoverages(ctx)
	if err != nil {
		return err
	}

	codeByProductID := make(map[string]string, len(products))
	for _, p := range products {
		codeByProductID[p.ID] = p.ProductCode
	}
	codeByCoverageID := make(map[string]string, len(coverages))
	for _, c := range coverages {
		codeByCoverageID[c.ID] = c.CoverageCode
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("coverages")
	if err != nil {
		return eris.Wrap(err, "importer: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range coverageHeader {
		header.AddCell().SetString(col)
	}

	for _, c := range coverages {
		row := sheet.AddRow()
		row.AddCell().SetString(codeByProductID[c.ProductID])
		row.AddCell().SetString(c.CoverageCode)
		row.AddCell().SetString(c.CoverageName)
		row.AddCell().SetString(codeByCoverageID[c.ParentCoverageID])
		row.AddCell().SetString(joinAmounts(c.Limits))
		row.AddCell().SetString(joinAmounts(c.Deductibles))
		row.AddCell().SetString(strings.Join(c.States, ";"))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "importer: save workbook")
	}
	return nil
}

func checkHeader(row *xlsx.Row) error {
	cells := rowStrings(row)
	for i, want := range coverageHeader {
		if i >= len(cells) || !strings.EqualFold(strings.TrimSpace(cells[i]), want) {
			return eris.Errorf("importer: column %d must be %q", i+1, want)
		}
	}
	return nil
}

func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

func coverageKey(productID, code string) string {
	return productID + "/" + strings.ToUpper(strings.TrimSpace(code))
}

func siblingsOf(productID string, existing, pending []model.Coverage) []model.Coverage {
	var out []model.Coverage
	for _, c := range existing {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	for _, c := range pending {
		if c.ProductID == productID {
			out = append(out, c)
		}
	}
	return out
}

// splitList parses a semicolon-separated cell into trimmed values.
func splitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ";") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseAmounts(cell string) ([]decimal.Decimal, error) {
	var out []decimal.Decimal
	for _, part := range splitList(cell) {
		d, err := decimal.NewFromString(strings.ReplaceAll(part, ",", ""))
		if err != nil {
			return nil, eris.Wrapf(err, "bad amount %q", part)
		}
		out = append(out, d)
	}
	return out, nil
}

func joinAmounts(amounts []decimal.Decimal) string {
	parts := make([]string, len(amounts))
	for i, a := range amounts {
		parts[i] = a.String()
	}
	return strings.Join(parts, ";")
}
