package vocab

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ImportConfig describes the layout of a word list. Columns are letters
// (A, B, ...). CategoryColumn may be empty.
type ImportConfig struct {
	FilePath       string
	SheetName      string
	SourceColumn   string
	TargetColumn   string
	CategoryColumn string
	StartRow       int
}

func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName:      "Sheet1",
		SourceColumn:   "A",
		TargetColumn:   "B",
		CategoryColumn: "C",
		StartRow:       2,
	}
}

type ImportResult struct {
	Processed int
	Created   int
	Updated   int
	Skipped   int
	Errors    []string
}

type Importer struct {
	store *Store
	log   *zap.Logger
}

func NewImporter(store *Store, log *zap.Logger) *Importer {
	return &Importer{store: store, log: log}
}

// ImportFile loads an .xlsx or .csv word list. Rows whose source word
// already exists update its translation and category.
func (im *Importer) ImportFile(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(cfg.FilePath), ".csv") {
		rows, err = readCSV(cfg.FilePath)
	} else {
		rows, err = readSheet(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, err
	}
	return im.importRows(ctx, cfg, rows)
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (im *Importer) importRows(ctx context.Context, cfg ImportConfig, rows [][]string) (*ImportResult, error) {
	result := &ImportResult{}
	categories := map[string]int64{}

	for i, row := range rows {
		if i < cfg.StartRow-1 {
			continue
		}
		rowNum := i + 1
		result.Processed++

		source := strings.TrimSpace(cell(row, cfg.SourceColumn))
		target := strings.TrimSpace(cell(row, cfg.TargetColumn))
		if source == "" || target == "" {
			result.Skipped++
			continue
		}

		var categoryID *int64
		if name := strings.TrimSpace(cell(row, cfg.CategoryColumn)); name != "" {
			key := strings.ToLower(name)
			id, ok := categories[key]
			if !ok {
				var err error
				id, err = im.store.EnsureCategory(ctx, name)
				if err != nil {
					return result, err
				}
				categories[key] = id
			}
			categoryID = &id
		}

		existing, err := im.store.FindWord(ctx, source)
		if err != nil {
			return result, err
		}
		if existing != nil {
			if err := im.store.UpdateWord(ctx, existing.ID, target, categoryID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
				continue
			}
			result.Updated++
			continue
		}

		if _, err := im.store.CreateWord(ctx, source, target, categoryID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		result.Created++
	}

	im.log.Info("word import finished",
		zap.String("file", cfg.FilePath),
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	idx, err := excelize.ColumnNameToNumber(column)
	if err != nil || idx-1 >= len(row) {
		return ""
	}
	return row[idx-1]
}
