package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/andresuchdata/costbook/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// FileType is the kind of data a CSV file holds, taken from its parent
// directory name.
type FileType string

const (
	FileRecords   FileType = "records"
	FileInventory FileType = "inventory"
	FileRecipes   FileType = "recipes"
)

// DetectFileType returns the file type of path from its parent directory.
func DetectFileType(path string) (FileType, error) {
	dir := strings.ToLower(filepath.Base(filepath.Dir(path)))
	switch FileType(dir) {
	case FileRecords, FileInventory, FileRecipes:
		return FileType(dir), nil
	}
	return "", fmt.Errorf("unknown file type in directory: %s", dir)
}

// sourceName identifies a file for record idempotency: its directory and
// base name, so re-importing the same file upserts the same rows.
func sourceName(path string) string {
	return filepath.ToSlash(filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}

// Processor loads CSV files into Postgres, one transaction per file.
type Processor struct {
	db *sql.DB
}

func NewProcessor(db *sql.DB) *Processor {
	return &Processor{db: db}
}

// ProcessFile imports one file for a company and returns the number of rows
// written.
func (p *Processor) ProcessFile(ctx context.Context, companyID int64, path string) (int, error) {
	fileType, err := DetectFileType(path)
	if err != nil {
		return 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repo := repository.NewIngestRepository(tx)

	var count int
	switch fileType {
	case FileRecords:
		rows, err := ParseRecords(file, companyID)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		source := sourceName(path)
		for _, row := range rows {
			if err := repo.UpsertRecord(ctx, row.Record, repository.RecordSource{File: source, Line: row.Line}); err != nil {
				return 0, err
			}
		}
		count = len(rows)

	case FileInventory:
		levels, err := ParseStockLevels(file)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		for _, level := range levels {
			if err := repo.UpsertStockLevel(ctx, companyID, level); err != nil {
				return 0, err
			}
		}
		count = len(levels)

	case FileRecipes:
		rows, err := ParseRecipes(file)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		if err := writeRecipes(ctx, repo, companyID, rows); err != nil {
			return 0, err
		}
		count = len(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().Str("file", path).Str("type", string(fileType)).Int("rows", count).Msg("ingest: file processed")
	return count, nil
}

// writeRecipes upserts each recipe and ingredient once, then every line.
func writeRecipes(ctx context.Context, repo *repository.IngestRepository, companyID int64, rows []RecipeRow) error {
	recipes := make(map[int64]bool)
	ingredients := make(map[int64]bool)
	for _, row := range rows {
		if !recipes[row.Recipe.RecipeID] {
			if err := repo.UpsertRecipe(ctx, companyID, row.Recipe); err != nil {
				return err
			}
			recipes[row.Recipe.RecipeID] = true
		}
		if !ingredients[row.Ingredient.IngredientID] {
			if err := repo.UpsertIngredient(ctx, companyID, row.Ingredient.IngredientID, row.IngredientName, row.Ingredient.UnitCost); err != nil {
				return err
			}
			ingredients[row.Ingredient.IngredientID] = true
		}
		if err := repo.UpsertRecipeIngredient(ctx, companyID, row.Ingredient); err != nil {
			return err
		}
	}
	return nil
}

// Summary counts what an import wrote.
type Summary struct {
	Files int
	Rows  int64
}

// OrderFiles sorts files so recipes load before records and inventory, then
// by path.
func OrderFiles(files []string) []string {
	rank := map[FileType]int{FileRecipes: 0, FileInventory: 1, FileRecords: 2}
	ordered := append([]string(nil), files...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ti, _ := DetectFileType(ordered[i])
		tj, _ := DetectFileType(ordered[j])
		if rank[ti] != rank[tj] {
			return rank[ti] < rank[tj]
		}
		return ordered[i] < ordered[j]
	})
	return ordered
}

// ProcessFiles imports files with a bounded number of workers. Recipe files
// are imported before the rest since records may name their recipes. The
// first error cancels the remaining work.
func (p *Processor) ProcessFiles(ctx context.Context, companyID int64, files []string, workers int) (Summary, error) {
	return processFiles(ctx, files, workers, func(ctx context.Context, path string) (int, error) {
		return p.ProcessFile(ctx, companyID, path)
	})
}

func processFiles(ctx context.Context, files []string, workers int, fn func(context.Context, string) (int, error)) (Summary, error) {
	if workers < 1 {
		workers = 1
	}

	var recipeFiles, otherFiles []string
	for _, path := range OrderFiles(files) {
		if t, _ := DetectFileType(path); t == FileRecipes {
			recipeFiles = append(recipeFiles, path)
		} else {
			otherFiles = append(otherFiles, path)
		}
	}

	var (
		rows      atomic.Int64
		processed atomic.Int64
	)
	for _, batch := range [][]string{recipeFiles, otherFiles} {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, path := range batch {
			path := path
			g.Go(func() error {
				n, err := fn(gctx, path)
				if err != nil {
					return fmt.Errorf("error processing %s: %w", path, err)
				}
				rows.Add(int64(n))
				processed.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Summary{Files: int(processed.Load()), Rows: rows.Load()}, err
		}
	}

	return Summary{Files: int(processed.Load()), Rows: rows.Load()}, nil
}

// CollectCSVFiles walks root and returns every .csv file, sorted.
func CollectCSVFiles(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
