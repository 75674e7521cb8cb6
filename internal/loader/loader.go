// Package loader bulk-ingests paired record files from a directory. A pair
// is a PDF and an evaluation metadata file sharing one filename stem; either
// half may be absent.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gongdo-labs/deungdae/internal/extract"
	"github.com/gongdo-labs/deungdae/internal/store"
)

// Pair is one document's on-disk files, keyed by the shared filename stem.
type Pair struct {
	DocumentID string
	PDFPath    string
	YAMLPath   string
}

// Summary reports one LoadDir run. Failed documents do not stop the run;
// they are listed here and logged.
type Summary struct {
	Loaded int
	Failed []string
}

// Loader drives the extraction engine over a directory and persists the
// results into one store.
type Loader struct {
	engine *extract.Service
	store  *store.Store
	logger *slog.Logger
}

// New creates a loader writing into the given store.
func New(engine *extract.Service, st *store.Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{engine: engine, store: st, logger: logger}
}

// LoadDir ingests every pair found in dir. One bad document never aborts
// the batch.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Summary, error) {
	pairs, err := ScanPairs(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := l.loadPair(ctx, pair); err != nil {
			l.logger.Error("loading document failed",
				"document_id", pair.DocumentID, "error", err)
			summary.Failed = append(summary.Failed, pair.DocumentID)
			continue
		}
		summary.Loaded++
	}

	l.logger.Info("batch load finished",
		"dir", dir, "loaded", summary.Loaded, "failed", len(summary.Failed))
	return summary, nil
}

func (l *Loader) loadPair(ctx context.Context, pair Pair) error {
	var pdfData, yamlData []byte
	var err error

	if pair.PDFPath != "" {
		if pdfData, err = os.ReadFile(pair.PDFPath); err != nil {
			return fmt.Errorf("reading %s: %w", pair.PDFPath, err)
		}
	}
	if pair.YAMLPath != "" {
		if yamlData, err = os.ReadFile(pair.YAMLPath); err != nil {
			return fmt.Errorf("reading %s: %w", pair.YAMLPath, err)
		}
	}

	result, err := l.engine.ProcessDocument(pair.DocumentID, pdfData, yamlData)
	if err != nil {
		return err
	}
	for _, d := range result.Diagnostics {
		l.logger.Debug("extraction diagnostic",
			"document_id", pair.DocumentID, "diagnostic", d.String())
	}

	studentID, err := l.store.SaveDocument(ctx, result)
	if err != nil {
		return err
	}

	l.logger.Info("document loaded",
		"document_id", pair.DocumentID,
		"student_id", studentID,
		"records", len(result.Records),
		"unmatched", len(result.UnmatchedMetadata))
	return nil
}

// ScanPairs lists the document pairs of a directory, sorted by document ID.
// Files with other extensions are ignored; subdirectories are not entered.
func ScanPairs(dir string) ([]Pair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	byStem := make(map[string]*Pair)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if stem == "" {
			continue
		}

		pair := byStem[stem]
		if pair == nil {
			pair = &Pair{DocumentID: stem}
			byStem[stem] = pair
		}
		switch ext {
		case ".pdf":
			pair.PDFPath = filepath.Join(dir, name)
		case ".yaml", ".yml":
			pair.YAMLPath = filepath.Join(dir, name)
		}
	}

	var pairs []Pair
	for _, pair := range byStem {
		if pair.PDFPath == "" && pair.YAMLPath == "" {
			continue
		}
		pairs = append(pairs, *pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].DocumentID < pairs[j].DocumentID })
	return pairs, nil
}
