package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tsawler/pagemerge/export"
	"github.com/tsawler/pagemerge/internal/config"
	"github.com/tsawler/pagemerge/internal/logger"
	"github.com/tsawler/pagemerge/merge"
	"github.com/tsawler/pagemerge/model"
	"github.com/tsawler/pagemerge/policy"
	"github.com/tsawler/pagemerge/scanner"
	"github.com/tsawler/pagemerge/store"
)

// readPage decodes a page JSON file. Pages without an ID are named after
// the file. A file that does not state "postprocessed" is taken as
// postprocessed.
func readPage(path string) (model.Page, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Page{}, err
	}
	var p model.Page
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Page{}, fmt.Errorf("decode %s: %w", path, err)
	}
	var flags struct {
		Postprocessed *bool `json:"postprocessed"`
	}
	if err := json.Unmarshal(raw, &flags); err != nil {
		return model.Page{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if flags.Postprocessed == nil {
		p.Postprocessed = true
	}
	if p.ID == "" {
		p.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// mergedPage reads a page and merges it with plan unless it was merged
// already
func mergedPage(path string, plan policy.Plan) (model.Page, error) {
	p, err := readPage(path)
	if err != nil {
		return model.Page{}, err
	}
	if p.Merged {
		return p, nil
	}
	m, err := merge.New(plan)
	if err != nil {
		return model.Page{}, err
	}
	res := m.MergePage(p)
	p.Objects = res.Objects
	p.Merged = true
	return p, nil
}

// pageCommand merges page files through an in-memory repository and prints
// the merged pages as JSON
func pageCommand(cfg config.Config, paths []string) error {
	start := time.Now()
	plan, err := cfg.Plan()
	if err != nil {
		return err
	}
	merger, err := merge.New(plan)
	if err != nil {
		return err
	}

	repo := store.NewMemory()
	ctx := context.Background()
	var ids []string
	for _, path := range paths {
		p, err := readPage(path)
		if err != nil {
			return err
		}
		if !p.Postprocessed {
			fmt.Fprintf(os.Stderr, "skipped %s: page has not been postprocessed\n", p.ID)
		}
		p.Merged = false
		p.Objects = nil
		if err := repo.SavePage(ctx, p); err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}

	sc, err := scanner.New(repo, merger, scanner.Config{Workers: cfg.Workers})
	if err != nil {
		return err
	}
	report, err := sc.Scan(ctx)
	if err != nil {
		return err
	}
	for _, s := range report.Skips {
		fmt.Fprintf(os.Stderr, "skipped %s: %s\n", s.PageID, s.Reason)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, id := range ids {
		p, err := repo.Page(ctx, id)
		if err != nil {
			return err
		}
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	logger.Info("Main", "%s (%s)", report, elapsed(start))
	return nil
}

// mergedPageFile merges a page file with the plan of cfg
func mergedPageFile(cfg config.Config, path string) (model.Page, error) {
	plan, err := cfg.Plan()
	if err != nil {
		return model.Page{}, err
	}
	return mergedPage(path, plan)
}

func htmlCommand(cfg config.Config, pagePath string) error {
	p, err := mergedPageFile(cfg, pagePath)
	if err != nil {
		return err
	}
	return export.HTML(os.Stdout, p)
}

func retrievalCommand(cfg config.Config, pagePath, imagePath string, maxWidth int) error {
	p, err := mergedPageFile(cfg, pagePath)
	if err != nil {
		return err
	}

	opts := export.RetrievalOptions{MaxCropWidth: maxWidth}
	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return fmt.Errorf("decode %s: %w", imagePath, err)
		}
		opts.Image = img
	}

	records, err := export.Retrieval(p, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func annotateCommand(cfg config.Config, imagePath, pagePath, dst string, members, labels bool) error {
	p, err := mergedPageFile(cfg, pagePath)
	if err != nil {
		return err
	}
	if dst == "" {
		dst = strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".merged.png"
	}

	in, err := os.Open(imagePath)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	opts := export.DefaultAnnotateOptions()
	opts.Members = members
	opts.Labels = labels
	if err := export.AnnotatePNG(in, out, p.Objects, opts); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Info("Main", "Annotated image: %s", dst)
	return nil
}
