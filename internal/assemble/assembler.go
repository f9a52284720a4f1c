// Package assemble turns the fetched pages of one edition into a single PDF.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/logger"
)

const partSuffix = ".part"

// ErrNoPages is returned when no successful page is handed to Assemble.
var ErrNoPages = errors.New("no pages to assemble")

// Assembler orders pages by index and merges them through an Engine.
type Assembler struct {
	engine Engine
	log    logger.Logger
}

// NewAssembler returns an Assembler; a nil engine selects pdfcpu.
func NewAssembler(engine Engine, log logger.Logger) *Assembler {
	if engine == nil {
		engine = NewPDFEngine()
	}
	return &Assembler{engine: engine, log: logger.Ensure(log)}
}

// Assemble writes the OK pages, ordered by Index, to outputPath. The result
// is built at outputPath+".part" and renamed into place, so outputPath never
// holds a partial document.
func (a *Assembler) Assemble(ctx context.Context, kind domain.Kind, pages []domain.PageFetchResult, outputPath string) error {
	if a == nil {
		return errors.New("assembler is nil")
	}
	paths, err := orderedPaths(kind, pages)
	if err != nil {
		return err
	}

	part := outputPath + partSuffix
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	switch kind {
	case domain.KindImage:
		err = a.assembleImages(ctx, paths, part)
	default:
		err = a.engine.Merge(ctx, paths, part)
	}
	if err != nil {
		_ = os.Remove(part)
		return err
	}

	if err := os.Rename(part, outputPath); err != nil {
		_ = os.Remove(part)
		return fmt.Errorf("finalize %s: %w", outputPath, err)
	}

	a.log.DebugObj("edition assembled", "assemble", map[string]any{
		"kind":   kind.String(),
		"pages":  len(paths),
		"output": outputPath,
	})
	return nil
}

// assembleImages normalizes every scan to RGB JPEG, wraps each into a
// one-page PDF and merges those in order. Intermediates never outlive the call.
func (a *Assembler) assembleImages(ctx context.Context, images []string, out string) error {
	var intermediates []string
	defer func() {
		for _, p := range intermediates {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				a.log.WarnObj("remove intermediate failed", "assemble", map[string]any{"path": p, "error": err.Error()})
			}
		}
	}()

	pdfs := make([]string, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		base := strings.TrimSuffix(img, filepath.Ext(img))
		norm := base + ".rgb.jpg"
		pdf := base + ".pdf"
		intermediates = append(intermediates, norm, pdf)

		if err := normalizeImage(img, norm); err != nil {
			return err
		}
		if err := a.engine.ImageToPDF(ctx, norm, pdf); err != nil {
			return err
		}
		pdfs = append(pdfs, pdf)
	}
	return a.engine.Merge(ctx, pdfs, out)
}

// orderedPaths keeps OK pages, sorts them by Index and checks every file
// matches the edition kind.
func orderedPaths(kind domain.Kind, pages []domain.PageFetchResult) ([]string, error) {
	ok := make([]domain.PageFetchResult, 0, len(pages))
	for _, p := range pages {
		if p.OK && strings.TrimSpace(p.Path) != "" {
			ok = append(ok, p)
		}
	}
	if len(ok) == 0 {
		return nil, ErrNoPages
	}
	sort.SliceStable(ok, func(i, j int) bool { return ok[i].Index < ok[j].Index })

	paths := make([]string, 0, len(ok))
	for _, p := range ok {
		if domain.KindOf(p.Path) != kind {
			return nil, fmt.Errorf("page %d (%s) is not a %s page", p.Index, filepath.Base(p.Path), kind)
		}
		paths = append(paths, p.Path)
	}
	return paths, nil
}
