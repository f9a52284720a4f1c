package assemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Engine performs the PDF operations the assembler needs.
type Engine interface {
	// Merge concatenates inputs, in order, into a new file at out.
	Merge(ctx context.Context, inputs []string, out string) error
	// ImageToPDF wraps one JPEG into a single-page PDF at out.
	ImageToPDF(ctx context.Context, image, out string) error
}

var disableConfigDir sync.Once

type pdfcpuEngine struct {
	conf *model.Configuration
}

// NewPDFEngine returns the pdfcpu-backed Engine. pdfcpu's on-disk user
// config directory is never created.
func NewPDFEngine() Engine {
	disableConfigDir.Do(api.DisableConfigDir)
	return &pdfcpuEngine{conf: model.NewDefaultConfiguration()}
}

func (e *pdfcpuEngine) Merge(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return errors.New("merge: no inputs")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := removeIfExists(out); err != nil {
		return err
	}
	if len(inputs) == 1 {
		return copyFile(inputs[0], out)
	}
	if err := api.MergeCreateFile(inputs, out, false, e.conf); err != nil {
		return fmt.Errorf("pdfcpu merge: %w", err)
	}
	return nil
}

func (e *pdfcpuEngine) ImageToPDF(ctx context.Context, image, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// ImportImagesFile appends to an existing out file.
	if err := removeIfExists(out); err != nil {
		return err
	}
	if err := api.ImportImagesFile([]string{image}, out, pdfcpu.DefaultImportConfig(), e.conf); err != nil {
		return fmt.Errorf("pdfcpu import %s: %w", image, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
