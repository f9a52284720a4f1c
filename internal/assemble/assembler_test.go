package assemble

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

// recordingEngine writes the input order into the output file.
type recordingEngine struct {
	merged   [][]string
	imported []string
	mergeErr error
}

func (e *recordingEngine) Merge(_ context.Context, inputs []string, out string) error {
	e.merged = append(e.merged, append([]string(nil), inputs...))
	if e.mergeErr != nil {
		// leave a truncated file behind like a crashed writer would
		_ = os.WriteFile(out, []byte("%PDF-trunc"), 0o644)
		return e.mergeErr
	}
	return os.WriteFile(out, []byte("%PDF-merged"), 0o644)
}

func (e *recordingEngine) ImageToPDF(_ context.Context, image, out string) error {
	e.imported = append(e.imported, image)
	return os.WriteFile(out, []byte("%PDF-img"), 0o644)
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func writePNG(t *testing.T, path string, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestAssembleOrdersByIndexAndSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	pages := []domain.PageFetchResult{
		{Index: 3, Path: touch(t, filepath.Join(dir, "page_03.pdf")), OK: true},
		{Index: 1, Path: touch(t, filepath.Join(dir, "page_01.pdf")), OK: true},
		{Index: 2, Path: filepath.Join(dir, "page_02.pdf"), OK: false},
	}
	engine := &recordingEngine{}
	out := filepath.Join(dir, "out", "edition.pdf")

	require.NoError(t, NewAssembler(engine, nil).Assemble(context.Background(), domain.KindDocument, pages, out))

	require.Len(t, engine.merged, 1)
	assert.Equal(t, []string{pages[1].Path, pages[0].Path}, engine.merged[0])
	assert.FileExists(t, out)
	assert.NoFileExists(t, out+partSuffix)
}

func TestAssembleNoPages(t *testing.T) {
	err := NewAssembler(&recordingEngine{}, nil).Assemble(context.Background(), domain.KindDocument,
		[]domain.PageFetchResult{{Index: 1, Path: "x.pdf", OK: false}}, filepath.Join(t.TempDir(), "o.pdf"))
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestAssembleRejectsKindMismatch(t *testing.T) {
	dir := t.TempDir()
	pages := []domain.PageFetchResult{
		{Index: 1, Path: touch(t, filepath.Join(dir, "page_01.jpg")), OK: true},
	}
	engine := &recordingEngine{}
	err := NewAssembler(engine, nil).Assemble(context.Background(), domain.KindDocument, pages, filepath.Join(dir, "o.pdf"))
	require.Error(t, err)
	assert.Empty(t, engine.merged)
}

func TestAssembleFailureLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	pages := []domain.PageFetchResult{{Index: 1, Path: touch(t, filepath.Join(dir, "page_01.pdf")), OK: true}}
	engine := &recordingEngine{mergeErr: errors.New("corrupt xref")}
	out := filepath.Join(dir, "edition.pdf")

	err := NewAssembler(engine, nil).Assemble(context.Background(), domain.KindDocument, pages, out)
	require.ErrorContains(t, err, "corrupt xref")
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, out+partSuffix)
}

func TestAssembleImagesNormalizesAndCleansIntermediates(t *testing.T) {
	dir := t.TempDir()
	p1 := writePNG(t, filepath.Join(dir, "page_01.jpg"), color.NRGBA{R: 255, A: 128})
	p2 := writePNG(t, filepath.Join(dir, "page_02.jpg"), color.NRGBA{B: 255, A: 255})
	pages := []domain.PageFetchResult{
		{Index: 2, Path: p2, OK: true},
		{Index: 1, Path: p1, OK: true},
	}
	engine := &recordingEngine{}
	out := filepath.Join(dir, "edition.pdf")

	require.NoError(t, NewAssembler(engine, nil).Assemble(context.Background(), domain.KindImage, pages, out))

	require.Len(t, engine.imported, 2)
	assert.Equal(t, filepath.Join(dir, "page_01.rgb.jpg"), engine.imported[0])
	require.Len(t, engine.merged, 1)
	assert.Equal(t, []string{filepath.Join(dir, "page_01.pdf"), filepath.Join(dir, "page_02.pdf")}, engine.merged[0])

	for _, p := range []string{"page_01.rgb.jpg", "page_01.pdf", "page_02.rgb.jpg", "page_02.pdf"} {
		assert.NoFileExists(t, filepath.Join(dir, p))
	}
	assert.FileExists(t, p1, "source pages belong to the caller")
}

func TestAssembleImagesUndecodableFails(t *testing.T) {
	dir := t.TempDir()
	pages := []domain.PageFetchResult{{Index: 1, Path: touch(t, filepath.Join(dir, "page_01.jpg")), OK: true}}
	out := filepath.Join(dir, "edition.pdf")

	err := NewAssembler(&recordingEngine{}, nil).Assemble(context.Background(), domain.KindImage, pages, out)
	require.Error(t, err)
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, filepath.Join(dir, "page_01.rgb.jpg"))
}

func TestPDFEngineBuildsEditionFromImages(t *testing.T) {
	dir := t.TempDir()
	pages := []domain.PageFetchResult{
		{Index: 1, Path: writePNG(t, filepath.Join(dir, "page_01.jpg"), color.White), OK: true},
		{Index: 2, Path: writePNG(t, filepath.Join(dir, "page_02.jpg"), color.Black), OK: true},
		{Index: 3, Path: writePNG(t, filepath.Join(dir, "page_03.jpg"), color.Gray{Y: 80}), OK: true},
	}
	out := filepath.Join(dir, "out", "新华每日电讯_20240115.pdf")

	require.NoError(t, NewAssembler(NewPDFEngine(), nil).Assemble(context.Background(), domain.KindImage, pages, out))

	n, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPDFEngineMergesDocuments(t *testing.T) {
	dir := t.TempDir()
	engine := NewPDFEngine()
	ctx := context.Background()

	var pages []domain.PageFetchResult
	for i, c := range []color.Color{color.White, color.Black} {
		img := writePNG(t, filepath.Join(dir, "src.png"), c)
		pdf := filepath.Join(dir, "page_0"+string(rune('1'+i))+".pdf")
		require.NoError(t, engine.ImageToPDF(ctx, img, pdf))
		pages = append(pages, domain.PageFetchResult{Index: i + 1, Path: pdf, OK: true})
	}

	out := filepath.Join(dir, "人民日报_20240115.pdf")
	require.NoError(t, NewAssembler(engine, nil).Assemble(ctx, domain.KindDocument, pages, out))

	n, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	single := filepath.Join(dir, "single.pdf")
	require.NoError(t, NewAssembler(engine, nil).Assemble(ctx, domain.KindDocument, pages[:1], single))
	n, err = api.PageCountFile(single)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
