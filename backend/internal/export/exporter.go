package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"kg-extractor/backend/internal/rdf"
	kgerrors "kg-extractor/backend/pkg/errors"
	"kg-extractor/backend/pkg/logger"
)

// GraphStore persists an exported graph under a run identifier.
type GraphStore interface {
	SaveGraph(ctx context.Context, runID string, g *rdf.Graph) error
}

// Exporter renders a graph and stores the image under <dir>/<name>.<ext>, then
// hands the graph to an optional store.
type Exporter struct {
	renderer  Renderer
	store     GraphStore
	outputDir string
	extension string
	logger    *zap.Logger
}

// Result describes one export.
type Result struct {
	Image     []byte
	ImagePath string
}

func NewExporter(renderer Renderer, outputDir string) *Exporter {
	return &Exporter{
		renderer:  renderer,
		outputDir: outputDir,
		extension: "png",
		logger:    logger.Get(),
	}
}

// WithStore attaches a persistence sink.
func (e *Exporter) WithStore(store GraphStore) *Exporter {
	e.store = store
	return e
}

func (e *Exporter) WithLogger(l *zap.Logger) *Exporter {
	e.logger = l
	return e
}

// Export renders g and writes the image. When outputDir is empty the image is
// returned but not written. Rendering receives its own copy of the triples, so
// callers may keep mutating g afterwards.
func (e *Exporter) Export(ctx context.Context, g *rdf.Graph, name string) (*Result, error) {
	snapshot := rdf.Assemble(g.Triples())

	image, err := e.renderer.Render(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	res := &Result{Image: image}
	if e.outputDir == "" {
		return res, nil
	}

	file, err := imageFileName(name, e.extension)
	if err != nil {
		return nil, kgerrors.NewRenderFailed(e.extension, err)
	}
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, kgerrors.NewRenderFailed(e.extension, fmt.Errorf("create output dir: %w", err))
	}
	path := filepath.Join(e.outputDir, file)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return nil, kgerrors.NewRenderFailed(e.extension, fmt.Errorf("write image: %w", err))
	}
	res.ImagePath = path

	e.logger.Info("Graph image saved",
		zap.String("path", path),
		zap.Int("triples", snapshot.Len()),
	)
	return res, nil
}

// Persist hands g to the store, if one is attached.
func (e *Exporter) Persist(ctx context.Context, runID string, g *rdf.Graph) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.SaveGraph(ctx, runID, g); err != nil {
		return fmt.Errorf("failed to persist graph: %w", err)
	}
	return nil
}

// imageFileName keeps only the final path element of name so callers cannot
// write outside the output directory.
func imageFileName(name, ext string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid graph name %q", name)
	}
	if !strings.HasSuffix(base, "."+ext) {
		base += "." + ext
	}
	return base, nil
}
