package export

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"kg-extractor/backend/internal/rdf"
	kgerrors "kg-extractor/backend/pkg/errors"
	"kg-extractor/backend/pkg/logger"
)

// Renderer turns a graph snapshot into image bytes.
type Renderer interface {
	Render(ctx context.Context, g *rdf.Graph) ([]byte, error)
}

// GraphvizRenderer pipes the DOT form of a graph through the Graphviz dot binary.
type GraphvizRenderer struct {
	binary string
	format string
	ns     rdf.Namespaces
	logger *zap.Logger
}

// NewGraphvizRenderer creates a PNG renderer. binary defaults to "dot" on PATH.
func NewGraphvizRenderer(binary string, ns rdf.Namespaces) *GraphvizRenderer {
	if binary == "" {
		binary = "dot"
	}
	return &GraphvizRenderer{
		binary: binary,
		format: "png",
		ns:     ns,
		logger: logger.Get(),
	}
}

// Available reports whether the dot binary can be found.
func (r *GraphvizRenderer) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

func (r *GraphvizRenderer) Render(ctx context.Context, g *rdf.Graph) ([]byte, error) {
	var src bytes.Buffer
	if err := WriteDOT(&src, g, r.ns); err != nil {
		return nil, kgerrors.NewRenderFailed(r.format, err)
	}

	path, err := exec.LookPath(r.binary)
	if err != nil {
		return nil, kgerrors.NewRenderFailed(r.format, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-T"+r.format)
	cmd.Stdin = &src
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, kgerrors.NewRenderFailed(r.format, err)
	}

	r.logger.Debug("Graph rendered",
		zap.Int("triples", g.Len()),
		zap.Int("bytes", stdout.Len()),
	)
	return stdout.Bytes(), nil
}
