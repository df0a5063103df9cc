package renderer

import (
	"context"
	"fmt"

	"Gopher3DCore/internal/logger"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// Prepare builds geometry groups and bounding spheres for objects on a
// worker pool so the first Render only has to upload. It makes no GPU
// calls and may run on any goroutine, but not concurrently with Render.
// Objects sharing a geometry are prepared once.
func (r *Renderer) Prepare(ctx context.Context, objects []*Object) error {
	if len(objects) == 0 {
		return nil
	}
	pool := pond.NewPool(max(r.cfg.Workers, 1), pond.WithContext(ctx))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	seenMesh := make(map[*Geometry]struct{})
	seenLines := make(map[*LineGeometry]struct{})
	for _, obj := range objects {
		switch {
		case obj.Geometry != nil:
			g := obj.Geometry
			if _, ok := seenMesh[g]; ok {
				continue
			}
			seenMesh[g] = struct{}{}
			perFace := obj.usesFaceMaterials()
			group.SubmitErr(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				r.buffers.Build(g, perFace)
				g.BoundingSphere()
				return nil
			})
		case obj.Lines != nil:
			l := obj.Lines
			if _, ok := seenLines[l]; ok {
				continue
			}
			seenLines[l] = struct{}{}
			group.SubmitErr(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				r.buffers.BuildLines(l)
				l.BoundingSphere()
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("prepare geometry: %w", err)
	}
	logger.Log.Debug("Geometry prepared",
		zap.Int("meshes", len(seenMesh)),
		zap.Int("lines", len(seenLines)),
		zap.Int("workers", r.cfg.Workers))
	return nil
}
