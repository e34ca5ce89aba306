package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"housebot/internal/logging"
	"housebot/pkg/domain"
)

// Rasterizer converts an SVG file into a PNG file.
type Rasterizer interface {
	Rasterize(ctx context.Context, svgPath, pngPath string) error
}

// CommandRasterizer shells out to an rsvg-convert compatible converter:
// <Command> -f png -o <png> <svg>.
type CommandRasterizer struct {
	Command string
}

// Rasterize runs the converter and checks that it produced output.
func (c CommandRasterizer) Rasterize(ctx context.Context, svgPath, pngPath string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Command, "-f", "png", "-o", pngPath, svgPath)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", c.Command, err, bytes.TrimSpace(stderr.Bytes()))
	}
	if fi, err := os.Stat(pngPath); err != nil || fi.Size() == 0 {
		return fmt.Errorf("%s produced no output at %s", c.Command, pngPath)
	}
	return nil
}

// Artifact locates a rendered image. Raster is empty when no PNG is available.
type Artifact struct {
	Vector string
	Raster string
}

// Cache stores rendered images as building.v<version>[.floor<n>].{svg,png}
// and reuses them while the version is unchanged.
type Cache struct {
	dir      string
	renderer *Renderer
	raster   Rasterizer
	log      logging.Logger
}

// NewCache returns a cache in dir. raster may be nil to skip PNG output.
func NewCache(dir string, renderer *Renderer, raster Rasterizer, log logging.Logger) *Cache {
	if log == nil {
		log = logging.Nop()
	}
	return &Cache{dir: dir, renderer: renderer, raster: raster, log: log}
}

// Building returns the whole-building plan for b.
func (c *Cache) Building(ctx context.Context, b *domain.Building) (Artifact, error) {
	base := fmt.Sprintf("building.v%d", b.Version)
	return c.artifact(ctx, base, func() string {
		return c.renderer.Render(b.Schema, Options{})
	})
}

// Floor returns the single-floor plan for floor of b.
func (c *Cache) Floor(ctx context.Context, b *domain.Building, floor int) (Artifact, error) {
	base := fmt.Sprintf("building.v%d.floor%d", b.Version, floor)
	return c.artifact(ctx, base, func() string {
		return c.renderer.Render(b.Schema, Options{SingleFloor: true, Floor: floor})
	})
}

func (c *Cache) artifact(ctx context.Context, base string, draw func() string) (Artifact, error) {
	art := Artifact{Vector: filepath.Join(c.dir, base+".svg")}
	if !exists(art.Vector) {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return Artifact{}, err
		}
		if err := writeAtomic(art.Vector, []byte(draw())); err != nil {
			return Artifact{}, fmt.Errorf("write %s: %w", art.Vector, err)
		}
		c.log.Debug("plan rendered", "file", art.Vector)
	}
	if c.raster == nil {
		return art, nil
	}
	png := filepath.Join(c.dir, base+".png")
	if !exists(png) {
		if err := c.raster.Rasterize(ctx, art.Vector, png); err != nil {
			c.log.Warn("rasterization failed, sending vector image", "file", art.Vector, "error", err)
			_ = os.Remove(png)
			return art, nil
		}
	}
	art.Raster = png
	return art, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
