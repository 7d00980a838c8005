package voxel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
)

const (
	previewTileWidth    = 16
	previewTileHeight   = 8
	previewVoxelHeight  = 8
	previewAmbientLight = 0.2
	previewMaxExtent    = 256
)

type voxelPreview struct {
	localX   int
	localY   int
	localZ   int
	material Material
	screenX  int
	screenY  int
}

// SavePreview renders an isometric PNG of the box described by bounds and
// writes it to path.
func SavePreview(world World, bounds Bounds, path string) error {
	if world == nil {
		return errors.New("world is nil")
	}
	width := int(bounds.Max.X-bounds.Min.X) + 1
	height := int(bounds.Max.Y-bounds.Min.Y) + 1
	depth := int(bounds.Max.Z-bounds.Min.Z) + 1
	if width <= 0 || height <= 0 || depth <= 0 {
		return fmt.Errorf("invalid preview bounds: %v..%v", bounds.Min, bounds.Max)
	}
	if width > previewMaxExtent || height > previewMaxExtent || depth > previewMaxExtent {
		return fmt.Errorf("preview bounds too large: %dx%dx%d", width, height, depth)
	}

	imgWidth := (width+depth)*previewTileWidth/2 + previewTileWidth
	imgHeight := (width+depth)*previewTileHeight/2 + height*previewVoxelHeight + previewTileHeight
	img := image.NewNRGBA(image.Rect(0, 0, imgWidth, imgHeight))

	background := color.NRGBA{R: 10, G: 10, B: 18, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	voxels := collectPreviewVoxels(world, bounds)
	sort.Slice(voxels, func(i, j int) bool {
		vi := voxels[i]
		vj := voxels[j]
		if vi.screenY == vj.screenY {
			if vi.screenX == vj.screenX {
				if vi.localY == vj.localY {
					if vi.localZ == vj.localZ {
						return vi.localX < vj.localX
					}
					return vi.localZ > vj.localZ
				}
				return vi.localY < vj.localY
			}
			return vi.screenX < vj.screenX
		}
		return vi.screenY < vj.screenY
	})

	offsetX := depth * previewTileWidth / 2
	offsetY := height * previewVoxelHeight
	for _, info := range voxels {
		renderVoxelPreview(img, offsetX+info.screenX, offsetY+info.screenY, info.material)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preview directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

func collectPreviewVoxels(world World, bounds Bounds) []voxelPreview {
	var voxels []voxelPreview
	for y := bounds.Min.Y; y <= bounds.Max.Y; y++ {
		for z := bounds.Min.Z; z <= bounds.Max.Z; z++ {
			for x := bounds.Min.X; x <= bounds.Max.X; x++ {
				m, ok := world.Voxel(Pos{X: x, Y: y, Z: z})
				if !ok {
					continue
				}
				localX := int(x - bounds.Min.X)
				localY := int(y - bounds.Min.Y)
				localZ := int(z - bounds.Min.Z)
				voxels = append(voxels, voxelPreview{
					localX:   localX,
					localY:   localY,
					localZ:   localZ,
					material: m,
					screenX:  (localX - localZ) * previewTileWidth / 2,
					screenY:  (localX+localZ)*previewTileHeight/2 - localY*previewVoxelHeight,
				})
			}
		}
	}
	return voxels
}

func renderVoxelPreview(img *image.NRGBA, baseX, baseY int, m Material) {
	baseColor := m.Properties().Color
	emission := 0.0
	if m == Light {
		emission = 1
	}

	topColor := applyLighting(baseColor, previewAmbientLight+0.4+0.6*emission)
	leftColor := applyLighting(baseColor, previewAmbientLight+0.25+0.4*emission)
	rightColor := applyLighting(baseColor, previewAmbientLight+0.15+0.3*emission)

	top := []image.Point{
		{X: baseX, Y: baseY - previewVoxelHeight},
		{X: baseX + previewTileWidth/2, Y: baseY - previewVoxelHeight + previewTileHeight/2},
		{X: baseX, Y: baseY - previewVoxelHeight + previewTileHeight},
		{X: baseX - previewTileWidth/2, Y: baseY - previewVoxelHeight + previewTileHeight/2},
	}
	left := []image.Point{
		{X: baseX - previewTileWidth/2, Y: baseY - previewVoxelHeight + previewTileHeight/2},
		{X: baseX, Y: baseY - previewVoxelHeight + previewTileHeight},
		{X: baseX, Y: baseY + previewTileHeight},
		{X: baseX - previewTileWidth/2, Y: baseY + previewTileHeight/2},
	}
	right := []image.Point{
		{X: baseX + previewTileWidth/2, Y: baseY - previewVoxelHeight + previewTileHeight/2},
		{X: baseX, Y: baseY - previewVoxelHeight + previewTileHeight},
		{X: baseX, Y: baseY + previewTileHeight},
		{X: baseX + previewTileWidth/2, Y: baseY + previewTileHeight/2},
	}

	fillPolygon(img, left, leftColor)
	fillPolygon(img, right, rightColor)
	fillPolygon(img, top, topColor)
}

func applyLighting(base color.NRGBA, factor float64) color.NRGBA {
	factor = math.Max(0, math.Min(1, factor))
	return color.NRGBA{
		R: uint8(math.Round(float64(base.R) * factor)),
		G: uint8(math.Round(float64(base.G) * factor)),
		B: uint8(math.Round(float64(base.B) * factor)),
		A: 255,
	}
}

// fillPolygon is a scanline fill over a convex or simple polygon.
func fillPolygon(img *image.NRGBA, pts []image.Point, col color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	minY := pts[0].Y
	maxY := pts[0].Y
	for _, p := range pts[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	bounds := img.Bounds()
	minY = max(minY, bounds.Min.Y)
	maxY = min(maxY, bounds.Max.Y-1)

	xs := make([]int, 0, len(pts))
	for y := minY; y <= maxY; y++ {
		xs = xs[:0]
		for i := range pts {
			j := (i + 1) % len(pts)
			x1, y1 := pts[i].X, pts[i].Y
			x2, y2 := pts[j].X, pts[j].Y
			if y1 == y2 {
				continue
			}
			if y < min(y1, y2) || y >= max(y1, y2) {
				continue
			}
			xs = append(xs, x1+(y-y1)*(x2-x1)/(y2-y1))
		}
		if len(xs) < 2 {
			continue
		}
		sort.Ints(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			xStart := max(xs[i], bounds.Min.X)
			xEnd := min(xs[i+1], bounds.Max.X-1)
			for x := xStart; x <= xEnd; x++ {
				idx := (y-bounds.Min.Y)*img.Stride + (x-bounds.Min.X)*4
				img.Pix[idx] = col.R
				img.Pix[idx+1] = col.G
				img.Pix[idx+2] = col.B
				img.Pix[idx+3] = col.A
			}
		}
	}
}
