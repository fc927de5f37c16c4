package renderer

import (
	"image"
	"math/rand"
)

// Tile is a rectangular region of image pixels rendered as one unit of work.
// A tile's pixels, and therefore every ray of each of those pixels, are
// processed by a single worker, so pixel accumulators see no cross-worker
// writes. Each tile carries its own random stream so renders are reproducible
// regardless of which worker picks the tile up.
type Tile struct {
	ID     int
	Bounds image.Rectangle
	Random *rand.Rand
}

// newTileGrid creates tiles covering a pxls x pxls image, drawing each tile's
// seed from the master stream in tile order.
func newTileGrid(pxls, tileSize int, master *rand.Rand) []*Tile {
	var tiles []*Tile
	tileID := 0

	tilesPerSide := (pxls + tileSize - 1) / tileSize
	for tileY := 0; tileY < tilesPerSide; tileY++ {
		for tileX := 0; tileX < tilesPerSide; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, pxls)
			y1 := min(y0+tileSize, pxls)

			tiles = append(tiles, &Tile{
				ID:     tileID,
				Bounds: image.Rect(x0, y0, x1, y1),
				Random: rand.New(rand.NewSource(master.Int63())),
			})
			tileID++
		}
	}

	return tiles
}
