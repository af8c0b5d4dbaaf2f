package compute

import "image"

// bandsPerWorker oversubscribes row bands so uneven rows balance out.
const bandsPerWorker = 4

// Tiles partitions a w x h image into the rectangles handed to workers. With
// a zero work group the image is cut into horizontal bands; otherwise into
// work-group sized tiles, clipped at the right and bottom edges.
func Tiles(w, h int, wg WorkGroup, workers int) []image.Rectangle {
	if w <= 0 || h <= 0 {
		return nil
	}

	tw, th := wg.Width, wg.Height
	if wg.IsZero() {
		if workers < 1 {
			workers = 1
		}
		bands := workers * bandsPerWorker
		tw = w
		th = (h + bands - 1) / bands
	}

	tiles := make([]image.Rectangle, 0, ((w+tw-1)/tw)*((h+th-1)/th))
	for y := 0; y < h; y += th {
		for x := 0; x < w; x += tw {
			tiles = append(tiles, image.Rect(x, y, min(x+tw, w), min(y+th, h)))
		}
	}
	return tiles
}
