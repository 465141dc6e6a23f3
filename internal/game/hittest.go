package game

// Point is a pixel coordinate in the client viewport.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is the rendered bounding rectangle of the puzzle image in the client
// viewport, in pixels. Used to translate clicks onto the 0-1000 grid.
type Frame struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type HitOutcome string

const (
	HitNewFind   HitOutcome = "new_find"
	HitDuplicate HitOutcome = "duplicate"
	HitMiss      HitOutcome = "miss"
)

// HitResult is the classification of one click. Item is set for new finds
// and duplicates.
type HitResult struct {
	Outcome HitOutcome    `json:"outcome"`
	Item    *RevealedItem `json:"item,omitempty"`
}

// HitTest maps a click inside the rendered image onto the normalized grid
// and tests it against each candidate box in order. Boxes are assumed
// non-overlapping, so the first containing item wins. Exactly one of
// new-find, duplicate, or miss is returned for every click.
func HitTest(click Point, frame Frame, items []RevealedItem, found map[int]bool) HitResult {
	if frame.Width <= 0 || frame.Height <= 0 {
		return HitResult{Outcome: HitMiss}
	}
	relX := (click.X - frame.Left) / frame.Width * 1000
	relY := (click.Y - frame.Top) / frame.Height * 1000

	for i := range items {
		box := items[i].Box // [ymin, xmin, ymax, xmax]
		if relY >= float64(box[0]) && relY <= float64(box[2]) &&
			relX >= float64(box[1]) && relX <= float64(box[3]) {
			item := items[i]
			if found[item.ID] {
				return HitResult{Outcome: HitDuplicate, Item: &item}
			}
			return HitResult{Outcome: HitNewFind, Item: &item}
		}
	}
	return HitResult{Outcome: HitMiss}
}
