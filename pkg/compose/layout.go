// layout.go — Group layout blocks into regions and order them.
package compose

import (
	"slices"
	"sort"

	"github.com/xob0t/GoStorefront/pkg/schema"
)

// Region is one layout position with its blocks in render order.
type Region struct {
	Position schema.Position
	Blocks   []schema.LayoutBlock
}

// Group splits layout by position and sorts each group by Order. Blocks with
// equal Order keep their document order. Empty or unknown positions land in
// main. Regions are returned in schema.Positions order; empty regions are
// omitted.
func Group(layout []schema.LayoutBlock) []Region {
	byPos := make(map[schema.Position][]schema.LayoutBlock, len(schema.Positions))
	for _, b := range layout {
		pos := b.Position
		if !slices.Contains(schema.Positions, pos) {
			pos = schema.PositionMain
		}
		byPos[pos] = append(byPos[pos], b)
	}

	var regions []Region
	for _, pos := range schema.Positions {
		blocks := byPos[pos]
		if len(blocks) == 0 {
			continue
		}
		sort.SliceStable(blocks, func(i, j int) bool {
			return blocks[i].Order < blocks[j].Order
		})
		regions = append(regions, Region{Position: pos, Blocks: blocks})
	}
	return regions
}
