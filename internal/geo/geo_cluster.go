package geo

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// ClusterLevel is the S2 cell level used to group bus positions,
// roughly 7–10 km across.
const ClusterLevel = 10

// ClusterID returns a stable S2-based cluster id for c at the given level.
// Positions in the same cell share an id.
func ClusterID(c Coordinate, level int) string {
	cellID := s2.CellIDFromLatLng(c.LatLng()).Parent(level)
	return fmt.Sprintf("s2_%d", uint64(cellID))
}
