package materialize

import "math/rand"

// Shallow folders are organizational containers, so most get no direct
// files at all. These are the cumulative thresholds per level.
const (
	level1ZeroShare = 0.94
	level1OneShare  = 0.04

	level2ZeroShare = 0.80
	level2FewShare  = 0.15
)

// FileCount applies the depth-based pruning to a requested file count.
func FileCount(level, requested int, r *rand.Rand) int {
	switch {
	case level <= 1:
		p := r.Float64()
		switch {
		case p < level1ZeroShare:
			return 0
		case p < level1ZeroShare+level1OneShare:
			return 1
		default:
			return 2
		}
	case level == 2:
		p := r.Float64()
		switch {
		case p < level2ZeroShare:
			return 0
		case p < level2ZeroShare+level2FewShare:
			return 1 + r.Intn(2)
		default:
			return requested
		}
	default:
		return requested
	}
}

// DefaultRequest is the file count asked for when the tree carries no
// planned files for a folder.
func DefaultRequest(r *rand.Rand) int {
	return 2 + r.Intn(4)
}
