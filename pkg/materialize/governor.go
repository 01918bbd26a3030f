package materialize

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrLimitReached signals that the short-mode cap is hit. It unwinds the
// materializer loops; callers treat it as a successful early stop.
var ErrLimitReached = errors.New("short-mode generation limit reached")

const (
	// DefaultShortModeLimit caps folders and files separately.
	DefaultShortModeLimit = 10

	// MaxTimeseriesSiblings is the advisory cap on timeseries folders
	// under one parent. Exceeding it only warns.
	MaxTimeseriesSiblings = 5
)

// Governor enforces the short-mode mutation caps. A nil Governor allows
// everything. A limit of zero disables that limit.
type Governor struct {
	folderLimit int
	fileLimit   int
	folders     int
	files       int
}

// NewGovernor returns the short-mode governor. In files-only runs the
// folder limit is disabled since that mode creates no directories.
func NewGovernor(filesOnly bool) *Governor {
	g := &Governor{folderLimit: DefaultShortModeLimit, fileLimit: DefaultShortModeLimit}
	if filesOnly {
		g.folderLimit = 0
	}
	return g
}

// AllowFolder consumes one directory-creation slot.
func (g *Governor) AllowFolder() error {
	if g == nil || g.folderLimit == 0 {
		return nil
	}
	if g.folders >= g.folderLimit {
		return ErrLimitReached
	}
	g.folders++
	return nil
}

// AllowFile consumes one file-creation slot.
func (g *Governor) AllowFile() error {
	if g == nil || g.fileLimit == 0 {
		return nil
	}
	if g.files >= g.fileLimit {
		return ErrLimitReached
	}
	g.files++
	return nil
}

// warnTimeseries flags parents with an implausible number of timeseries
// children. Advisory only.
func warnTimeseries(parent string, count int) {
	if count > MaxTimeseriesSiblings {
		logrus.Warnf("folder %q has %d timeseries subfolders (advisory maximum is %d)",
			parent, count, MaxTimeseriesSiblings)
	}
}
