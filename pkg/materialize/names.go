package materialize

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/arbordoc/arbordoc/pkg/fsutil"
	"github.com/arbordoc/arbordoc/pkg/tree"
)

const (
	maxNumericSuffix   = 99
	randomSuffixLength = 5
)

var datePrefixPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// UniqueName resolves filename collisions inside dir: the name itself,
// then numeric suffixes, then a random letter suffix.
func UniqueName(dir, name string, r *rand.Rand) string {
	if !fsutil.Exists(filepath.Join(dir, name)) {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 1; i <= maxNumericSuffix; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !fsutil.Exists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
	for {
		candidate := fmt.Sprintf("%s_%s%s", base, randomLetters(r, randomSuffixLength), ext)
		if !fsutil.Exists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
}

func randomLetters(r *rand.Rand, n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return string(b)
}

// TimeseriesName prefixes a filename with a date from the range unless it
// already starts with one. Successive indexes step evenly through the
// range so a folder of series files spans the whole period.
func TimeseriesName(name string, dates tree.DateRange, index, total int) string {
	if datePrefixPattern.MatchString(name) {
		return name
	}
	start, err := time.Parse("2006-01-02", dates.Start)
	if err != nil {
		return name
	}
	end, err := time.Parse("2006-01-02", dates.End)
	if err != nil || end.Before(start) {
		return name
	}

	day := start
	if total > 1 {
		span := end.Sub(start)
		day = start.Add(time.Duration(index) * span / time.Duration(total-1))
	}
	return day.Format("2006-01-02") + "_" + name
}
