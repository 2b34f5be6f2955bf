package progress

import (
	"io"
	"math/big"
	"os"

	"github.com/cheggaaa/pb/v3"
)

const runTemplate pb.ProgressBarTemplate = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . "%s c/s" "? c/s"}} {{rtime . "ETA %s"}}`

// RunBar shows candidates attempted by a session against its keyspace.
type RunBar struct {
	bar *pb.ProgressBar
}

// NewRunBar starts a bar at checkpoint. A keyspace that does not fit an int64 (a full
// recovery-password mask) is shown without a total.
func NewRunBar(label string, checkpoint uint64, keyspace *big.Int) *RunBar {
	return newRunBar(os.Stderr, label, checkpoint, keyspace)
}

func newRunBar(w io.Writer, label string, checkpoint uint64, keyspace *big.Int) *RunBar {
	var total int64
	if keyspace != nil && keyspace.IsInt64() {
		total = keyspace.Int64()
	}

	bar := pb.New64(total)
	bar.SetTemplate(runTemplate)
	bar.Set("prefix", label+" ")
	bar.SetWriter(w)
	bar.SetCurrent(clampInt64(checkpoint))
	bar.Start()

	return &RunBar{bar: bar}
}

// Update moves the bar to checkpoint.
func (r *RunBar) Update(checkpoint uint64) {
	r.bar.SetCurrent(clampInt64(checkpoint))
}

// Current returns the position shown by the bar.
func (r *RunBar) Current() int64 {
	return r.bar.Current()
}

// Finish stops the bar.
func (r *RunBar) Finish() {
	r.bar.Finish()
}

func clampInt64(v uint64) int64 {
	const maxInt64 = 1<<63 - 1
	if v > maxInt64 {
		return maxInt64
	}

	return int64(v)
}
