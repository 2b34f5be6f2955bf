package progress

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	getter "github.com/hashicorp/go-getter"
)

// DefaultProgressBar is the go-getter progress tracker used for downloads.
var DefaultProgressBar getter.ProgressTracker = &downloadTracker{} //nolint:gochecknoglobals // Shared tracker instance

// downloadTracker draws one byte-counting bar per download on stderr.
type downloadTracker struct{}

// TrackProgress wraps stream so reads advance a progress bar. total may be zero when the
// server does not report a size.
func (*downloadTracker) TrackProgress(src string, currentSize, totalSize int64, stream io.ReadCloser) io.ReadCloser {
	bar := pb.New64(totalSize)
	bar.SetCurrent(currentSize)
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", filepath.Base(src)+" ")
	bar.SetWriter(os.Stderr)
	bar.Start()

	// Closing the proxy reader finishes the bar and closes stream.
	return bar.NewProxyReader(stream)
}
