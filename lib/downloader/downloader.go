// Package downloader fetches wordlists and rule files into the files directory.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/duke-git/lancet/v2/cryptor"
	"github.com/duke-git/lancet/v2/strutil"
	"github.com/hashicorp/go-getter"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/progress"
)

const (
	defaultUmask = 0o022 // Default umask for file permissions
)

var (
	// ErrInvalidURL is returned for URLs without a scheme and host.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrChecksumMismatch is returned when a downloaded file does not match its checksum.
	ErrChecksumMismatch = errors.New("downloaded file checksum does not match")
	// ErrInvalidName is returned for destination names that would escape the files directory.
	ErrInvalidName = errors.New("invalid file name")
)

// Destination resolves where fileURL is stored under appstate.State.FilePath. name
// defaults to the last element of the URL path.
func Destination(fileURL, name string) (string, error) {
	parsedURL, err := url.Parse(fileURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, fileURL)
	}

	if strutil.IsBlank(name) {
		name = path.Base(parsedURL.Path)
	}

	if name == "" || name == "." || name == "/" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return filepath.Join(appstate.State.FilePath, name), nil
}

// DownloadFile downloads fileURL to filePath, verifying the optional md5 checksum. An
// existing file with a matching checksum is kept. Failed attempts are retried up to
// appstate.State.DownloadMaxRetries times with a doubling delay.
func DownloadFile(ctx context.Context, fileURL, filePath, checksum string) error {
	parsedURL, err := url.Parse(fileURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		appstate.Logger.Error("Invalid URL", "url", fileURL)

		return fmt.Errorf("%w: %q", ErrInvalidURL, fileURL)
	}

	if strutil.IsNotBlank(checksum) && FileExistsAndValid(filePath, checksum) {
		appstate.Logger.Info("Download already exists", "path", filePath)

		return nil
	}

	attempts := max(appstate.State.DownloadMaxRetries, 1)
	delay := appstate.State.DownloadRetryDelay

	for attempt := 1; ; attempt++ {
		err = downloadAndVerifyFile(ctx, fileURL, filePath, checksum)
		if err == nil {
			return nil
		}

		if attempt >= attempts {
			return fmt.Errorf("downloading %s after %d attempts: %w", fileURL, attempt, err)
		}

		appstate.Logger.Warn("Download failed, retrying", "url", fileURL, "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
	}
}

// FileExistsAndValid checks if a file exists at the given path and, if a checksum is provided, verifies its validity.
// A file whose checksum does not match is removed.
func FileExistsAndValid(filePath, checksum string) bool {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return false
	}

	if strutil.IsBlank(checksum) {
		return true
	}

	fileChecksum, err := cryptor.Md5File(filePath)
	if err != nil {
		appstate.Logger.Error("Error calculating file checksum", "path", filePath, "error", err)

		return false
	}

	if fileChecksum == checksum {
		return true
	}

	appstate.Logger.Warn("Checksums do not match", "path", filePath, "url_checksum", checksum, "file_checksum", fileChecksum)

	if err := os.Remove(filePath); err != nil {
		appstate.Logger.Error("Error removing file with mismatched checksum", "path", filePath, "error", err)
	}

	return false
}

func downloadAndVerifyFile(ctx context.Context, fileURL, filePath, checksum string) error {
	if strutil.IsNotBlank(checksum) {
		var err error

		fileURL, err = appendChecksumToURL(fileURL, checksum)
		if err != nil {
			return err
		}
	}

	// A nil transport resolves to http.DefaultTransport per request.
	httpGetter := &getter.HttpGetter{Client: &http.Client{}}

	client := &getter.Client{
		Ctx:      ctx,
		Dst:      filePath,
		Src:      fileURL,
		Pwd:      appstate.State.FilePath,
		Insecure: appstate.State.InsecureDownloads,
		Mode:     getter.ClientModeFile,
		Getters: map[string]getter.Getter{
			"http":  httpGetter,
			"https": httpGetter,
			"file":  new(getter.FileGetter),
		},
	}

	if err := client.Configure(
		getter.WithProgress(progress.DefaultProgressBar),
		getter.WithUmask(os.FileMode(defaultUmask)),
	); err != nil {
		return err
	}

	if err := client.Get(); err != nil {
		appstate.Logger.Debug("Error downloading file", "error", err)

		return err
	}

	if strutil.IsNotBlank(checksum) && !FileExistsAndValid(filePath, checksum) {
		return ErrChecksumMismatch
	}

	return nil
}

// appendChecksumToURL adds the md5 checksum as go-getter's checksum query parameter.
func appendChecksumToURL(rawURL, checksum string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("checksum", "md5:"+checksum)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
