package testhelpers

import (
	"net/http"

	"github.com/jarcoal/httpmock"
)

// SetupHTTPMock activates httpmock on http.DefaultTransport and returns a cleanup function.
func SetupHTTPMock() func() {
	httpmock.Activate()

	return func() {
		httpmock.DeactivateAndReset()
	}
}

// MockFileDownload registers a GET responder serving body at url.
func MockFileDownload(url, body string) {
	httpmock.RegisterResponder(http.MethodGet, url, httpmock.NewStringResponder(http.StatusOK, body))
}

// MockDownloadFailure registers a GET responder that answers url with status.
func MockDownloadFailure(url string, status int) {
	httpmock.RegisterResponder(http.MethodGet, url, httpmock.NewStringResponder(status, http.StatusText(status)))
}
