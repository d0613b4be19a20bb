package sources

import (
	"testing"

	"github.com/jarcoal/httpmock"
)

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}
