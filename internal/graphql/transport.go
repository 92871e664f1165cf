package graphql

import (
	"net/http"
	"strconv"

	"github.com/pvzzle/taptracker/internal/metrics"
)

// metricsTransport counts upstream HTTP responses by status code.
type metricsTransport struct {
	base http.RoundTripper
}

func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	metrics.GraphQLHTTPResponses.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}
