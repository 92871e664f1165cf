package graphql

import "fmt"

// Kind classifies why an upstream call failed.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindGraphQL     Kind = "graphql"
	KindStatus      Kind = "status"
	KindTransport   Kind = "transport"
	KindDecode      Kind = "decode"
	KindRateLimited Kind = "rate_limited"
)

// UpstreamError is returned by Client.Execute for every failed call.
type UpstreamError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("graphql %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("graphql %s: %s", e.Kind, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if ue, ok := err.(*UpstreamError); ok {
		return string(ue.Kind)
	}
	return "unknown"
}
