package tracing

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
)

var allowedAttributeKeys = map[attribute.Key]struct{}{
	"request_id":              {},
	"http.method":             {},
	"http.route":              {},
	"http.status_code":        {},
	"http.server_duration_ms": {},
	"job.name":                {},
	"invoice.status":          {},
}

// SafeAttributes strips attributes that could carry request payload data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedAttributeKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

// SafeError returns an error safe to record on a span. Wrapped driver
// errors may embed literal SQL values, so only the outermost message is kept.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errorClass(err))
}

func errorClass(err error) string {
	type classifier interface{ ErrorType() string }
	var c classifier
	if errors.As(err, &c) {
		return c.ErrorType()
	}
	return "internal_error"
}
