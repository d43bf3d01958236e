package tracing

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
)

var sensitiveKeys = map[attribute.Key]struct{}{
	"email":         {},
	"authorization": {},
	"session":       {},
	"full_name":     {},
}

// SafeAttributes drops attributes that would leak personal data into spans.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := sensitiveKeys[attr.Key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError records only the error message chain root, never wrapped payloads.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return errors.New(err.Error())
		}
		err = next
	}
}
