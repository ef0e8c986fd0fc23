// Package observability provides metrics and logging utilities.
package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrHTTPMethod     = "http_method"
	attrPath           = "path"
	attrStatus         = "status"
	attrMethod         = "method"
	attrSuccess        = "success"
	attrClassification = "classification"
)

func httpMethodAttr(method string) attribute.KeyValue {
	return attribute.String(attrHTTPMethod, method)
}

func pathAttr(path string) attribute.KeyValue {
	return attribute.String(attrPath, path)
}

func statusAttr(code int) attribute.KeyValue {
	// Group status codes to reduce cardinality
	// 200-299 -> 2xx, 400-499 -> 4xx, 500-599 -> 5xx
	group := fmt.Sprintf("%dxx", code/100)
	return attribute.String(attrStatus, group)
}

func methodAttr(method string) attribute.KeyValue {
	// Canonical transfer method name; the profile table is small and static,
	// so cardinality is bounded.
	return attribute.String(attrMethod, method)
}

func successAttr(success bool) attribute.KeyValue {
	return attribute.Bool(attrSuccess, success)
}

func classificationAttr(classification string) attribute.KeyValue {
	return attribute.String(attrClassification, classification)
}
