package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic convention attribute keys for gateway telemetry.
// Following OpenTelemetry naming conventions: namespace.attribute_name

const (
	// AttrMatchID identifies which match a signal concerns.
	AttrMatchID = attribute.Key("match.id")
	// AttrOperation differentiates store operations (list_live, live_score, ...).
	AttrOperation = attribute.Key("operation")
	// AttrResult records the outcome of an operation (success, error class, etc.).
	AttrResult = attribute.Key("result")
	// AttrFrameType tags outbound WebSocket frames by type (full_state, score_update, ...).
	AttrFrameType = attribute.Key("frame.type")
	// AttrCommandType indicates which client command (subscribe/unsubscribe) was processed.
	AttrCommandType = attribute.Key("command.type")
)

// OperationAttributes builds the common attribute set for store operation metrics.
func OperationAttributes(operation, result string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrOperation.String(operation),
		AttrResult.String(result),
	}
}
