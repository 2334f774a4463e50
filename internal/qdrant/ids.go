// Package qdrant adapts the Qdrant vector search engine (REST and gRPC transports) to the
// vector service's index operations.
package qdrant

import (
	"maps"
	"strconv"

	"github.com/google/uuid"

	"github.com/knowledgebase/vectorhub/internal/models"
)

// OriginalIDField is the reserved payload key that carries a caller id Qdrant cannot store natively.
const OriginalIDField = "_kb_point_id"

// idNamespace seeds the UUIDv5 derivation of arbitrary string ids. Changing it orphans stored points.
var idNamespace = uuid.MustParse("6f1d7f0e-4b0a-5c55-9a53-0d6b3c1e2a77")

// pointID is the engine-side form of a caller id: either a canonical UUID string or an unsigned integer.
type pointID struct {
	uuid   string
	num    uint64
	isNum  bool
	mapped bool
}

// resolveID maps a caller id onto an id Qdrant accepts. Canonical UUIDs and decimal unsigned integers
// pass through; anything else becomes a deterministic UUIDv5 and is marked as mapped.
func resolveID(id string) pointID {
	if parsed, err := uuid.Parse(id); err == nil && parsed.String() == id {
		return pointID{uuid: id}
	}

	if n, err := strconv.ParseUint(id, 10, 64); err == nil && strconv.FormatUint(n, 10) == id {
		return pointID{num: n, isNum: true}
	}

	return pointID{uuid: uuid.NewSHA1(idNamespace, []byte(id)).String(), mapped: true}
}

// storedPayload returns the payload to send to the engine: a copy of payload plus the original id when mapped.
func storedPayload(id string, pid pointID, payload models.Payload) map[string]any {
	out := make(map[string]any, len(payload)+1)
	maps.Copy(out, payload)

	if pid.mapped {
		out[OriginalIDField] = id
	}

	return out
}

// restoreResult recovers the caller id from an engine hit and strips the reserved payload key.
func restoreResult(engineID string, score float64, payload map[string]any) models.SearchResult {
	id := engineID

	if original, ok := payload[OriginalIDField].(string); ok {
		id = original

		delete(payload, OriginalIDField)
	}

	if payload == nil {
		payload = map[string]any{}
	}

	return models.SearchResult{ID: id, Score: score, Payload: payload}
}
