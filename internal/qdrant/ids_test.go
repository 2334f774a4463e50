package qdrant

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgebase/vectorhub/internal/models"
)

func TestResolveID(t *testing.T) {
	t.Run("canonical uuid passes through", func(t *testing.T) {
		pid := resolveID("0b7e1a52-3c4f-4a57-9c8f-2e5d1b6a7c90")
		assert.Equal(t, "0b7e1a52-3c4f-4a57-9c8f-2e5d1b6a7c90", pid.uuid)
		assert.False(t, pid.mapped)
		assert.False(t, pid.isNum)
	})

	t.Run("unsigned integer passes through", func(t *testing.T) {
		pid := resolveID("42")
		assert.True(t, pid.isNum)
		assert.Equal(t, uint64(42), pid.num)
		assert.False(t, pid.mapped)
	})

	t.Run("leading zero is mapped", func(t *testing.T) {
		assert.True(t, resolveID("042").mapped)
	})

	t.Run("uppercase uuid is mapped", func(t *testing.T) {
		assert.True(t, resolveID("0B7E1A52-3C4F-4A57-9C8F-2E5D1B6A7C90").mapped)
	})

	t.Run("arbitrary string is mapped deterministically", func(t *testing.T) {
		a := resolveID("doc-1")
		b := resolveID("doc-1")
		c := resolveID("doc-2")

		assert.True(t, a.mapped)
		assert.Equal(t, a.uuid, b.uuid)
		assert.NotEqual(t, a.uuid, c.uuid)
	})
}

func TestStoredPayload_RoundTrip(t *testing.T) {
	payload := models.Payload{"title": "x"}
	pid := resolveID("doc-1")

	stored := storedPayload("doc-1", pid, payload)
	assert.Equal(t, "doc-1", stored[OriginalIDField])
	assert.NotContains(t, payload, OriginalIDField, "caller payload must not be mutated")

	result := restoreResult(pid.uuid, 0.9, stored)
	assert.Equal(t, "doc-1", result.ID)
	assert.Equal(t, models.Payload{"title": "x"}, result.Payload)
}

func TestRestoreResult_NilPayload(t *testing.T) {
	result := restoreResult("7", 0.5, nil)
	assert.Equal(t, "7", result.ID)
	assert.NotNil(t, result.Payload)
}

func TestValueToAny(t *testing.T) {
	in := map[string]any{
		"s":    "text",
		"n":    1.5,
		"b":    true,
		"list": []any{"a", 2.0},
		"obj":  map[string]any{"k": "v"},
		"null": nil,
	}

	converted, err := qdrant.TryValueMap(in)
	require.NoError(t, err)

	out := valueMapToAny(converted)
	assert.Equal(t, "text", out["s"])
	assert.InDelta(t, 1.5, out["n"], 1e-9)
	assert.Equal(t, true, out["b"])
	assert.Equal(t, map[string]any{"k": "v"}, out["obj"])
	assert.Nil(t, out["null"])

	list, ok := out["list"].([]any)
	require.True(t, ok)
	assert.Equal(t, "a", list[0])
	assert.InDelta(t, 2.0, list[1], 1e-9)
}

func TestGRPCIDString(t *testing.T) {
	assert.Equal(t, "9", grpcIDString(grpcID(resolveID("9"))))

	pid := resolveID("doc-1")
	assert.Equal(t, pid.uuid, grpcIDString(grpcID(pid)))
}

func TestGRPCDistance(t *testing.T) {
	d, err := grpcDistance(models.DistanceCosine)
	require.NoError(t, err)
	assert.Equal(t, qdrant.Distance_Cosine, d)

	_, err = grpcDistance("Manhattan")
	require.ErrorIs(t, err, ErrUnsupportedDistance)
}
