package exceptional_test

import (
	"testing"

	"github.com/ashleyglee/exceptional/pkg/exceptional"
	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHashFor_Deterministic(t *testing.T) {
	detail := "panic: connection refused\ngoroutine 1 [running]:\nmain.main()"

	h1 := exceptional.ErrorHashFor(detail, "", false)
	h2 := exceptional.ErrorHashFor(detail, "", false)

	require.NotNil(t, h1)
	require.NotNil(t, h2)
	assert.Equal(t, *h1, *h2)
}

func TestErrorHashFor_EmptyDetailIsNil(t *testing.T) {
	assert.Nil(t, exceptional.ErrorHashFor("", "", false))
	assert.Nil(t, exceptional.ErrorHashFor("", "web01", true))
}

func TestErrorHashFor_RollupOffIgnoresMachine(t *testing.T) {
	detail := "some trace"

	a := exceptional.ErrorHashFor(detail, "web01", false)
	b := exceptional.ErrorHashFor(detail, "web02", false)

	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, *a, *b)
}

func TestErrorHashFor_PerServerRollupSplitsMachines(t *testing.T) {
	detail := "some trace"

	a := exceptional.ErrorHashFor(detail, "web01", true)
	b := exceptional.ErrorHashFor(detail, "web02", true)

	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEqual(t, *a, *b)
}

// The per-server combiner is h*397^m, order-sensitive and bit-for-bit fixed
// for compatibility with previously stored hashes.
func TestErrorHashFor_MixingRule(t *testing.T) {
	detail := "some trace"
	machine := "web01"

	content := int64(xxhash.Sum64String(detail))
	machineHash := int64(xxhash.Sum64String(machine))
	want := content*397 ^ machineHash

	got := exceptional.ErrorHashFor(detail, machine, true)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestErrorHashFor_EmptyMachineSkipsMixing(t *testing.T) {
	detail := "some trace"

	plain := exceptional.ErrorHashFor(detail, "", false)
	mixedEmpty := exceptional.ErrorHashFor(detail, "", true)

	require.NotNil(t, plain)
	require.NotNil(t, mixedEmpty)
	assert.Equal(t, *plain, *mixedEmpty)
}
