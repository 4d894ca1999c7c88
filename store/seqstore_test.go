package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(t *testing.T, kv *SequenceStore, key string) []string {
	t.Helper()
	got, err := kv.Get(key)
	require.NoError(t, err)
	return got
}

func TestSequenceStore_PushFront_PrependsInOrder(t *testing.T) {
	kv := New(false)

	require.NoError(t, kv.PushFront("k", []string{"c", "d"}))
	require.NoError(t, kv.PushFront("k", []string{"a", "b"}))

	assert.Equal(t, []string{"a", "b", "c", "d"}, seq(t, kv, "k"))
}

func TestSequenceStore_PushBack_Appends(t *testing.T) {
	kv := New(false)

	require.NoError(t, kv.PushBack("k", []string{"a"}))
	require.NoError(t, kv.PushBack("k", []string{"b", "c"}))

	assert.Equal(t, []string{"a", "b", "c"}, seq(t, kv, "k"))
}

func TestSequenceStore_PushFront_DoesNotAliasInput(t *testing.T) {
	kv := New(false)
	batch := []string{"x", "y"}

	require.NoError(t, kv.PushFront("k", batch))
	require.NoError(t, kv.PushBack("k", []string{"z"}))
	batch[0] = "mutated"

	assert.Equal(t, []string{"x", "y", "z"}, seq(t, kv, "k"))
}

func TestSequenceStore_PopFront_Twice(t *testing.T) {
	kv := New(false)
	require.NoError(t, kv.PushBack("k", []string{"a", "b"}))

	first, err := kv.PopFront("k")
	require.NoError(t, err)
	second, err := kv.PopFront("k")
	require.NoError(t, err)

	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
	assert.True(t, kv.Has("k"), "emptied key stays present")
	assert.Equal(t, 0, kv.Len("k"))
}

func TestSequenceStore_PopBack(t *testing.T) {
	kv := New(false)
	require.NoError(t, kv.PushBack("k", []string{"a", "b", "c"}))

	got, err := kv.PopBack("k")
	require.NoError(t, err)
	assert.Equal(t, "c", got)

	require.NoError(t, kv.PushBack("k", []string{"d"}))
	assert.Equal(t, []string{"a", "b", "d"}, seq(t, kv, "k"))
}

func TestSequenceStore_Pop_OutOfSync(t *testing.T) {
	kv := New(false)
	require.NoError(t, kv.PushBack("other", []string{"keep"}))
	require.NoError(t, kv.PushBack("empty", nil))

	_, err := kv.PopFront("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfSync))
	assert.True(t, IsOutOfSync(err))

	_, err = kv.PopBack("empty")
	var oos *OutOfSyncError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "PopBack", oos.Op)
	assert.Equal(t, "empty", oos.Key)

	assert.False(t, kv.Has("missing"))
	assert.Equal(t, []string{"keep"}, seq(t, kv, "other"))
	assert.Equal(t, []string{"other", "empty"}, kv.Keys())
}

func TestSequenceStore_ReplaceAll(t *testing.T) {
	kv := New(false)
	require.NoError(t, kv.PushBack("k1", []string{"old"}))
	require.NoError(t, kv.PushBack("k3", []string{"gone"}))

	require.NoError(t, kv.ReplaceAll(Snapshot{
		{Key: "k2", Values: []string{"z"}},
		{Key: "k1", Values: []string{"x", "y"}},
	}))

	assert.Equal(t, []string{"k2", "k1"}, kv.Keys())
	assert.Equal(t, []string{"x", "y"}, seq(t, kv, "k1"))
	assert.Equal(t, []string{"z"}, seq(t, kv, "k2"))
	_, err := kv.Get("k3")
	assert.ErrorIs(t, err, ErrNoSuchKey)
}

func TestSequenceStore_ReplaceAll_Empty(t *testing.T) {
	kv := New(false)
	require.NoError(t, kv.PushBack("k", []string{"a"}))

	require.NoError(t, kv.ReplaceAll(nil))

	assert.Empty(t, kv.Keys())
	assert.Empty(t, kv.Snapshot())
}

func TestSequenceStore_Drop(t *testing.T) {
	kv := New(false)
	require.NoError(t, kv.PushBack("a", []string{"1"}))
	require.NoError(t, kv.PushBack("b", []string{"2"}))
	require.NoError(t, kv.PushBack("c", []string{"3"}))

	require.NoError(t, kv.Drop("b"))
	require.NoError(t, kv.Drop("never"))

	assert.Equal(t, []string{"a", "c"}, kv.Keys())
}

func TestSequenceStore_KeysKeepCreationOrder(t *testing.T) {
	kv := New(false)
	for _, k := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, kv.PushFront(k, []string{k}))
	}
	require.NoError(t, kv.PushBack("alpha", []string{"again"}))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, kv.Keys())
}

func TestSequenceStore_Scenario(t *testing.T) {
	kv := New(false)

	require.NoError(t, kv.PushBack("k", []string{"1"}))
	require.NoError(t, kv.PushFront("k", []string{"2"}))
	require.NoError(t, kv.PushBack("k", []string{"3"}))
	assert.Equal(t, []string{"2", "1", "3"}, seq(t, kv, "k"))

	got, err := kv.PopFront("k")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	assert.Equal(t, []string{"1", "3"}, seq(t, kv, "k"))
}

func TestSequenceStore_TelemetryDoesNotChangeResults(t *testing.T) {
	kv := New(true)

	require.NoError(t, kv.PushBack("k", []string{"a"}))
	_, err := kv.PopBack("k")
	require.NoError(t, err)
	_, err = kv.PopBack("k")
	assert.ErrorIs(t, err, ErrOutOfSync)
}
