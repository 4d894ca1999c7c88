package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/linkinlog/queueMirror/store"
)

func TestDecode_ClientEvent(t *testing.T) {
	msg, err := Decode([]byte(`{"Type":"clientEvent","Key":"","Command":"","Values":["3"],"Value":""}`))
	require.NoError(t, err)
	assert.Equal(t, ClientEvent{Peers: 3}, msg)
	assert.Equal(t, KindClientEvent, msg.Kind())
}

func TestDecode_DataEvent(t *testing.T) {
	msg, err := Decode([]byte(`{"Type":"dataEvent","Key":"key1","Command":"addTop","Values":["a","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, DataEvent{Command: AddTop, Key: "key1", Values: []string{"a", "b"}}, msg)
}

func TestDecode_DataEvent_NullValues(t *testing.T) {
	msg, err := Decode([]byte(`{"Type":"dataEvent","Key":"k","Command":"removeBottom","Values":null}`))
	require.NoError(t, err)
	assert.Equal(t, []string{}, msg.(DataEvent).Values)
}

func TestDecode_CSVSync_KeepsKeyOrder(t *testing.T) {
	msg, err := Decode([]byte(`{"Type":"csvSync","Data":{"k2":["z"],"k1":["x","y"]}}`))
	require.NoError(t, err)

	sync, ok := msg.(CSVSync)
	require.True(t, ok)
	assert.Equal(t, store.Snapshot{
		{Key: "k2", Values: []string{"z"}},
		{Key: "k1", Values: []string{"x", "y"}},
	}, sync.Data)
}

func TestDecode_CSVSync_NullData(t *testing.T) {
	msg, err := Decode([]byte(`{"Type":"csvSync","Data":null}`))
	require.NoError(t, err)
	assert.Empty(t, msg.(CSVSync).Data)
}

func TestDecode_Download(t *testing.T) {
	msg, err := Decode([]byte(`{"Type":"download","Value":"{\"k\":[\"v\"]}"}`))
	require.NoError(t, err)
	assert.Equal(t, Download{Value: `{"k":["v"]}`}, msg)
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{"Type":`, ErrMalformed},
		{"missing type", `{"Key":"k"}`, ErrMalformed},
		{"unknown kind", `{"Type":"kvpSync","Data":{}}`, ErrUnknownKind},
		{"unknown kind with string data", `{"Type":"kvpSync","Data":{"a":"b"}}`, ErrUnknownKind},
		{"unknown command", `{"Type":"dataEvent","Key":"k","Command":"set","Values":["v"]}`, ErrMalformed},
		{"missing key", `{"Type":"dataEvent","Command":"addTop","Values":["v"]}`, ErrMalformed},
		{"missing peer count", `{"Type":"clientEvent","Values":[]}`, ErrMalformed},
		{"bad peer count", `{"Type":"clientEvent","Values":["many"]}`, ErrMalformed},
		{"bad snapshot", `{"Type":"csvSync","Data":{"k":[1]}}`, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.raw))
			assert.Nil(t, msg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var de *DecodeError
			assert.ErrorAs(t, err, &de)
		})
	}
}

func TestDecode_UnknownKindNamesKind(t *testing.T) {
	_, err := Decode([]byte(`{"Type":"kvpSync"}`))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "kvpSync", de.Kind)
	assert.Contains(t, err.Error(), "kvpSync")
}

func TestDecode_KVPSyncIsNotMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"Type":"kvpSync","Data":{"greeting":"hello","n":"1"}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.NotErrorIs(t, err, ErrMalformed)
}
