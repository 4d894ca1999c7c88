package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	requestUpload   = "upload"
	requestDownload = "download"
)

// Request is an admin-to-server message.
type Request struct {
	Command string
	Value   string `json:",omitempty"`
}

// EncodeUpload wraps an already serialized snapshot.
func EncodeUpload(payload string) []byte {
	return mustMarshal(Request{Command: requestUpload, Value: payload})
}

func EncodeDownload() []byte {
	return mustMarshal(Request{Command: requestDownload})
}

// CompactPayload validates a user supplied snapshot file and re-serializes
// it without insignificant whitespace.
func CompactPayload(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return "", fmt.Errorf("snapshot is not valid JSON: %w", err)
	}
	return buf.String(), nil
}

// mustMarshal only sees structs of strings, which always encode.
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
