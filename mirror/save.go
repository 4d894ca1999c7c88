package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/linkinlog/queueMirror/protocol"
)

// FileSaver writes downloaded snapshots verbatim as sds_<unix millis>.json.
type FileSaver struct {
	Dir string
	now func() time.Time
}

func NewFileSaver(dir string) *FileSaver {
	return &FileSaver{Dir: dir, now: time.Now}
}

func (f *FileSaver) Save(payload string) (string, error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot dir: %w", err)
	}

	path := filepath.Join(f.Dir, fmt.Sprintf("sds_%d.json", f.now().UnixMilli()))
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadFile reads a saved snapshot and returns the compact payload to upload.
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return protocol.CompactPayload(data)
}
