package retention

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/tim7en/pm-app-sub001/models"
)

// writeArchive stores records as gzip-compressed JSON lines and returns the file path
func writeArchive(dir string, t models.EntityType, now time.Time, archiveID string, records []models.Record) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s", t, now.Format("20060102-150405.000000000"))
	if archiveID != "" {
		name += "-" + archiveID
	}
	path = filepath.Join(dir, name+".jsonl.gz")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	zw := gzip.NewWriter(f)
	encoder := json.NewEncoder(zw)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return "", fmt.Errorf("failed to encode %s %s: %w", t, record.GetID(), err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to flush archive: %w", err)
	}
	return path, nil
}
