package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rohmanhakim/docs-crawler/pkg/fileutil"
)

/*
Responsibilities (§8 Persisted checkpoint format)

- Serialize the in-flight frontier queue, the visited set, the results
  map, and arbitrary run metadata into one JSON document
- Deserialize a prior checkpoint so a paused/interrupted crawl can resume
- Readers MUST ignore unknown fields (writers MAY add fields later)

checkpoint knows nothing about the scheduler's runtime types; it is
handed plain data by the caller and hands plain data back.
*/

// QueueEntry is one pending frontier item, serialized as a [url, depth]
// pair per §8's documented on-disk shape.
type QueueEntry struct {
	URL   string
	Depth int
}

// MarshalJSON writes QueueEntry as a 2-element JSON array, matching §8's
// [[url, depth], …] wire shape rather than a JSON object.
func (q QueueEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{q.URL, q.Depth})
}

// UnmarshalJSON reads a 2-element JSON array back into a QueueEntry.
func (q *QueueEntry) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &q.URL); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &q.Depth)
}

// Document is the full persisted checkpoint.
type Document struct {
	Queue       []QueueEntry   `json:"queue"`
	VisitedURLs []string       `json:"visited_urls"`
	Results     map[string]any `json:"results"`
	Metadata    map[string]any `json:"metadata"`
	SavedAt     time.Time      `json:"saved_at"`
}

// Save writes doc as JSON to path, stamping SavedAt with now.
func Save(path string, doc Document, now time.Time) *CheckpointError {
	doc.SavedAt = now

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &CheckpointError{Message: err.Error(), Retryable: false, Cause: ErrCauseEncodeFailure}
	}

	if writeErr := fileutil.EnsureDir(filepath.Dir(path)); writeErr != nil {
		return &CheckpointError{Message: writeErr.Error(), Retryable: true, Cause: ErrCauseWriteFailure}
	}

	if err := os.WriteFile(path, raw, 0644); err != nil {
		return &CheckpointError{Message: err.Error(), Retryable: true, Cause: ErrCauseWriteFailure}
	}
	return nil
}

// Load reads and decodes the checkpoint document at path. Unknown fields
// in the JSON are silently ignored (encoding/json default behavior).
func Load(path string) (Document, *CheckpointError) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, &CheckpointError{Message: err.Error(), Retryable: false, Cause: ErrCauseReadFailure}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, &CheckpointError{Message: err.Error(), Retryable: false, Cause: ErrCauseDecodeFailure}
	}
	return doc, nil
}
