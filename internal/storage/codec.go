package storage

import (
	"encoding/json"
	"fmt"

	"github.com/greenlance/scanorc/internal/models"
)

// mustMarshalResult encodes a result for sealing. Results are produced
// in-process by the scanner adapter, never from untrusted input, so a
// marshal failure here indicates a programming error rather than bad
// data — panicking mirrors how the rest of the store treats internal
// invariant violations.
func mustMarshalResult(r models.Result) []byte {
	data, err := json.Marshal(r)
	if err != nil {
		panic(fmt.Sprintf("storage: marshal result: %v", err))
	}
	return data
}

func unmarshalResult(data []byte) (models.Result, error) {
	var r models.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return models.Result{}, fmt.Errorf("storage: unmarshal result: %w", err)
	}
	return r, nil
}
