package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/smallbiznis/dormmenu/internal/ingest/domain"
	"gopkg.in/yaml.v3"
)

// ParseBatch decodes a YAML or JSON batch document. Unknown fields are rejected.
func ParseBatch(r io.Reader) (domain.Batch, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var batch domain.Batch
	if err := dec.Decode(&batch); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Batch{}, fmt.Errorf("%w: empty document", domain.ErrInvalidBatch)
		}
		return domain.Batch{}, fmt.Errorf("%w: %v", domain.ErrInvalidBatch, err)
	}
	return batch, nil
}
