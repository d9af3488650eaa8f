package Iservices

import (
	"context"
	"encoding/json"
	"fmt"

	"barrio-connector/internal/domain/entities"
)

type ExtractionRequest struct {
	Instructions string
	History      []entities.Message
	CurrentData  json.RawMessage
	Utterance    string
}

type ExtractionResult struct {
	Message string
	Data    json.RawMessage
	Ready   bool
	// Raw is the unparsed model output.
	Raw string
}

// ISlotExtractor fills conversation slots from a free-form utterance.
// Implementations return *MalformedOutputError when the answer does not have
// the {message, data, ready} shape; any other error means the extractor was unreachable.
type ISlotExtractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (ExtractionResult, error)
}

type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed extractor output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}
