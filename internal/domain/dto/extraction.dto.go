package dto

import "encoding/json"

// ExtractionPayload is the JSON object the slot extractor is instructed to answer with.
type ExtractionPayload struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Ready   bool            `json:"ready"`
}
