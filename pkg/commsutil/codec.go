package commsutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const codecLogPrefix = "commsutil:codec"

// EncodePayload serializes a message body for publishing.
func EncodePayload(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode payload: %w", codecLogPrefix, err)
	}
	return data, nil
}

// DecodePayload deserializes exactly one JSON value from data into v.
// Trailing data after the value is an error.
func DecodePayload(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%s - failed to decode payload: %w", codecLogPrefix, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s - trailing data after payload", codecLogPrefix)
	}
	return nil
}
