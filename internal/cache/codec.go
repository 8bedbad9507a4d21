package cache

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encode marshals a cache value to CBOR.
func encode(value any) ([]byte, error) {
	data, err := cbor.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}
	return data, nil
}

// decode unmarshals CBOR data into dest.
func decode(data []byte, dest any) error {
	if err := cbor.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cache value: %w", err)
	}
	return nil
}
