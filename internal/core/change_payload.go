package core

import (
	"encoding/json"

	"plancore/pkg/domain"
)

// decodeChangePayload unmarshals a change payload into T. It returns the zero
// value and false when the payload is undefined, empty, or not valid JSON for T.
func decodeChangePayload[T any](payload domain.ChangePayload) (T, bool) {
	var out T
	if !payload.Defined() {
		return out, false
	}
	raw := payload.Raw()
	if len(raw) == 0 {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}
