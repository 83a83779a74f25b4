package client

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// The backend is inconsistent about collection shapes: some endpoints return
// a bare JSON array, paginated ones wrap it as {"results": [...]}, and a few
// legacy views use {"success": true, "data": [...]}. decodeCollection maps
// all three into one canonical slice before anything enters the core.
func decodeCollection[T any](raw []byte) ([]T, error) {
	var bare []T
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}

	var envelope struct {
		Results []T `json:"results"`
		Data    []T `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if envelope.Results != nil {
		return envelope.Results, nil
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return []T{}, nil
}

// flexID tolerates numeric and string identifiers; the backend serializes
// user IDs as integers but invitation IDs as UUID strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

func (f flexID) Int64() int64 {
	n, _ := strconv.ParseInt(string(f), 10, 64)
	return n
}
