package tridens

import (
	"bytes"
	"encoding/json"
)

// The Monetization API is inconsistent about scalar encodings: ids and
// epoch timestamps show up both as JSON strings and as numbers, and
// quantities occasionally arrive quoted. These wrappers accept either
// form so a provider-side serialization change does not break parsing.

type apiID string

func (id *apiID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = apiID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = apiID(n.String())
	return nil
}

type apiFloat float64

func (f *apiFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = apiFloat(v)
	return nil
}
