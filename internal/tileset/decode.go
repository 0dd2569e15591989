package tileset

import (
	"github.com/ecopia-map/cesium_fetcher/internal/errs"
	"github.com/goccy/go-json"
)

// ErrorEnvelope is the body the tile service sends instead of a tileset when a request is refused.
type ErrorEnvelope struct {
	Error *ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ParseErrorEnvelope returns the service error carried by data, if any.
func ParseErrorEnvelope(data []byte) (*ErrorBody, bool) {
	var envelope ErrorEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == nil {
		return nil, false
	}
	return envelope.Error, true
}

// Decode parses a tileset document. An error envelope or a document without root is a parse error.
func Decode(data []byte, source string) (*Tileset, error) {
	op := "decode " + source
	if body, ok := ParseErrorEnvelope(data); ok {
		return nil, errs.New(errs.Parse, op, "service error %d %s: %s", body.Code, body.Status, body.Message)
	}

	var ts Tileset
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, errs.Wrapf(errs.Parse, op, err, "malformed tileset")
	}
	if ts.Root == nil {
		return nil, errs.New(errs.Parse, op, "tileset has no root")
	}
	return &ts, nil
}

// Encode writes a tileset document, indented the way the service serves them.
func Encode(ts *Tileset) ([]byte, error) {
	return json.MarshalIndent(ts, "", "  ")
}
