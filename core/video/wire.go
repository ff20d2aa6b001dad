package video

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// Routes and multipart field names shared by the client and the service.
const (
	MetadataPath = "/video-metadata"
	ScrubPath    = "/video-scrub"
	HealthPath   = "/healthz"

	FormFile         = "file"
	FormFields       = "fieldsToScrub"
	FormLastModified = "lastModified" // Unix milliseconds
)

// Fields is an ordered name/value list carried as a JSON object. Key order
// survives the round trip so the service controls display order.
type Fields []core.MetaField

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fld := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(fld.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fld.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts any JSON object. Non-string values keep their JSON
// text ("42", "true").
func (f *Fields) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}
	var out Fields
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		val := string(raw)
		var s string
		if json.Unmarshal(raw, &s) == nil {
			val = s
		} else if val == "null" {
			val = ""
		}
		out = append(out, core.MetaField{Name: key, Value: val})
	}
	*f = out
	return nil
}

// MetadataResponse is the 200 body of MetadataPath.
type MetadataResponse struct {
	Success  bool   `json:"success"`
	Metadata Fields `json:"metadata"`
}

// ErrorResponse is the body of every 4xx/5xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
