package asset

import (
	"encoding/json"
	"fmt"
	"io"
)

// Material is the textual .mat record: a shader reference plus an
// optional diffuse texture source.
type Material struct {
	Shader  string
	Texture string
}

// Encode writes the record. The output is the exact layout the runtime's
// material loader expects; it happens to be valid JSON.
func (m *Material) Encode(out io.Writer) error {
	if _, err := fmt.Fprintf(out, `{ "shader" : %q `, m.Shader); err != nil {
		return err
	}
	if m.Texture != "" {
		if _, err := fmt.Fprintf(out, `, "texture" : { "source" : %q }`, m.Texture); err != nil {
			return err
		}
	}
	_, err := io.WriteString(out, "}")
	return err
}

// ParseMaterial parses a .mat record.
func ParseMaterial(data []byte) (*Material, error) {
	var raw struct {
		Shader  string `json:"shader"`
		Texture *struct {
			Source string `json:"source"`
		} `json:"texture"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing material: %w", err)
	}
	m := &Material{Shader: raw.Shader}
	if raw.Texture != nil {
		m.Texture = raw.Texture.Source
	}
	return m, nil
}
