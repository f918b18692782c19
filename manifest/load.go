package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jshufro/componentgen/errdefs"
	"gopkg.in/yaml.v3"
)

type kindHeader struct {
	Metadata struct {
		Type Kind `yaml:"type"`
	} `yaml:"metadata"`
}

// Parse decodes a manifest document. The concrete type is chosen by
// metadata.type and the document must conform to the schema of that kind;
// unknown keys are rejected.
func Parse(data []byte) (Component, error) {
	var h kindHeader
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, &errdefs.ManifestError{Reason: err.Error()}
	}
	if h.Metadata.Type == "" {
		return nil, &errdefs.ManifestError{Field: "metadata.type", Reason: "is required"}
	}
	c, err := New(h.Metadata.Type)
	if err != nil {
		return nil, err
	}
	if err := ValidateSchema(h.Metadata.Type, data); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, &errdefs.ManifestError{Reason: err.Error()}
	}
	return c, nil
}

// Load reads and parses the manifest at path. The component is attached the
// name of its directory when the file is <label>/manifest.yaml, else its
// metadata label.
func Load(path string) (Component, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.AttachID(idFromPath(path, c.Meta().Label))
	return c, nil
}

func idFromPath(path, fallback string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == "manifest" {
		dir := filepath.Base(filepath.Dir(path))
		if dir != "." && dir != string(filepath.Separator) {
			return dir
		}
	}
	return fallback
}

// Marshal encodes a component as YAML.
func Marshal(c Component) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("error encoding manifest %s: %w", c.Meta().Label, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes a component to path.
func Save(c Component, path string) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
