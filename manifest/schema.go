package manifest

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/jshufro/componentgen/errdefs"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/*.json
var schemaFiles embed.FS

const schemaBaseURL = "https://github.com/jshufro/componentgen/manifest/schema/"

var (
	compileSchemas sync.Once
	compiled       map[Kind]*jsonschema.Schema
	compileErr     error
)

// SchemaFile is the file name of the companion schema of kind.
func SchemaFile(kind Kind) string {
	return string(kind) + ".json"
}

// Schema returns the companion JSON schema of kind.
func Schema(kind Kind) ([]byte, error) {
	if !kind.Valid() {
		return nil, &errdefs.ManifestError{Field: "metadata.type", Reason: fmt.Sprintf("unknown component type '%s'", kind)}
	}
	return schemaFiles.ReadFile(path.Join("schema", SchemaFile(kind)))
}

func schemas() (map[Kind]*jsonschema.Schema, error) {
	compileSchemas.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		for _, kind := range Kinds {
			data, err := Schema(kind)
			if err != nil {
				compileErr = err
				return
			}
			if err := c.AddResource(schemaBaseURL+SchemaFile(kind), bytes.NewReader(data)); err != nil {
				compileErr = fmt.Errorf("schema of %s: %w", kind, err)
				return
			}
		}
		out := make(map[Kind]*jsonschema.Schema, len(Kinds))
		for _, kind := range Kinds {
			s, err := c.Compile(schemaBaseURL + SchemaFile(kind))
			if err != nil {
				compileErr = fmt.Errorf("schema of %s: %w", kind, err)
				return
			}
			out[kind] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// ValidateSchema checks the structure of a manifest document against the
// companion schema of kind. Semantic checks are left to Component.Validate.
func ValidateSchema(kind Kind, data []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	s, ok := all[kind]
	if !ok {
		return &errdefs.ManifestError{Field: "metadata.type", Reason: fmt.Sprintf("unknown component type '%s'", kind)}
	}

	doc, err := jsonDocument(data)
	if err != nil {
		return &errdefs.ManifestError{Reason: err.Error()}
	}
	err = s.Validate(doc)
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &errdefs.ManifestError{Field: fieldPath(ve.InstanceLocation), Reason: ve.Message}
}

// jsonDocument turns YAML into the value model the validator expects:
// string keyed maps and json.Number numbers.
func jsonDocument(data []byte) (interface{}, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringKeys(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		for k, e := range v {
			v[k] = stringKeys(e)
		}
		return v
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []interface{}:
		for i, e := range v {
			v[i] = stringKeys(e)
		}
		return v
	}
	return v
}

// fieldPath renders a JSON pointer the way manifest errors name fields,
// "/output/1/name" as "output[1].name".
func fieldPath(pointer string) string {
	var b strings.Builder
	for _, token := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if token == "" {
			continue
		}
		token = strings.NewReplacer("~1", "/", "~0", "~").Replace(token)
		if isIndex(token) {
			b.WriteString("[" + token + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(token)
	}
	return b.String()
}

func isIndex(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
