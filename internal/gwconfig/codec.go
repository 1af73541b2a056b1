package gwconfig

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding accepted by Decode.
type Format string

const (
	FormatJSON Format = "json" // comments and trailing commas allowed
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForContentType maps a request Content-Type to a Format. An empty
// Content-Type means JSON.
func FormatForContentType(ct string) (Format, bool) {
	if strings.TrimSpace(ct) == "" {
		return FormatJSON, true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", false
	}
	switch mt {
	case "application/json", "application/jsonc", "text/json":
		return FormatJSON, true
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML, true
	case "application/toml", "text/toml":
		return FormatTOML, true
	default:
		return "", false
	}
}

// FormatForPath picks a Format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

var errNotObject = errors.New("document must be an object")

// Decode parses data into a generic document. Parse failures are returned
// as *SyntaxError.
func Decode(data []byte, f Format) (map[string]any, error) {
	var raw any
	switch f {
	case FormatJSON, "":
		f = FormatJSON
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, &SyntaxError{Format: f, Err: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &SyntaxError{Format: f, Err: err}
		}
	case FormatTOML:
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, &SyntaxError{Format: f, Err: err}
		}
		raw = m
	default:
		return nil, &SyntaxError{Format: f, Err: errors.New("unsupported format")}
	}
	doc, ok := stringKeys(raw).(map[string]any)
	if !ok || doc == nil {
		return nil, &SyntaxError{Format: f, Err: errNotObject}
	}
	return doc, nil
}

// Parse decodes and validates data.
func Parse(data []byte, f Format, opts Options) (Config, error) {
	doc, err := Decode(data, f)
	if err != nil {
		return Config{}, err
	}
	return Validate(doc, opts)
}

// Encode renders cfg as the indented camelCase JSON the gateway reads.
func Encode(cfg Config) ([]byte, error) {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
