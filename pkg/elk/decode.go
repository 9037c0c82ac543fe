package elk

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/elksvg/pkg/errors"
)

// InputFormat identifies the serialization of a layout document.
type InputFormat string

// Supported input formats.
const (
	InputJSON InputFormat = "json"
	InputYAML InputFormat = "yaml"
)

// FormatFromPath infers the input format from a file extension.
// Anything that is not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) InputFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return InputYAML
	default:
		return InputJSON
	}
}

// FormatFromContentType infers the input format from an HTTP Content-Type.
func FormatFromContentType(ct string) InputFormat {
	ct = strings.ToLower(ct)
	if strings.Contains(ct, "yaml") {
		return InputYAML
	}
	return InputJSON
}

// ParseDocument decodes a layout document from data.
func ParseDocument(data []byte, format InputFormat) (*Document, error) {
	var doc Document
	switch format {
	case InputYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode yaml document")
		}
	case InputJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode json document")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown input format %q", format)
	}
	return &doc, nil
}

// ReadDocument decodes a layout document from r.
func ReadDocument(r io.Reader, format InputFormat) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read document")
	}
	return ParseDocument(data, format)
}

// ReadDocumentFile decodes the layout document stored at path, choosing the
// decoder from the file extension.
func ReadDocumentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return ParseDocument(data, FormatFromPath(path))
}
