package plan

import (
	"path/filepath"
	"strings"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/flexprice/revenue/internal/validator"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is the encoding of a plan definition
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension, defaulting to JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode parses and validates a plan definition
func Decode(data []byte, format Format) (*Plan, error) {
	var p Plan

	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &p)
	case FormatJSON:
		err = json.Unmarshal(data, &p)
	default:
		return nil, ierr.NewErrorf("unsupported plan format %q", string(format)).
			WithHint("Plan definitions must be JSON or YAML").
			Mark(ierr.ErrValidation)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Plan definition could not be parsed").
			WithReportableDetails(map[string]any{
				"format": format,
			}).
			Mark(ierr.ErrValidation)
	}

	if err := validator.ValidateRequest(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode renders a plan in the given format
func Encode(p *Plan, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(p)
	}
	return json.MarshalIndent(p, "", "  ")
}
