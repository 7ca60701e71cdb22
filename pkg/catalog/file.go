package catalog

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-criteo/pkg/json"
)

// Format is a catalog file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension. Anything that is
// not .yaml or .yml is JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read catalog").
			WithDetail("path", path)
	}
	c, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid catalog").
			WithDetail("path", path)
	}
	return c, nil
}

// Parse decodes a catalog and checks that every entry is identifiable
func Parse(data []byte, format Format) (*Catalog, error) {
	var c Catalog
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &c)
	default:
		err = jsonpool.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to decode catalog")
	}

	for i, e := range c.Streams {
		if e == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "catalog stream %d is empty", i)
		}
		if e.TapStreamID == "" {
			e.TapStreamID = e.Stream
		}
		if e.TapStreamID == "" {
			return nil, errors.Newf(errors.ErrorTypeValidation, "catalog stream %d has no tap_stream_id", i)
		}
		if e.Stream == "" {
			e.Stream = e.TapStreamID
		}
		for _, m := range e.Metadata {
			if m.Breadcrumb == nil {
				m.Breadcrumb = []string{}
			}
		}
	}
	return &c, nil
}

// Write encodes the catalog as indented JSON
func Write(w io.Writer, c *Catalog) error {
	data, err := jsonpool.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode catalog")
	}
	data = append(data, '\n')
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}

// WriteYAML encodes the catalog as YAML
func WriteYAML(w io.Writer, c *Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode catalog")
	}
	return enc.Close()
}
