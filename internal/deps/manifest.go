// Package deps resolves the third-party packages islands import and turns
// them into import maps and bundler externals.
package deps

import (
	"fmt"
	"os"
	"regexp"

	"github.com/buger/jsonparser"

	"github.com/conneroisu/isle/internal/errors"
)

// Manifest is the "dependencies" table of a package.json.
type Manifest struct {
	Path string
	deps map[string]string
}

// LoadManifest reads the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read package manifest").WithFile(path)
	}
	return ParseManifest(data, path)
}

// ParseManifest parses manifest bytes. A manifest without a dependencies
// object is valid and declares nothing.
func ParseManifest(data []byte, path string) (*Manifest, error) {
	m := &Manifest{Path: path, deps: make(map[string]string)}

	table, dataType, _, err := jsonparser.Get(data, "dependencies")
	switch {
	case dataType == jsonparser.NotExist:
		if _, _, _, verr := jsonparser.Get(data); verr != nil {
			return nil, errors.WrapConfig(verr, errors.ErrCodeConfigInvalid, "malformed package manifest").WithFile(path)
		}
		return m, nil
	case err != nil:
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "malformed package manifest").WithFile(path)
	case dataType != jsonparser.Object:
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("dependencies must be an object, got %s", dataType)).WithFile(path)
	}

	err = jsonparser.ObjectEach(table, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		if vt != jsonparser.String {
			return nil
		}
		name, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		version, err := jsonparser.ParseString(value)
		if err != nil {
			return err
		}
		m.deps[name] = version
		return nil
	})
	if err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "malformed dependencies table").WithFile(path)
	}
	return m, nil
}

// NewManifest builds a manifest from a literal table.
func NewManifest(path string, deps map[string]string) *Manifest {
	m := &Manifest{Path: path, deps: make(map[string]string, len(deps))}
	for k, v := range deps {
		m.deps[k] = v
	}
	return m
}

// Has reports whether name is declared.
func (m *Manifest) Has(name string) bool {
	_, ok := m.deps[name]
	return ok
}

// Declared returns the raw version range of name.
func (m *Manifest) Declared(name string) (string, bool) {
	v, ok := m.deps[name]
	return v, ok
}

var rangeOperator = regexp.MustCompile(`^\s*(?:\^|~|>=|<=|>|<|=)\s*`)

// Version returns the declared version of name with any leading range
// operator removed. An undeclared name is a fatal configuration error.
func (m *Manifest) Version(name string) (string, error) {
	v, ok := m.deps[name]
	if !ok {
		return "", errors.ErrMissingDependency(name, m.Path)
	}
	return rangeOperator.ReplaceAllString(v, ""), nil
}
