package styles

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/buger/jsonparser"
)

// Mapping maps a style module (relative to the source directory) to its
// logical to generated class names.
type Mapping map[string]map[string]string

// Lookup returns the generated name, or "" when either key is unknown.
func (m Mapping) Lookup(source, logical string) string {
	return m[source][logical]
}

var (
	// matches both "var a={...};" and "var a = {\n ... \n};"
	assignmentPattern = regexp.MustCompile(`var [\w$]+\s*=\s*(\{[\s\S]*?\});`)
	bareKeyPattern    = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][\w$]*)\s*:`)
	trailingComma     = regexp.MustCompile(`,\s*\}`)
)

// ParseMapping extracts the class-name object literal from the script half
// of a compiled style module.
func ParseMapping(script []byte) (map[string]string, error) {
	match := assignmentPattern.FindSubmatch(script)
	if match == nil {
		return nil, fmt.Errorf("no class-name assignment found")
	}

	obj := bareKeyPattern.ReplaceAll(match[1], []byte(`$1"$2":`))
	obj = trailingComma.ReplaceAll(obj, []byte("}"))
	obj = []byte(strings.ReplaceAll(string(obj), "'", `"`))

	out := make(map[string]string)
	err := jsonparser.ObjectEach(obj, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType != jsonparser.String {
			return fmt.Errorf("class %q maps to %s, not a string", key, dataType)
		}
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		v, err := jsonparser.ParseString(value)
		if err != nil {
			return err
		}
		out[k] = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("malformed class-name object: %w", err)
	}
	return out, nil
}

// LoadMapping reads the cache file written by Compiler.Compile.
func LoadMapping(cachePath string) (Mapping, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	m := make(Mapping)
	err = jsonparser.ObjectEach(data, func(source, inner []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType != jsonparser.Object {
			return nil
		}
		classes := make(map[string]string)
		if err := jsonparser.ObjectEach(inner, func(k, v []byte, vt jsonparser.ValueType, _ int) error {
			if vt == jsonparser.String {
				classes[string(k)] = string(v)
			}
			return nil
		}); err != nil {
			return err
		}
		m[string(source)] = classes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ClassName re-reads the cache file on every call and returns the generated
// class for logical in source. Missing files or keys yield "".
func ClassName(cachePath, source, logical string) string {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return ""
	}
	name, err := jsonparser.GetString(data, source, logical)
	if err != nil {
		return ""
	}
	return name
}
