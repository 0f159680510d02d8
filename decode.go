package strata

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Scan decodes the effective configuration into a struct pointer, using the
// same `conf` tags DescribeStruct reads. String durations are re-parsed into
// time.Duration fields.
func (e *Effective) Scan(target any) error {
	return e.ScanSection("", target)
}

// ScanSection decodes the fields nested under basePath into the target
// struct pointer. An empty basePath scans the whole configuration.
func (e *Effective) ScanSection(basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("scan target must be a non-nil pointer, got %T", target)
	}

	tree := make(map[string]any)
	for name, entry := range e.entries {
		setTreeValue(tree, name, entry.Value.Interface())
	}

	section := any(tree)
	if basePath != "" {
		section = navigateTree(tree, basePath)
	}
	sectionMap, ok := section.(map[string]any)
	if !ok {
		if section == nil {
			sectionMap = make(map[string]any)
		} else {
			return fmt.Errorf("path %q refers to a non-section value (type %T)", basePath, section)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "conf",
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("decode failed for path %q: %w", basePath, err)
	}
	return nil
}

// navigateTree walks a nested map along a dot-separated path, returning nil
// when the path does not exist.
func navigateTree(tree map[string]any, path string) any {
	current := any(tree)
	for _, segment := range strings.Split(path, ".") {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		next, exists := currentMap[segment]
		if !exists {
			return nil
		}
		current = next
	}
	return current
}
