package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"

	"github.com/casehub/casehub/internal/core"
)

// generateSchema builds the advertised input schema for T from its struct
// tags, trimmed to type, properties and required.
//
// Supported tags:
//   - jsonschema:"required"
//   - jsonschema:"default=N,minimum=N,maximum=N"
//   - jsonschema:"enum=a,enum=b"
//   - jsonschema_description:"..."
func generateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var full map[string]any
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, err
	}

	props, _ := full["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if req, ok := full["required"].([]any); ok && len(req) > 0 {
		out["required"] = req
	}
	return out, nil
}

// prepareArgs validates raw tool arguments against schema and returns the
// argument map with defaults applied. Every failure is invalid_argument.
func prepareArgs(schema map[string]any, raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &args); err != nil {
			return nil, core.Errorf(core.KindInvalidArgument, "arguments must be a JSON object")
		}
	}

	props, _ := schema["properties"].(map[string]any)
	required := map[string]bool{}
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, _ := props[name].(map[string]any)
		v, present := args[name]
		if present && (v == nil || v == "") {
			delete(args, name)
			present = false
		}
		if !present {
			if required[name] {
				return nil, core.Errorf(core.KindInvalidArgument, "missing required argument: %s", name)
			}
			if def, ok := prop["default"]; ok {
				args[name] = def
			}
			continue
		}
		if err := checkValue(name, prop, v); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// maxExactInteger is the largest integer a JSON number carries exactly.
const maxExactInteger = 1 << 53

func checkValue(name string, prop map[string]any, v any) error {
	switch prop["type"] {
	case "integer", "number":
		f, ok := numericValue(v)
		if !ok {
			return core.Errorf(core.KindInvalidArgument, "argument %s must be a number", name)
		}
		if prop["type"] == "integer" {
			if f != math.Trunc(f) {
				return core.Errorf(core.KindInvalidArgument, "argument %s must be an integer", name)
			}
			if math.Abs(f) > maxExactInteger {
				return core.Errorf(core.KindInvalidArgument, "argument %s is out of range", name)
			}
		}
		if min, ok := prop["minimum"].(float64); ok && f < min {
			return core.Errorf(core.KindInvalidArgument, "argument %s must be >= %s", name, formatNumber(min))
		}
		if max, ok := prop["maximum"].(float64); ok && f > max {
			return core.Errorf(core.KindInvalidArgument, "argument %s must be <= %s", name, formatNumber(max))
		}
	case "string":
		switch v.(type) {
		case string, float64, bool:
		default:
			return core.Errorf(core.KindInvalidArgument, "argument %s must be a string", name)
		}
	}

	if enum, ok := prop["enum"].([]any); ok && len(enum) > 0 {
		s := fmt.Sprint(v)
		for _, e := range enum {
			if fmt.Sprint(e) == s {
				return nil
			}
		}
		allowed := make([]string, 0, len(enum))
		for _, e := range enum {
			allowed = append(allowed, fmt.Sprint(e))
		}
		return core.Errorf(core.KindInvalidArgument, "argument %s must be one of: %s", name, strings.Join(allowed, ", "))
	}
	return nil
}

// numericValue accepts JSON numbers and numeric strings.
func numericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// decodeArgs decodes the prepared argument map into T.
func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return out, core.Errorf(core.KindInvalidArgument, "invalid arguments: %v", err)
	}
	return out, nil
}
