package mcpserver

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cadbridge/internal/domain"
	"cadbridge/internal/layout"
)

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := optFloat(args, key); ok {
		return v
	}
	return fallback
}

// optFloat reads a number that may arrive as a JSON number or a numeric string.
func optFloat(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func floatPtr(args map[string]any, key string) *float64 {
	if v, ok := optFloat(args, key); ok {
		return &v
	}
	return nil
}

func requireFloat(args map[string]any, key string) (float64, error) {
	v, ok := optFloat(args, key)
	if !ok {
		return 0, errArg(key, "a number is required")
	}
	return v, nil
}

// getInt reads a whole number. Absent or null keys give fallback; anything
// else that is not an integer is an error.
func getInt(args map[string]any, key string, fallback int) (int, error) {
	raw, present := args[key]
	if !present || raw == nil {
		return fallback, nil
	}
	v, ok := optFloat(args, key)
	if !ok {
		return 0, errArg(key, "a whole number is required")
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, errArg(key, "a whole number is required, got %g", v)
	}
	return int(v), nil
}

func getString(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getBool(args map[string]any, key string, fallback bool) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(v) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return fallback
}

// hints reads the optional positioning fields.
func hints(args map[string]any) layout.Hints {
	return layout.Hints{
		CenterX:   floatPtr(args, "centerX"),
		CenterY:   floatPtr(args, "centerY"),
		Spacing:   floatPtr(args, "spacing"),
		RelativeX: floatPtr(args, "relativeX"),
		RelativeY: floatPtr(args, "relativeY"),
	}
}

// point reads `<prefix>X`/`<prefix>Y`, e.g. startX and startY.
func point(args map[string]any, prefix string) (domain.Point, error) {
	x, okX := optFloat(args, prefix+"X")
	y, okY := optFloat(args, prefix+"Y")
	if !okX || !okY {
		return domain.Point{}, errArg(prefix, "%sX and %sY are required", prefix, prefix)
	}
	return domain.Point{X: x, Y: y}, nil
}

func optPoint3(args map[string]any, prefix string) (*domain.Point3, error) {
	_, okX := args[prefix+"X"]
	_, okY := args[prefix+"Y"]
	_, okZ := args[prefix+"Z"]
	if !okX && !okY && !okZ {
		return nil, nil
	}
	x, okX := optFloat(args, prefix+"X")
	y, okY := optFloat(args, prefix+"Y")
	z, okZ := optFloat(args, prefix+"Z")
	if !okX || !okY || !okZ {
		return nil, errArg(prefix, "%sX, %sY and %sZ are all required", prefix, prefix, prefix)
	}
	return &domain.Point3{X: x, Y: y, Z: z}, nil
}

// requirePoint3 is optPoint3 for points that must be given.
func requirePoint3(args map[string]any, prefix string) (domain.Point3, error) {
	p, err := optPoint3(args, prefix)
	if err != nil {
		return domain.Point3{}, err
	}
	if p == nil {
		return domain.Point3{}, errArg(prefix, "%sX, %sY and %sZ are required", prefix, prefix, prefix)
	}
	return *p, nil
}

// points reads an array of {x, y} objects, or a JSON string holding one.
func points(args map[string]any, key string) ([]domain.Point, error) {
	var out []domain.Point
	if err := decodeList(args, key, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// points3 reads an array of {x, y, z} objects, or a JSON string holding one.
func points3(args map[string]any, key string) ([]domain.Point3, error) {
	var out []domain.Point3
	if err := decodeList(args, key, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// names reads a list of strings given as an array or a comma-separated string.
func names(args map[string]any, key string) []string {
	var out []string
	switch v := args[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		out = append(out, v...)
	case string:
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func decodeList(args map[string]any, key string, target any) error {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	var data []byte
	if s, isString := raw.(string); isString {
		data = []byte(s)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return errArg(key, "%v", err)
		}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errArg(key, "expected an array of coordinate objects: %v", err)
	}
	return nil
}

func mm(v float64) string { return fmt.Sprintf("%.1f", v) }
