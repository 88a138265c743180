package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"
)

// Step is one tool call of a script.
type Step struct {
	Tool string         `yaml:"tool" json:"tool"`
	Args map[string]any `yaml:"args" json:"args"`
}

// Script is a sequence of tool calls, run in order.
type Script struct {
	// ContinueOnError keeps going after a failed step.
	ContinueOnError bool   `yaml:"continue_on_error" json:"continue_on_error"`
	Steps           []Step `yaml:"steps" json:"steps"`
}

// ErrScriptFailed is returned when at least one step reported an error.
var ErrScriptFailed = errors.New("script had failing steps")

// ParseScript decodes a YAML or JSON script. A bare list of steps is
// accepted as well as the {steps: [...]} form.
func ParseScript(name string, data []byte) (*Script, error) {
	var s Script
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			var steps []Step
			if json.Unmarshal(data, &steps) != nil {
				return nil, fmt.Errorf("decode JSON script: %w", err)
			}
			s.Steps = steps
		}
	default:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("decode YAML script: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Decode(&s.Steps); err != nil {
				return nil, fmt.Errorf("decode YAML script: %w", err)
			}
		} else if err := node.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode YAML script: %w", err)
		}
	}
	for i, st := range s.Steps {
		if strings.TrimSpace(st.Tool) == "" {
			return nil, fmt.Errorf("step %d: tool is required", i+1)
		}
	}
	return &s, nil
}

// LoadScript reads and parses a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(path, data)
}

// RunScript executes every step through the MCP server, exactly as a client
// call would run, and prints each result to out.
func (a *App) RunScript(ctx context.Context, s *Script, out io.Writer) error {
	failed := 0
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := a.server.Call(ctx, st.Tool, st.Args)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		status := "ok"
		if res.IsError {
			status = "error"
			failed++
		}
		fmt.Fprintf(out, "[%d] %s (%s)\n", i+1, st.Tool, status)
		for _, c := range res.Content {
			if tc, ok := c.(mcp.TextContent); ok {
				fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(tc.Text, "\n", "\n    "))
			}
		}
		if res.IsError && !s.ContinueOnError {
			break
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrScriptFailed, failed, len(s.Steps))
	}
	return nil
}
