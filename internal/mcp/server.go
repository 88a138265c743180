package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cadbridge/internal/dialog"
	"cadbridge/internal/host"
	"cadbridge/internal/service"
	"cadbridge/internal/storage"
)

// Journal receives one entry per tool invocation.
type Journal interface {
	Append(ctx context.Context, e *storage.Entry) error
}

// History is the read side of the journal.
type History interface {
	Recent(ctx context.Context, limit int) ([]storage.Entry, error)
}

// Server is the MCP tool surface of the bridge. Every tool call passes
// through the call gate, so the host sees one call at a time, and is written
// to the journal when one is configured.
type Server struct {
	mcp      *server.MCPServer
	sketches *service.SketchService
	modeling *service.ModelingService
	inspect  *service.InspectService
	host     host.Host
	guard    *dialog.Supervisor
	gate     *service.CallGate
	journal  Journal
	history  History
	logger   *slog.Logger

	handlers map[string]server.ToolHandlerFunc
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Name     string
	Version  string
	Host     host.Host
	Sketches *service.SketchService
	Modeling *service.ModelingService
	Inspect  *service.InspectService // defaults to one over Host
	Guard    *dialog.Supervisor
	Gate     *service.CallGate
	Journal  Journal // optional
	History  History // optional
	Logger   *slog.Logger
}

// New creates and configures a new MCP server with all tools, resources and prompts.
func New(deps Deps) *Server {
	if deps.Name == "" {
		deps.Name = "cadbridge"
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	if deps.Gate == nil {
		deps.Gate = service.NewCallGate()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Inspect == nil {
		deps.Inspect = service.NewInspectService(deps.Host, logger)
	}
	s := &Server{
		sketches: deps.Sketches,
		modeling: deps.Modeling,
		inspect:  deps.Inspect,
		host:     deps.Host,
		guard:    deps.Guard,
		gate:     deps.Gate,
		journal:  deps.Journal,
		history:  deps.History,
		logger:   logger.With("component", "mcp"),
		handlers: make(map[string]server.ToolHandlerFunc),
	}

	s.mcp = server.NewMCPServer(
		deps.Name,
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	s.registerSketchTools()
	s.registerEntityTools()
	s.registerModelingTools()
	s.registerFeatureTools()
	s.registerQueryTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

const instructions = `Tools for driving a SOLIDWORKS part through sketches and features.
Lengths are millimeters and angles are degrees.
Shapes can be positioned without tracking coordinates: pass spacing to place a shape to the
right of the previous one, or relativeX/relativeY to offset from its center.
centerX and centerY together always win. Use solidworks_get_last_shape_info to inspect the
previous shape. Opening a sketch or starting a new part clears the previous shape.
Faces and edges are picked by a point on them; solidworks_get_faces, solidworks_get_edges and
solidworks_get_face_edges report such points for the current body.`

// MCPServer exposes the underlying server for transports.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ServeStdio serves on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

// ServeHTTP serves the streamable HTTP transport on addr until ctx ends.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := server.NewStreamableHTTPServer(s.mcp)
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving MCP over HTTP", "addr", addr)
		errc <- httpSrv.Start(addr)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// Call invokes a registered tool by name, through the same gate and journal
// as a client call.
func (s *Server) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	h, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return h(ctx, req)
}

// Tools lists the registered tool names.
func (s *Server) Tools() []string {
	names := make([]string, 0, len(s.handlers))
	for n := range s.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Emit forwards service events to connected clients as notifications.
func (s *Server) Emit(_ context.Context, event string, data any) {
	s.mcp.SendNotificationToAllClients("notifications/cadbridge/"+strings.ReplaceAll(event, ":", "/"), map[string]any{
		"event": event,
		"data":  data,
	})
}

// ── Tool plumbing ──────────────────────────────────────────

type toolFunc func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// addTool registers fn behind the call gate and the journal. Errors from fn
// become tool error results carrying the message verbatim.
func (s *Server) addTool(tool mcp.Tool, fn toolFunc) {
	h := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.Params.Name
		if name == "" {
			name = tool.Name
		}
		args := req.GetArguments()

		release, err := s.gate.Enter(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", name, err)), nil
		}
		defer release()

		started := time.Now()
		res, err := fn(ctx, args)
		if err != nil {
			s.logger.Warn("tool failed", "tool", name, "error", err, "elapsed", time.Since(started))
			res = mcp.NewToolResultError(err.Error())
		} else {
			s.logger.Debug("tool done", "tool", name, "elapsed", time.Since(started))
		}
		s.record(ctx, name, args, res, err, started)
		return res, nil
	}
	s.handlers[tool.Name] = h
	s.mcp.AddTool(tool, h)
}

// record appends a journal entry. Journal failures are logged, never returned.
func (s *Server) record(ctx context.Context, tool string, args map[string]any, res *mcp.CallToolResult, callErr error, started time.Time) {
	if s.journal == nil {
		return
	}
	argsJSON, _ := json.Marshal(args)
	e := &storage.Entry{
		SessionID:  s.sketches.Session().ID(),
		Tool:       tool,
		ArgsJSON:   string(argsJSON),
		Result:     resultText(res),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if callErr != nil {
		e.Error = callErr.Error()
		e.Result = ""
	}
	if err := s.journal.Append(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("journal write failed", "tool", tool, "error", err)
	}
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// summaryResult is a one-line confirmation followed by the JSON payload.
func summaryResult(summary string, v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: summary},
			mcp.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func resultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// errArg builds the error for a missing or malformed argument.
func errArg(name, format string, args ...any) error {
	return errors.New(name + ": " + fmt.Sprintf(format, args...))
}
