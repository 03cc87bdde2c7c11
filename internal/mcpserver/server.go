// Package mcpserver exposes the translation pipeline as MCP tools.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dgallion1/doctran/internal/config"
	"github.com/dgallion1/doctran/internal/parser"
	"github.com/dgallion1/doctran/internal/pipeline"
)

const Version = "0.1.0"

type TranslateRequest struct {
	Document      string `json:"document"`       // Document source text
	Filename      string `json:"filename"`       // Optional; its extension picks the parser
	Parse         string `json:"parse"`          // Parse variant override
	FilterWork    string `json:"filter_work"`    // filter_work variant override
	FilterProcess string `json:"filter_process"` // filter_process variant override
	Work          string `json:"work"`           // Translation backend override
}

type TranslateResponse struct {
	RunID     string          `json:"run_id"`
	Pipeline  config.Pipeline `json:"pipeline"`
	Attempted int             `json:"attempted"`
	Failed    int             `json:"failed"`
	Errors    []string        `json:"errors"`
	Output    string          `json:"output"` // Rendered document
}

// Options are the collaborators shared by every tool call.
type Options struct {
	Registry *pipeline.Registry
	Base     config.Pipeline
	Config   config.Config
	Log      *slog.Logger
}

// NewServer creates an MCP server with the translate_document and
// list_stages tools.
func NewServer(opts Options) *server.MCPServer {
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := server.NewMCPServer(
		"doctran",
		Version,
		server.WithToolCapabilities(false),
	)

	translateTool := mcp.NewTool("translate_document",
		mcp.WithDescription("Translate the prose of a text document (reStructuredText, Markdown, HTML, CSV or plain text) and return its rendered document tree"),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description("The document source"),
		),
		mcp.WithString("filename",
			mcp.Description("File name whose extension selects the parser, e.g. 'index.rst' or 'README.md'"),
		),
		mcp.WithString("parse",
			mcp.Description("Parse variant, overrides the filename"),
		),
		mcp.WithString("filter_work",
			mcp.Description("Which nodes get translated: 'default' or 'strict'"),
		),
		mcp.WithString("filter_process",
			mcp.Description("Which subtrees are walked: 'default' or 'prose'"),
		),
		mcp.WithString("work",
			mcp.Description("Translation backend, e.g. 'baidu_fanyi', 'deepl', 'claude' or 'pseudo'"),
		),
	)
	s.AddTool(translateTool, mcp.NewTypedToolHandler(translateHandler(opts)))

	stagesTool := mcp.NewTool("list_stages",
		mcp.WithDescription("List the registered variants of every pipeline stage and the default selection"),
	)
	s.AddTool(stagesTool, stagesHandler(opts))

	return s
}

// ServeStdio runs the MCP server over stdin and stdout until the input closes.
func ServeStdio(opts Options) error {
	return server.ServeStdio(NewServer(opts))
}

func translateHandler(opts Options) func(ctx context.Context, request mcp.CallToolRequest, args TranslateRequest) (*mcp.CallToolResult, error) {
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return func(ctx context.Context, request mcp.CallToolRequest, args TranslateRequest) (*mcp.CallToolResult, error) {
		if strings.TrimSpace(args.Document) == "" {
			return mcp.NewToolResultError("document is required"), nil
		}

		o := config.Pipeline{
			Parse:         args.Parse,
			FilterWork:    args.FilterWork,
			FilterProcess: args.FilterProcess,
			Work:          args.Work,
		}
		if o.Parse == "" && args.Filename != "" {
			name, err := parser.ForFile(args.Filename)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			o.Parse = name
		}
		p := opts.Base.Merge(o)

		if err := opts.Config.ValidateBackend(p.Work); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		stages, err := opts.Registry.Resolve(p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		driver := pipeline.NewDriver(stages, pipeline.DriverOptions{
			Policy:      pipeline.FailurePolicy(opts.Config.FailurePolicy),
			MaxInFlight: opts.Config.MaxInFlight,
		}, opts.Log)

		var out bytes.Buffer
		report, err := driver.Run(ctx, strings.NewReader(args.Document), &out)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("translation failed: %v", err)), nil
		}

		response := TranslateResponse{
			RunID:     report.RunID.String(),
			Pipeline:  p,
			Attempted: report.Attempted,
			Failed:    report.Failed,
			Errors:    report.Errors(),
			Output:    out.String(),
		}
		responseBytes, err := json.Marshal(response)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(responseBytes)), nil
	}
}

func stagesHandler(opts Options) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		variants := make(map[string][]string, len(pipeline.StageNames))
		for _, stage := range pipeline.StageNames {
			variants[stage] = opts.Registry.Variants(stage)
		}
		b, err := json.Marshal(map[string]any{"default": opts.Base, "variants": variants})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}
