// Package mcp exposes the ingestion pipeline as a Model Context Protocol
// server over stdio, so agent clients can parse training logs and query the
// heuristic facts extractor as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pistalab/trainlog/internal/facts"
	"github.com/pistalab/trainlog/internal/parser"
	"github.com/pistalab/trainlog/internal/store"
)

// ServerConfig holds the dependencies for the MCP server. Store may be nil,
// in which case the save option and the session tools are unavailable.
type ServerConfig struct {
	Parser    *parser.Parser
	Extractor *facts.Extractor
	Store     *store.Store
	Version   string
}

// dbMu serializes tool calls that touch the database. The mcp-go library
// dispatches handlers concurrently, and SQLite supports one writer at a time.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all tools registered.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Trainlog",
		ver,
		server.WithToolCapabilities(false),
	)

	registerParseTool(s, cfg)
	registerFactsTool(s, cfg)
	if cfg.Store != nil {
		registerSessionsTool(s, cfg.Store)
	}
	return s
}

func registerParseTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("parse_training_log",
		mcp.WithDescription("Parse a free-text training log (Italian or English, possibly multi-day) into structured sessions with groups and sets, plus detected personal bests and injuries."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The raw training log text"),
		),
		mcp.WithString("reference_date",
			mcp.Description("Reference date YYYY-MM-DD for resolving weekday mentions (default: today)"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Persist the parsed sessions to the database (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return mcp.NewToolResultError("text is required"), nil
		}

		ref := time.Now()
		if d, err := req.RequireString("reference_date"); err == nil && d != "" {
			parsed, err := time.Parse("2006-01-02", d)
			if err != nil {
				return mcp.NewToolResultError("reference_date must be YYYY-MM-DD"), nil
			}
			ref = parsed
		}

		result, err := cfg.Parser.Parse(ctx, text, ref)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
		}

		save := false
		if v, err := req.RequireBool("save"); err == nil {
			save = v
		}

		out := map[string]any{"result": result}
		if save && cfg.Store != nil {
			// Sessions with outstanding validation errors are never persisted.
			clean := result.CleanSessions()
			if skipped := len(result.Sessions) - len(clean); skipped > 0 {
				out["skipped_sessions"] = skipped
			}
			dbMu.Lock()
			importID, err := cfg.Store.RecordImport(ctx, store.ImportRecord{
				Source:           "mcp",
				SessionsInserted: len(clean),
				PersonalBests:    len(result.PersonalBests),
				Injuries:         len(result.Injuries),
			})
			if err == nil {
				var ids []int64
				ids, err = cfg.Store.SaveSessions(ctx, clean, importID)
				out["saved_ids"] = ids
				out["import_id"] = importID
			}
			dbMu.Unlock()
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("saving sessions: %v", err)), nil
			}
		}

		return jsonResult(out)
	})
}

func registerFactsTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("extract_training_facts",
		mcp.WithDescription("Run the heuristic personal-best and injury detector over raw training text, without calling the extraction model."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The raw training log text"),
		),
	)

	s.AddTool(tool, func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return mcp.NewToolResultError("text is required"), nil
		}
		return jsonResult(cfg.Extractor.Extract(text))
	})
}

func registerSessionsTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("list_training_sessions",
		mcp.WithDescription("List stored training sessions, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of sessions to return (default: 20)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		limit := 20
		if l, err := req.RequireFloat("limit"); err == nil && l > 0 {
			limit = int(l)
			if limit > 100 {
				limit = 100
			}
		}
		list, err := st.ListSessions(ctx, limit, 0)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing sessions: %v", err)), nil
		}
		return jsonResult(list)
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
