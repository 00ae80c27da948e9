package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/duyhunghd6/fastdoc-cli/internal/cache"
	"github.com/duyhunghd6/fastdoc-cli/internal/config"
	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
	"github.com/duyhunghd6/fastdoc-cli/internal/llm"
	"github.com/duyhunghd6/fastdoc-cli/internal/logger"
	"github.com/duyhunghd6/fastdoc-cli/internal/orchestrator"
	"github.com/duyhunghd6/fastdoc-cli/internal/prompt"
	"github.com/duyhunghd6/fastdoc-cli/internal/tokenizer"
)

// mcpServer shares one backend and prompt set across tool calls.
type mcpServer struct {
	cfg     *config.Config
	log     logger.Logger
	backend llm.Completer
	prompts *prompt.Set
}

func newMCPServer(cfg *config.Config, lg logger.Logger) (*mcpServer, error) {
	backend, err := llm.New(cfg.Backend, llm.Params{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Reply:       cfg.MockReply,
	})
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}
	return newMCPServerWith(cfg, backend, lg)
}

func newMCPServerWith(cfg *config.Config, backend llm.Completer, lg logger.Logger) (*mcpServer, error) {
	prompts, err := prompt.Load(cfg.Prompts, cfg.Placeholder)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	// In-memory only; the server never flushes a snapshot.
	if cfg.Cache.Enabled && cfg.Cache.Size > 0 {
		if c, err := cache.New(backend, cfg.Backend, cfg.Model, cfg.Cache.Size, nil); err == nil {
			backend = c
		}
	}
	return &mcpServer{cfg: cfg, log: lg, backend: backend, prompts: prompts}, nil
}

// serveMCP runs the MCP HTTP server until ctx is done.
func serveMCP(ctx context.Context, s *mcpServer, port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           buildMCPMux(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("🚀 FastDoc MCP server listening on http://localhost%s", addr)
	log.Printf("   MCP endpoint: http://localhost%s/mcp/", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildMCPMux creates the HTTP handler mux with all MCP endpoints.
func buildMCPMux(s *mcpServer) *http.ServeMux {
	mux := http.NewServeMux()

	// MCP initialize
	mux.HandleFunc("/mcp/initialize", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]string{
				"name":    "fastdoc-cli",
				"version": version,
			},
			"capabilities": map[string]any{
				"tools": map[string]bool{
					"listChanged": false,
				},
			},
		}
		writeJSON(w, resp)
	})

	// MCP tools/list
	mux.HandleFunc("/mcp/tools/list", func(w http.ResponseWriter, r *http.Request) {
		tools := []map[string]any{
			{
				"name":        "list_elements",
				"description": "List the functions and classes of a Python file",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"path":    map[string]string{"type": "string", "description": "Path to the Python file"},
						"nesting": map[string]string{"type": "string", "description": "stack (default) or outermost"},
					},
					"required": []string{"path"},
				},
			},
			{
				"name":        "document_file",
				"description": "Generate missing docstrings in a Python file",
				"inputSchema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"path":      map[string]string{"type": "string", "description": "Path to the Python file"},
						"dry_run":   map[string]string{"type": "boolean", "description": "Report without writing the file"},
						"overwrite": map[string]string{"type": "boolean", "description": "Replace existing docstrings"},
						"elements":  map[string]any{"type": "array", "items": map[string]string{"type": "string"}, "description": "Only document these names"},
					},
					"required": []string{"path"},
				},
			},
		}
		writeJSON(w, map[string]any{"tools": tools})
	})

	// MCP tools/call
	mux.HandleFunc("/mcp/tools/call", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name   string         `json:"name"`
			Params map[string]any `json:"arguments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "Invalid request body", 400)
			return
		}

		switch req.Name {
		case "list_elements":
			path, _ := req.Params["path"].(string)
			if path == "" {
				writeError(w, "path is required", 400)
				return
			}
			nestingArg, _ := req.Params["nesting"].(string)
			if nestingArg == "" {
				nestingArg = string(extract.NestingStack)
			}
			nesting, err := parseNesting(nestingArg)
			if err != nil {
				writeError(w, err.Error(), 400)
				return
			}
			toks, _, err := tokenizer.TokenizeFile(path)
			if err != nil {
				writeError(w, err.Error(), 500)
				return
			}
			res := extract.Extract(toks, extract.Options{Nesting: nesting})
			writeToolResult(w, map[string]any{"path": path, "elements": res.Sorted()})

		case "document_file":
			path, _ := req.Params["path"].(string)
			if path == "" {
				writeError(w, "path is required", 400)
				return
			}
			dryRun, _ := req.Params["dry_run"].(bool)
			opts := s.documenterOptions()
			opts.DryRun = dryRun
			opts.Diff = true
			if v, ok := req.Params["overwrite"].(bool); ok {
				opts.Overwrite = v
			}
			if names, ok := req.Params["elements"].([]any); ok {
				opts.Elements = nil
				for _, n := range names {
					if name, ok := n.(string); ok && name != "" {
						opts.Elements = append(opts.Elements, name)
					}
				}
			}
			doc, err := orchestrator.NewDocumenter(s.backend, s.prompts, opts, s.log)
			if err != nil {
				writeError(w, err.Error(), 500)
				return
			}
			result, err := doc.DocumentFile(r.Context(), path)
			if err != nil {
				writeError(w, err.Error(), 500)
				return
			}
			writeToolResult(w, result)

		default:
			writeError(w, fmt.Sprintf("Unknown tool: %s", req.Name), 404)
		}
	})

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok", "version": version})
	})

	return mux
}

func (s *mcpServer) documenterOptions() orchestrator.Options {
	return orchestrator.Options{
		Elements:       s.cfg.Elements,
		Overwrite:      s.cfg.Overwrite,
		Nesting:        extract.Nesting(s.cfg.Nesting),
		Timeout:        s.cfg.Timeout,
		Retries:        s.cfg.Retries,
		ValidateSyntax: s.cfg.ValidateSyntax,
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": msg},
	})
}

func writeToolResult(w http.ResponseWriter, data any) {
	content, _ := json.Marshal(data)
	writeJSON(w, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(content)},
		},
	})
}
