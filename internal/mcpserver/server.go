// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the vocabulary store and a quiz session for LLM
// integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/study"
)

// Server wraps the MCP server with vocabulary tools.
type Server struct {
	mcp   *server.MCPServer
	store *store.Store
	quiz  *study.Queue
}

// New creates a new MCP server with all vocabulary tools registered.
func New(st *store.Store) *Server {
	s := &Server{store: st, quiz: study.New(st)}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_word",
		mcp.WithDescription("Add a vocabulary word. The notebook and chapter are "+
			"created on first use; adding the same headword to the same chapter twice fails."),
		mcp.WithString("notebook", mcp.Required(), mcp.Description("Notebook name, e.g. a book title")),
		mcp.WithString("chapter", mcp.Required(), mcp.Description("Chapter name within the notebook, e.g. day01")),
		mcp.WithString("headword", mcp.Required(), mcp.Description("The word itself")),
		mcp.WithString("phonetic", mcp.Description("Optional phonetic transcription")),
		mcp.WithString("html_content", mcp.Description("Optional HTML definition body")),
		mcp.WithString("tags", mcp.Description("Optional free-form tags")),
	), s.addWord)

	s.mcp.AddTool(mcp.NewTool("list_words",
		mcp.WithDescription("List stored words, most recent first, optionally filtered "+
			"by notebook or chapter id. A chapter filter takes precedence over a notebook filter."),
		mcp.WithString("notebook_id", mcp.Description("Optional notebook id")),
		mcp.WithString("chapter_id", mcp.Description("Optional chapter id")),
	), s.listWords)

	s.mcp.AddTool(mcp.NewTool("quiz_sample",
		mcp.WithDescription("Start a quiz session: draws up to 50 random words for the "+
			"given scope and returns the first card. Use record_mastery to mark the "+
			"current card learned and move on."),
		mcp.WithString("notebook_id", mcp.Description("Optional notebook id to scope the quiz")),
		mcp.WithString("chapter_id", mcp.Description("Optional chapter id to scope the quiz (takes precedence)")),
	), s.quizSample)

	s.mcp.AddTool(mcp.NewTool("record_mastery",
		mcp.WithDescription("Record one mastered word. With an active quiz session this "+
			"masters the current card and returns the next one; otherwise it increments "+
			"the daily counter directly (optional date, default today)."),
		mcp.WithString("date", mcp.Description("Optional YYYY-MM-DD date; bypasses the quiz session")),
	), s.recordMastery)

	s.mcp.AddTool(mcp.NewTool("study_stats",
		mcp.WithDescription("Recent daily mastery counts (14-day window) and their total."),
	), s.studyStats)

	s.mcp.AddTool(mcp.NewTool("get_backup_contract",
		mcp.WithDescription("Returns the canonical JSON backup format. Call this before "+
			"producing backup files for import."),
	), s.getBackupContract)

	// Resource: backup format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://backup-format", "Backup Format Contract",
			mcp.WithResourceDescription("Canonical JSON backup format accepted by the import tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBackupFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolFilter builds a word filter from optional string id arguments.
func toolFilter(req mcp.CallToolRequest) store.Filter {
	var f store.Filter
	if v, err := req.RequireString("notebook_id"); err == nil {
		f.NotebookID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, err := req.RequireString("chapter_id"); err == nil {
		f.ChapterID, _ = strconv.ParseInt(v, 10, 64)
	}
	return f
}

func (s *Server) addWord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	item := store.ImportItem{}
	var err error
	if item.Notebook, err = req.RequireString("notebook"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if item.Chapter, err = req.RequireString("chapter"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if item.Headword, err = req.RequireString("headword"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if v, pErr := req.RequireString("phonetic"); pErr == nil && v != "" {
		item.Phonetic = &v
	}
	if v, cErr := req.RequireString("html_content"); cErr == nil {
		item.HTMLContent = v
	}
	if v, tErr := req.RequireString("tags"); tErr == nil && v != "" {
		item.Tags = &v
	}

	id, err := s.store.AddWord(ctx, item)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added %q with id %d", item.Headword, id)), nil
}

func (s *Server) listWords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	words, err := s.store.ListWords(ctx, toolFilter(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(words, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

// quizState is the session snapshot returned by the quiz tools.
type quizState struct {
	Remaining       int              `json:"remaining"`
	ProgressPercent int              `json:"progress_percent"`
	Current         *store.QueueItem `json:"current,omitempty"`
}

func (s *Server) snapshotQuiz() quizState {
	state := quizState{
		Remaining:       s.quiz.Len(),
		ProgressPercent: s.quiz.ProgressPercent(),
	}
	if item, ok := s.quiz.Current(); ok {
		state.Current = &item
	}
	return state
}

func (s *Server) quizSample(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.quiz.Load(ctx, toolFilter(req)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.quiz.Len() == 0 {
		return mcp.NewToolResultText("no words match this scope; add words first"), nil
	}
	out, _ := json.MarshalIndent(s.snapshotQuiz(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) recordMastery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if date, err := req.RequireString("date"); err == nil && date != "" {
		if err := s.store.RecordMastery(ctx, date); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("recorded one mastery for %s", date)), nil
	}

	if s.quiz.Len() == 0 {
		if err := s.store.RecordMastery(ctx, time.Now().Format("2006-01-02")); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("recorded one mastery for today"), nil
	}

	if err := s.quiz.MasterCurrent(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.quiz.State() == study.Exhausted {
		return mcp.NewToolResultText("quiz complete: all sampled words mastered"), nil
	}
	out, _ := json.MarshalIndent(s.snapshotQuiz(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) studyStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.LoadStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBackupContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BackupFormatContract), nil
}

func (s *Server) readBackupFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://backup-format",
			MIMEType: "text/markdown",
			Text:     BackupFormatContract,
		},
	}, nil
}
