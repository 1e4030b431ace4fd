// Package mcp exposes the running daemon to MCP clients over stdio. Every
// tool is a thin call over the daemon's IPC socket.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/1broseidon/keyshell/internal/ipc"
)

const ServerName = "keyshell"

// DaemonClient is the subset of ipc.Client the tools use.
type DaemonClient interface {
	Status() (*ipc.StatusData, error)
	Run(text string) (*ipc.RunData, error)
	Exec(name string) (*ipc.RunData, error)
	Undo() (*ipc.RunData, error)
	Monitors() (*ipc.MonitorsData, error)
	SaveLayout(name string) (*ipc.LayoutResult, error)
	RestoreLayout(name string) (*ipc.LayoutResult, error)
	ListLayouts() (*ipc.LayoutsData, error)
	DeleteLayout(name string) error
}

var _ DaemonClient = (*ipc.Client)(nil)

// Server is the MCP server for keyshell.
type Server struct {
	mcpServer *mcpsdk.Server
	client    DaemonClient
	log       *zap.SugaredLogger
}

// NewServer creates an MCP server that forwards to client.
func NewServer(client DaemonClient, version string, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{client: client, log: log}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves one session over t.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "run_text",
		Description: "Run launcher text as if typed into the keyshell prompt. Understands calculator expressions, verbs such as 'vol 40', 'kp 3000', 'kill node', 'yt query', 'note text', custom keywords, and falls back to a file search.",
	}, s.handleRunText)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "run_command",
		Description: "Run a named keyshell command on the active window, e.g. tile_left_half, tile_center, grid_top_left, cell_0_1_2x2, next_monitor, opacity_down, always_on_top, tile_all, or 'run:<launcher text>'.",
	}, s.handleRunCommand)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "undo",
		Description: "Undo the last geometry change of the active window.",
	}, s.handleUndo)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "status",
		Description: "Report daemon version, uptime, bound hotkeys, tracked windows and event bridge counters.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List monitor work-areas in left-to-right order.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "save_layout",
		Description: "Save the geometry of all open windows under a name. Saving an existing name replaces it.",
	}, s.handleSaveLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "restore_layout",
		Description: "Move open windows back to a saved layout, matching by window class and title.",
	}, s.handleRestoreLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_layouts",
		Description: "List saved layouts with their window counts.",
	}, s.handleListLayouts)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "delete_layout",
		Description: "Delete a saved layout.",
	}, s.handleDeleteLayout)
}
