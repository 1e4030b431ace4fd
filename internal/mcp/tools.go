package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/keyshell/internal/ipc"
)

func commandOutput(data *ipc.RunData) CommandOutput {
	if data == nil {
		return CommandOutput{}
	}
	return CommandOutput{Command: data.Command, Result: data.Result}
}

func (s *Server) handleRunText(_ context.Context, _ *mcpsdk.CallToolRequest, args RunTextInput) (*mcpsdk.CallToolResult, CommandOutput, error) {
	text := strings.TrimSpace(args.Text)
	if text == "" {
		return nil, CommandOutput{}, fmt.Errorf("run_text: text is required")
	}
	data, err := s.client.Run(text)
	if err != nil {
		return nil, CommandOutput{}, fmt.Errorf("run_text: %w", err)
	}
	s.log.Debugw("mcp run_text", "text", text, "command", data.Command)
	return nil, commandOutput(data), nil
}

func (s *Server) handleRunCommand(_ context.Context, _ *mcpsdk.CallToolRequest, args RunCommandInput) (*mcpsdk.CallToolResult, CommandOutput, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return nil, CommandOutput{}, fmt.Errorf("run_command: name is required")
	}
	data, err := s.client.Exec(name)
	if err != nil {
		return nil, CommandOutput{}, fmt.Errorf("run_command %s: %w", name, err)
	}
	s.log.Debugw("mcp run_command", "name", name)
	return nil, commandOutput(data), nil
}

func (s *Server) handleUndo(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, CommandOutput, error) {
	data, err := s.client.Undo()
	if err != nil {
		return nil, CommandOutput{}, fmt.Errorf("undo: %w", err)
	}
	return nil, commandOutput(data), nil
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.client.Status()
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("status: %w", err)
	}
	return nil, StatusOutput{
		Version:        st.Version,
		UptimeSeconds:  st.UptimeSeconds,
		Bindings:       st.Bindings,
		TrackedWindows: st.TrackedWindows,
		Monitors:       st.Monitors,
		EventsDropped:  st.EventsDropped,
		Pending:        st.Pending,
	}, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	data, err := s.client.Monitors()
	if err != nil {
		return nil, ListMonitorsOutput{}, fmt.Errorf("list_monitors: %w", err)
	}
	out := ListMonitorsOutput{Monitors: make([]MonitorInfo, 0, len(data.Monitors))}
	for _, m := range data.Monitors {
		out.Monitors = append(out.Monitors, MonitorInfo(m))
	}
	return nil, out, nil
}

func (s *Server) handleSaveLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args LayoutInput) (*mcpsdk.CallToolResult, LayoutOutput, error) {
	res, err := s.client.SaveLayout(args.Name)
	if err != nil {
		return nil, LayoutOutput{}, fmt.Errorf("save_layout: %w", err)
	}
	return nil, LayoutOutput(*res), nil
}

func (s *Server) handleRestoreLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args LayoutInput) (*mcpsdk.CallToolResult, LayoutOutput, error) {
	res, err := s.client.RestoreLayout(args.Name)
	if err != nil {
		return nil, LayoutOutput{}, fmt.Errorf("restore_layout: %w", err)
	}
	return nil, LayoutOutput(*res), nil
}

func (s *Server) handleListLayouts(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ListLayoutsOutput, error) {
	data, err := s.client.ListLayouts()
	if err != nil {
		return nil, ListLayoutsOutput{}, fmt.Errorf("list_layouts: %w", err)
	}
	out := ListLayoutsOutput{Layouts: make([]LayoutInfo, 0, len(data.Layouts))}
	for _, l := range data.Layouts {
		out.Layouts = append(out.Layouts, LayoutInfo(l))
	}
	return nil, out, nil
}

func (s *Server) handleDeleteLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args LayoutInput) (*mcpsdk.CallToolResult, LayoutOutput, error) {
	if err := s.client.DeleteLayout(args.Name); err != nil {
		return nil, LayoutOutput{}, fmt.Errorf("delete_layout: %w", err)
	}
	return nil, LayoutOutput{Name: args.Name}, nil
}
