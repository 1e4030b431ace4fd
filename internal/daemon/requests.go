package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/1broseidon/keyshell/internal/command"
	"github.com/1broseidon/keyshell/internal/ipc"
)

// handleRequest answers one IPC request. Requests that run a command reply
// once it completes, which for collaborator commands is after the job
// reports back.
func (d *Dispatcher) handleRequest(e RequestEvent) {
	req := e.Request
	respond := func(resp *ipc.Response) {
		resp.ID = req.ID
		select {
		case e.Reply <- resp:
		default:
			d.log.Warnw("ipc reply dropped", "command", req.Command)
		}
	}
	ok := func(data interface{}) {
		resp, err := ipc.NewOKResponse(data)
		if err != nil {
			resp = ipc.NewErrorResponse(err.Error())
		}
		respond(resp)
	}
	fail := func(err error) {
		respond(ipc.NewErrorResponse(err.Error()))
	}
	runReply := func(out Outcome) {
		if out.Err != nil {
			fail(out.Err)
			return
		}
		ok(ipc.RunData{Command: out.Command, Result: out.Result})
	}
	layoutReply := func(out Outcome) {
		if out.Err != nil {
			fail(out.Err)
			return
		}
		ok(out.Data)
	}

	switch req.Command {
	case ipc.CommandStatus:
		ok(d.Status())
	case ipc.CommandMonitors:
		data, err := d.Monitors()
		if err != nil {
			fail(err)
			return
		}
		ok(data)
	case ipc.CommandRun:
		var p ipc.TextPayload
		if err := req.DecodePayload(&p); err != nil {
			fail(err)
			return
		}
		d.handleText(p.Text, runReply)
	case ipc.CommandExec:
		var p ipc.ExecPayload
		if err := req.DecodePayload(&p); err != nil {
			fail(err)
			return
		}
		d.handleNamed(p.Name, runReply)
	case ipc.CommandUndo:
		d.Execute(command.WindowOp{Action: command.ActionUndo}, runReply)
	case ipc.CommandLayoutSave, ipc.CommandLayoutRestore:
		var p ipc.LayoutPayload
		if err := req.DecodePayload(&p); err != nil {
			fail(err)
			return
		}
		action := command.ActionSaveLayout
		if req.Command == ipc.CommandLayoutRestore {
			action = command.ActionRestoreLayout
		}
		d.Execute(command.WindowOp{Action: action, Name: p.Name}, layoutReply)
	case ipc.CommandLayoutList:
		data, err := d.ListLayouts()
		if err != nil {
			fail(err)
			return
		}
		ok(data)
	case ipc.CommandLayoutDelete:
		var p ipc.LayoutPayload
		if err := req.DecodePayload(&p); err != nil {
			fail(err)
			return
		}
		if err := d.DeleteLayout(p.Name); err != nil {
			fail(err)
			return
		}
		ok(ipc.LayoutResult{Name: p.Name})
	case ipc.CommandQuit:
		ok(nil)
		d.log.Info("quit requested over ipc")
		d.quit()
	default:
		fail(fmt.Errorf("unknown command: %s", req.Command))
	}
}

// Status reports daemon counters.
func (d *Dispatcher) Status() ipc.StatusData {
	stats := d.stats()
	data := ipc.StatusData{
		Version:        d.version,
		UptimeSeconds:  int64(time.Since(d.started).Seconds()),
		TrackedWindows: len(d.manager.States()),
		EventsHandled:  stats.Handled,
		EventsDropped:  stats.Dropped,
		EventsSlow:     stats.Slow,
		Pending:        stats.Pending,
		MaxLatencyMS:   stats.MaxLatency.Milliseconds(),
	}
	if d.bindings != nil {
		data.Bindings = len(d.bindings.Bindings())
	}
	if monitors, err := d.manager.Topology().Monitors(); err == nil {
		data.Monitors = len(monitors)
	}
	return data
}

// Monitors lists the monitors in left-to-right order.
func (d *Dispatcher) Monitors() (ipc.MonitorsData, error) {
	monitors, err := d.manager.Topology().Monitors()
	if err != nil {
		return ipc.MonitorsData{}, err
	}
	data := ipc.MonitorsData{Monitors: make([]ipc.MonitorInfo, 0, len(monitors))}
	for _, m := range monitors {
		data.Monitors = append(data.Monitors, ipc.MonitorInfo{
			ID:      m.ID,
			Name:    m.Name,
			Ordinal: m.Ordinal,
			X:       m.WorkArea.X,
			Y:       m.WorkArea.Y,
			Width:   m.WorkArea.Width,
			Height:  m.WorkArea.Height,
		})
	}
	return data, nil
}

// ListLayouts summarizes the saved layouts.
func (d *Dispatcher) ListLayouts() (ipc.LayoutsData, error) {
	if d.store == nil {
		return ipc.LayoutsData{}, errNoStore
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	summaries, err := d.store.List(ctx)
	if err != nil {
		return ipc.LayoutsData{}, err
	}
	data := ipc.LayoutsData{Layouts: make([]ipc.LayoutInfo, 0, len(summaries))}
	for _, s := range summaries {
		data.Layouts = append(data.Layouts, ipc.LayoutInfo{Name: s.Name, Windows: s.Windows, SavedAt: s.SavedAt})
	}
	return data, nil
}

// DeleteLayout removes a saved layout.
func (d *Dispatcher) DeleteLayout(name string) error {
	if d.store == nil {
		return errNoStore
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return d.store.Delete(ctx, name)
}
