package daemon

import (
	"github.com/1broseidon/keyshell/internal/collab"
	"github.com/1broseidon/keyshell/internal/hotkeys"
	"github.com/1broseidon/keyshell/internal/ipc"
)

// Event is a unit of work for the owner thread. Every producer, including
// the capture context, IPC connections and background jobs, hands events
// to the bridge.
type Event interface {
	ownerEvent()
}

// Outcome is the result of one command.
type Outcome struct {
	Command string
	Result  string
	Data    interface{}
	Err     error
}

// Reply receives an Outcome on the owner thread. It must not block.
type Reply func(Outcome)

// TriggerEvent is a matched hotkey from the capture context.
type TriggerEvent struct {
	Trigger hotkeys.Trigger
}

// TextEvent is launcher text, typed in the prompt or sent over IPC.
type TextEvent struct {
	Text  string
	Reply Reply
}

// NamedEvent names a command, e.g. "tile_left_half".
type NamedEvent struct {
	Name  string
	Reply Reply
}

// RequestEvent carries one IPC request. The response is sent on Reply,
// which must be buffered.
type RequestEvent struct {
	Request *ipc.Request
	Reply   chan<- *ipc.Response
}

// DisplayChangedEvent invalidates the monitor topology.
type DisplayChangedEvent struct{}

// ReconcileEvent asks the owner thread to drop state for closed windows
// and revalidate the topology.
type ReconcileEvent struct{}

// JobDoneEvent reports a background collaborator call.
type JobDoneEvent struct {
	Command string
	Result  string
	Data    interface{}
	Err     error
	Reply   Reply
}

// LauncherClosedEvent carries what the user chose in the launcher.
type LauncherClosedEvent struct {
	Result collab.LauncherResult
	Err    error
}

// QuitEvent stops the daemon. The tray and IPC QUIT post it.
type QuitEvent struct{}

func (TriggerEvent) ownerEvent()        {}
func (TextEvent) ownerEvent()           {}
func (NamedEvent) ownerEvent()          {}
func (RequestEvent) ownerEvent()        {}
func (DisplayChangedEvent) ownerEvent() {}
func (ReconcileEvent) ownerEvent()      {}
func (JobDoneEvent) ownerEvent()        {}
func (LauncherClosedEvent) ownerEvent() {}
func (QuitEvent) ownerEvent()           {}
