package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/1broseidon/keyshell/internal/ipc"
)

// parseNoArgs parses a subcommand that takes only flags.
func parseNoArgs(name, usage, help string, args []string) (int, bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, help)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: keyshell status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	status, err := ipc.NewClient().Status()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(status)
	}
	fmt.Printf("version:         %s\n", status.Version)
	fmt.Printf("uptime:          %s\n", time.Duration(status.UptimeSeconds)*time.Second)
	fmt.Printf("bindings:        %d\n", status.Bindings)
	fmt.Printf("tracked_windows: %d\n", status.TrackedWindows)
	fmt.Printf("monitors:        %d\n", status.Monitors)
	fmt.Printf("events_handled:  %d\n", status.EventsHandled)
	fmt.Printf("events_dropped:  %d\n", status.EventsDropped)
	fmt.Printf("events_slow:     %d\n", status.EventsSlow)
	fmt.Printf("max_latency_ms:  %d\n", status.MaxLatencyMS)
	return 0
}

func runRun(args []string) int {
	if isHelp(args) {
		fmt.Fprintln(os.Stdout, "Usage: keyshell run <text...>")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Run launcher text, e.g. 'keyshell run vol 40'. With no arguments the")
		fmt.Fprintln(os.Stdout, "text is read from stdin when it is not a terminal.")
		return 0
	}
	text, err := launcherText(args, os.Stdin, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	data, err := ipc.NewClient().Run(text)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printRunData(data)
	return 0
}

// launcherText joins args, or reads the first line of stdin when there are
// no args and stdin is piped.
func launcherText(args []string, stdin io.Reader, interactive bool) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if interactive {
		return "", fmt.Errorf("run requires text")
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("run requires text")
	}
	return line, nil
}

func runExec(args []string) int {
	if isHelp(args) || len(args) != 1 {
		w := os.Stdout
		code := 0
		if !isHelp(args) {
			w, code = os.Stderr, 2
		}
		fmt.Fprintln(w, "Usage: keyshell exec <command>")
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Run a named command as a hotkey would, e.g. tile_left_half,")
		fmt.Fprintln(w, "grid_top_right, cell_0_1_2x3, next_monitor, opacity_down, tile_all.")
		return code
	}
	data, err := ipc.NewClient().Exec(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printRunData(data)
	return 0
}

func runUndo(args []string) int {
	if code, ok := parseNoArgs("undo", "keyshell undo", "Undo the last geometry change of the active window.", args); !ok {
		return code
	}
	data, err := ipc.NewClient().Undo()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printRunData(data)
	return 0
}

func runQuit(args []string) int {
	if code, ok := parseNoArgs("quit", "keyshell quit", "Stop the running daemon.", args); !ok {
		return code
	}
	if err := ipc.NewClient().Quit(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMonitors(args []string) int {
	fs := flag.NewFlagSet("monitors", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	data, err := ipc.NewClient().Monitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(data)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDINAL\tNAME\tWORK AREA")
	for _, m := range data.Monitors {
		fmt.Fprintf(tw, "%d\t%s\t%dx%d+%d+%d\n", m.Ordinal, m.Name, m.Width, m.Height, m.X, m.Y)
	}
	tw.Flush()
	return 0
}

func printLayoutUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  keyshell layout save <name>")
	fmt.Fprintln(w, "  keyshell layout restore <name>")
	fmt.Fprintln(w, "  keyshell layout list [--json]")
	fmt.Fprintln(w, "  keyshell layout delete <name>")
}

func runLayout(args []string) int {
	if len(args) == 0 {
		printLayoutUsage(os.Stderr)
		return 2
	}
	client := ipc.NewClient()

	switch args[0] {
	case "save", "restore", "delete":
		if len(args) != 2 {
			fmt.Fprintf(os.Stderr, "layout %s requires <name>\n\n", args[0])
			printLayoutUsage(os.Stderr)
			return 2
		}
		name := args[1]
		var (
			res *ipc.LayoutResult
			err error
		)
		switch args[0] {
		case "save":
			res, err = client.SaveLayout(name)
		case "restore":
			res, err = client.RestoreLayout(name)
		default:
			err = client.DeleteLayout(name)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if res != nil {
			fmt.Printf("%s: %d windows\n", res.Name, res.Windows)
		}
		return 0

	case "list":
		fs := flag.NewFlagSet("layout list", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		asJSON := fs.Bool("json", false, "Print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		data, err := client.ListLayouts()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *asJSON {
			return printJSON(data)
		}
		if len(data.Layouts) == 0 {
			fmt.Println("no saved layouts")
			return 0
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tWINDOWS\tSAVED")
		for _, l := range data.Layouts {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", l.Name, l.Windows, l.SavedAt.Local().Format("2006-01-02 15:04"))
		}
		tw.Flush()
		return 0

	case "help", "-h", "--help":
		printLayoutUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown layout command: %s\n\n", args[0])
		printLayoutUsage(os.Stderr)
		return 2
	}
}

func printRunData(data *ipc.RunData) {
	if data == nil {
		return
	}
	if data.Result != "" {
		fmt.Printf("%s: %s\n", data.Command, data.Result)
		return
	}
	fmt.Println(data.Command)
}

func printJSON(v interface{}) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
