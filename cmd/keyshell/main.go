package main

import (
	"fmt"
	"io"
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "run":
		os.Exit(runRun(os.Args[2:]))
	case "exec":
		os.Exit(runExec(os.Args[2:]))
	case "undo":
		os.Exit(runUndo(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "layout":
		os.Exit(runLayout(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "quit":
		os.Exit(runQuit(os.Args[2:]))
	case "version", "--version":
		fmt.Println("keyshell", version)
		os.Exit(0)
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: keyshell <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the keyshell daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  run <text>          Run launcher text (reads stdin when piped)")
	fmt.Fprintln(w, "  exec <command>      Run a named command, e.g. tile_left_half")
	fmt.Fprintln(w, "  undo                Undo the last geometry change of the active window")
	fmt.Fprintln(w, "  monitors            List monitors")
	fmt.Fprintln(w, "  quit                Stop the daemon")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  layout save         Save open window positions")
	fmt.Fprintln(w, "  layout restore      Restore a saved layout")
	fmt.Fprintln(w, "  layout list         List saved layouts")
	fmt.Fprintln(w, "  layout delete       Delete a saved layout")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config path         Print the config file path")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "  version             Print the version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'keyshell <command> --help' for command-specific options.")
}

// isHelp reports whether args ask for help before flag parsing.
func isHelp(args []string) bool {
	return len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help")
}
