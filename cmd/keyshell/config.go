package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/keyshell/internal/config"
)

type configCommand struct {
	name  string
	usage string
	run   func(args []string) int
}

var configCommands = []configCommand{
	{"validate", "validate [--path PATH]        check every merged file", configValidate},
	{"print", "print [--path PATH] [--defaults]  show the merged config as YAML", configPrint},
	{"explain", "explain [--path PATH] <key>    show a value and the file that set it", configExplain},
	{"path", "path                           print the user config location", configPath},
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: keyshell config <subcommand>")
	fmt.Fprintln(w, "")
	for _, c := range configCommands {
		fmt.Fprintln(w, "  "+c.usage)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "--path layers an extra file over the user config.")
}

func runConfig(args []string) int {
	if len(args) == 0 || isHelp(args) {
		printConfigUsage(os.Stderr)
		return 2
	}
	for _, c := range configCommands {
		if c.name == args[0] {
			return c.run(args[1:])
		}
	}
	fmt.Fprintf(os.Stderr, "keyshell config: no subcommand %q\n\n", args[0])
	printConfigUsage(os.Stderr)
	return 2
}

// configFlags parses the flags shared by the loading subcommands. defaults
// is nil when the subcommand does not offer --defaults.
func configFlags(name string, args []string, withDefaults bool) (fs *flag.FlagSet, path *string, defaults *bool, ok bool) {
	fs = flag.NewFlagSet("config "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path = fs.String("path", "", "extra config file")
	if withDefaults {
		defaults = fs.Bool("defaults", false, "ignore every file and use built-in values")
	}
	return fs, path, defaults, fs.Parse(args) == nil
}

// loadConfig loads and reports the error itself, so callers only pick the
// exit code.
func loadConfig(path string) (*config.LoadResult, bool) {
	res, err := config.LoadWithSources(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, false
	}
	return res, true
}

func configValidate(args []string) int {
	_, path, _, ok := configFlags("validate", args, false)
	if !ok {
		return 2
	}
	res, ok := loadConfig(*path)
	if !ok {
		return 1
	}
	for _, f := range res.Files {
		fmt.Println("merged", f)
	}
	fmt.Printf("ok: %d hotkeys, %d keywords\n", len(res.Config.Hotkeys), len(res.Config.Keywords))
	return 0
}

func configPrint(args []string) int {
	_, path, defaults, ok := configFlags("print", args, true)
	if !ok {
		return 2
	}
	cfg := config.DefaultConfig()
	if !*defaults {
		res, ok := loadConfig(*path)
		if !ok {
			return 1
		}
		cfg = res.Config
	}
	data, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	os.Stdout.Write(data)
	return 0
}

func configExplain(args []string) int {
	fs, path, _, ok := configFlags("explain", args, false)
	if !ok {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "keyshell config explain: want exactly one key, e.g. launcher.backend")
		return 2
	}
	key := fs.Arg(0)

	res, ok := loadConfig(*path)
	if !ok {
		return 1
	}
	value, src, err := config.Explain(res, key)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	out, err := yaml.Marshal(map[string]any{key: value})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(string(out))
	fmt.Println("# set by", formatSource(src))
	return 0
}

func configPath(args []string) int {
	if len(args) != 0 {
		fmt.Fprintln(os.Stderr, "keyshell config path takes no arguments")
		return 2
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(path)
	return 0
}

// formatSource renders where a value came from: "file:PATH[:LINE:COL]" or
// "default[:NAME]".
func formatSource(src config.Source) string {
	var s string
	switch src.Kind {
	case config.SourceFile:
		s = "file"
		if src.File != "" {
			s += ":" + src.File
			if src.Line > 0 {
				s += fmt.Sprintf(":%d:%d", src.Line, src.Column)
			}
		}
	case config.SourceDefault:
		s = "default"
		if src.Name != "" {
			s += ":" + src.Name
		}
	default:
		s = string(src.Kind)
	}
	return s
}
