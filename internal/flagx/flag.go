// Package flagx lets several components parse their own flags out of one
// shared command line, e.g. the server config and the admin subcommands.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns the arguments belonging to the listed flags, in order.
//
// Flags in valued take a value, either joined ("-d=dsn") or as the next
// argument ("-d dsn"). Flags in boolean never consume the next argument, so
// "-dev migrate -a :1" keeps "-a :1" reachable. "-name" and "--name" are
// the same flag. Everything else is dropped.
func FilterArgs(args []string, valued []string, boolean ...string) []string {
	kinds := make(map[string]bool, len(valued)+len(boolean))
	for _, f := range valued {
		kinds[normalize(f)] = true
	}
	for _, f := range boolean {
		kinds[normalize(f)] = false
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
			continue
		}

		name, _, joined := strings.Cut(arg, "=")
		takesValue, known := kinds[normalize(name)]
		if !known {
			continue
		}

		filtered = append(filtered, arg)
		if joined || !takesValue {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

func normalize(name string) string {
	return "-" + strings.TrimLeft(name, "-")
}

// ConfigPath returns the JSON config file named by -c or -config in args,
// or "" when neither is present. The last occurrence wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
