// Package flagx lets several independent flag sets share os.Args: each
// consumer keeps only the flags it owns and parses them with its own FlagSet.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps the arguments whose flag name is listed in owned, together
// with their values. Both "-f value" and "-f=value" forms are recognised; a
// following token that starts with "-" is never consumed as a value.
func FilterArgs(args []string, owned []string) []string {
	known := make(map[string]bool, len(owned))
	for _, f := range owned {
		known[f] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, hasValue := strings.Cut(arg, "="); hasValue && strings.HasPrefix(arg, "-") {
			if known[name] {
				out = append(out, arg)
			}
			continue
		}

		if !known[arg] {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigFilePath extracts the JSON config path given by -c or -config.
// It returns an empty string when neither is present.
func ConfigFilePath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
