// Package flagx helps several independent flag sets share one command line.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns the subset of args that belongs to the given flag names,
// together with their values, so a flag.FlagSet that only knows those names
// can parse the result without failing on foreign flags.
//
// Names are given without dashes; both "-name" and "--name" are accepted, as
// are the "-name value" and "-name=value" forms. A following argument that
// starts with "-" is never consumed as a value.
func FilterArgs(args []string, names []string) []string {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[strings.TrimLeft(n, "-")] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if _, ok := allowed[name]; !ok {
			continue
		}

		filtered = append(filtered, arg)
		if hasValue {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// JsonConfigFlags extracts the config file path given via -c or -config.
// It returns an empty string when neither flag is present.
func JsonConfigFlags(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"c", "config"}))

	return config
}
