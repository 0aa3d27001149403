package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ember/internal/mono"
	"ember/internal/unit"
)

var monoCmd = &cobra.Command{
	Use:   "mono [dir]",
	Short: "Dump the deduplicated monomorphization request set",
	Long: `mono runs the pipeline like check, then prints one line per unique
(callee, type args, const args) instantiation request, ordered by first
syntactic occurrence.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMono,
}

func init() {
	monoCmd.Flags().Int("jobs", 0, "max concurrent translation units (0 = GOMAXPROCS)")
}

func runMono(cmd *cobra.Command, args []string) error {
	_, outputs, _, err := runPipelineOverDir(cmd, args)
	if err != nil || outputs == nil {
		return err
	}
	for _, out := range outputs {
		if out != nil {
			printRequests(cmd, out.Unit)
		}
	}
	return nil
}

// printRequests renders one unit's instantiation map, ordered by the
// earliest use-site span so the output matches first-occurrence order.
func printRequests(cmd *cobra.Command, u *unit.Unit) {
	entries := make([]*mono.InstEntry, 0, u.Mono.Len())
	for _, e := range u.Mono.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		si, sj := firstSite(entries[i]), firstSite(entries[j])
		if si != sj {
			return si < sj
		}
		if entries[i].Key.Sym != entries[j].Key.Sym {
			return entries[i].Key.Sym < entries[j].Key.Sym
		}
		return entries[i].Key.ArgsKey < entries[j].Key.ArgsKey
	})
	for _, e := range entries {
		sym := u.Symbols.Symbols.Get(e.Key.Sym)
		name := "?"
		if sym != nil {
			name = u.Strings.MustLookup(sym.Name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "mono %s types=%v consts=%v sites=%d\n",
			name, e.TypeArgs, e.ConstArgs, len(e.UseSites))
	}
}

func firstSite(e *mono.InstEntry) uint32 {
	best := ^uint32(0)
	for _, s := range e.UseSites {
		if s.Span.Start < best {
			best = s.Span.Start
		}
	}
	return best
}
