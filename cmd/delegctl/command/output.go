package command

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/screwyprof/daodelegate/web/api"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// render writes v as indented JSON, or through text in text mode
func (r *root) render(w io.Writer, v any, text func(io.Writer)) error {
	if r.cfg.Output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func chainText(c api.ChainResponse) func(io.Writer) {
	return func(w io.Writer) {
		fmt.Fprintf(w, "path:\t%s\n", strings.Join(c.Path, " -> "))
		fmt.Fprintf(w, "depth:\t%d\n", c.Depth)
		fmt.Fprintf(w, "warning:\t%s\n", c.Warning)
		if c.CycleIndex != nil {
			fmt.Fprintf(w, "cycle at:\t%d\n", *c.CycleIndex)
		}
		if c.Truncated {
			fmt.Fprintf(w, "truncated:\ttrue\n")
		}
		if c.Partial {
			fmt.Fprintf(w, "partial:\t%s\n", c.Error)
		}
	}
}

func checkText(c api.CheckResponse) func(io.Writer) {
	return func(w io.Writer) {
		fmt.Fprintf(w, "projected path:\t%s\n", strings.Join(c.Path, " -> "))
		fmt.Fprintf(w, "depth:\t%d\n", c.Depth)
		fmt.Fprintf(w, "warning:\t%s\n", c.Warning)
		fmt.Fprintf(w, "blocked:\t%t\n", c.Blocked)
		if c.Partial {
			fmt.Fprintf(w, "partial:\t%s\n", c.Error)
		}
	}
}

func powerText(p api.PowerResponse) func(io.Writer) {
	return func(w io.Writer) {
		fmt.Fprintf(w, "address:\t%s\n", p.Address)
		fmt.Fprintf(w, "balance:\t%s\n", p.Balance)
		fmt.Fprintf(w, "effective:\t%s\n", p.Effective)
		if p.Delegated {
			fmt.Fprintf(w, "delegates to:\t%s\n", p.Delegate)
		}
		for _, c := range p.Direct {
			fmt.Fprintf(w, "  direct:\t%s\t%s\n", c.Address, c.Balance)
		}
		for _, c := range p.PassThrough {
			fmt.Fprintf(w, "  via %s:\t%s\t%s (%d hops)\n", c.Via, c.Address, c.Balance, c.Hops)
		}
		switch {
		case p.Incomplete:
			fmt.Fprintf(w, "incomplete:\tmissing %s\n", strings.Join(p.Missing, ", "))
		case len(p.Missing) > 0:
			fmt.Fprintf(w, "unread:\t%s\n", strings.Join(p.Missing, ", "))
		}
	}
}

func capabilitiesText(c api.CapabilitiesResponse) func(io.Writer) {
	return func(w io.Writer) {
		caps := "none"
		if len(c.Capabilities) > 0 {
			caps = strings.Join(c.Capabilities, ", ")
		}
		fmt.Fprintf(w, "address:\t%s\n", c.Address)
		fmt.Fprintf(w, "capabilities:\t%s\n", caps)
	}
}
