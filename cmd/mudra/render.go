package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/store"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: table, json, yaml",
		Value:   formatTable,
	}
}

// renderer writes command results in the selected format.
type renderer struct {
	format string
	w      io.Writer
}

func newRenderer(c *cli.Context) (*renderer, error) {
	format := strings.ToLower(c.String("format"))
	switch format {
	case "":
		format = formatTable
	case formatTable, formatJSON, formatYAML:
	default:
		return nil, cli.Exit(fmt.Sprintf("unknown format %q (table, json, yaml)", format), exitUsage)
	}
	return &renderer{format: format, w: c.App.Writer}, nil
}

// Render writes v. Tables are supported for recordings and plugins; other
// values fall back to YAML.
func (r *renderer) Render(v any) error {
	switch r.format {
	case formatJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatTable:
		switch t := v.(type) {
		case []*store.Recording:
			return r.recordingsTable(t)
		case *store.Recording:
			return r.recordingsTable([]*store.Recording{t})
		case []PluginInfo:
			return r.pluginsTable(t)
		case VersionResponse:
			_, err := fmt.Fprintf(r.w, "mudra %s (%s)\n", t.Version, t.Commit)
			return err
		}
	}

	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func (r *renderer) recordingsTable(recs []*store.Recording) error {
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tSTARTED\tDURATION\tFRAMES\tHANDS")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.ID,
			orDash(rec.Label),
			time.UnixMilli(rec.StartTime).Format(time.DateTime),
			(time.Duration(rec.DurationMs) * time.Millisecond).String(),
			rec.FrameCount,
			orDash(strings.Join(rec.Hands, ",")),
		)
	}
	return tw.Flush()
}

func (r *renderer) pluginsTable(plugins []PluginInfo) error {
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tEVENTS\tPATH")
	for _, p := range plugins {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, orDash(p.Version), strings.Join(p.Events, ","), p.Path)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
