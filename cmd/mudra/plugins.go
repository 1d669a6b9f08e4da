package main

import (
	"github.com/urfave/cli/v2"

	"github.com/ayusman/mudra/internal/plugin"
)

// PluginInfo is one row of the plugins output.
type PluginInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Events      []string `json:"events" yaml:"events"`
	Path        string   `json:"path" yaml:"path"`
}

func pluginsCommand() *cli.Command {
	return &cli.Command{
		Name:   "plugins",
		Usage:  "List plugins run when a recording is saved",
		Flags:  []cli.Flag{formatFlag()},
		Action: pluginsAction,
	}
}

func pluginsAction(c *cli.Context) error {
	r, err := newRenderer(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	mgr := plugin.NewManager(cfg.Plugins.Dir, nil)
	if err := mgr.Discover(); err != nil {
		return err
	}

	infos := []PluginInfo{}
	for _, p := range mgr.List() {
		events := p.Manifest.Events
		if len(events) == 0 {
			events = []string{"*"}
		}
		infos = append(infos, PluginInfo{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Events:      events,
			Path:        p.Path,
		})
	}
	return r.Render(infos)
}
