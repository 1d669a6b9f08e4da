package main

import (
	"github.com/urfave/cli/v2"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: []cli.Flag{formatFlag()},
		Action: func(c *cli.Context) error {
			r, err := newRenderer(c)
			if err != nil {
				return err
			}
			return r.Render(VersionResponse{Version: version, Commit: commit})
		},
	}
}
