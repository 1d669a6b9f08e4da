package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ayusman/mudra/internal/store"
)

// RecordingDetail is the show output: stored metadata plus frame timing.
type RecordingDetail struct {
	*store.Recording `yaml:",inline"`
	MaxGapMs         int64 `json:"maxGapMs" yaml:"maxGapMs"`
	MeanGapMs        int64 `json:"meanGapMs" yaml:"meanGapMs"`
}

func recordingsCommand() *cli.Command {
	return &cli.Command{
		Name:    "recordings",
		Aliases: []string{"rec"},
		Usage:   "Inspect stored recordings",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recordings, newest first",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{Name: "label", Usage: "Filter by label"},
					&cli.StringFlag{Name: "hand", Usage: "Filter by handedness: Left, Right"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of recordings (0 = no limit)"},
				},
				Action: listRecordingsAction,
			},
			{
				Name:      "show",
				Usage:     "Show one recording",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{formatFlag()},
				Action:    showRecordingAction,
			},
			{
				Name:      "export",
				Usage:     "Write a recording to a .json or .msgpack file",
				ArgsUsage: "<id> <file>",
				Action:    exportRecordingAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a recording",
				ArgsUsage: "<id>",
				Action:    deleteRecordingAction,
			},
		},
	}
}

// withStore opens the configured store for the duration of fn.
func withStore(c *cli.Context, fn func(*store.Store) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return cli.Exit(fmt.Sprintf("usage: mudra recordings %s %s", c.Command.Name, c.Command.ArgsUsage), exitUsage)
	}
	return nil
}

func notFound(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("recording %s not found", id), exitFailure)
	}
	return err
}

func listRecordingsAction(c *cli.Context) error {
	r, err := newRenderer(c)
	if err != nil {
		return err
	}
	if c.Int("limit") < 0 {
		return cli.Exit("--limit must be >= 0", exitUsage)
	}

	return withStore(c, func(st *store.Store) error {
		recs, err := st.Recordings().List(store.ListOptions{
			Label:      c.String("label"),
			Handedness: c.String("hand"),
			Limit:      c.Int("limit"),
		})
		if err != nil {
			return err
		}
		if recs == nil {
			recs = []*store.Recording{}
		}
		return r.Render(recs)
	})
}

func showRecordingAction(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	r, err := newRenderer(c)
	if err != nil {
		return err
	}
	id := c.Args().First()

	return withStore(c, func(st *store.Store) error {
		rec, err := st.Recordings().GetByID(id)
		if err != nil {
			return notFound(id, err)
		}

		detail := RecordingDetail{Recording: rec}
		gaps := rec.Data.Gaps()
		var sum int64
		for _, g := range gaps {
			sum += g
			detail.MaxGapMs = max(detail.MaxGapMs, g)
		}
		if len(gaps) > 0 {
			detail.MeanGapMs = sum / int64(len(gaps))
		}
		// Frames are only printed by export.
		rec.Data = nil

		if r.format == formatTable {
			if err := r.Render(rec); err != nil {
				return err
			}
			_, err := fmt.Fprintf(r.w, "\nframe gap: mean %dms, max %dms\n", detail.MeanGapMs, detail.MaxGapMs)
			return err
		}
		return r.Render(detail)
	})
}

func exportRecordingAction(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	id, path := c.Args().Get(0), c.Args().Get(1)

	return withStore(c, func(st *store.Store) error {
		rec, err := st.Recordings().GetByID(id)
		if err != nil {
			return notFound(id, err)
		}
		if err := writeRecording(path, rec.Data); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote %s (%d frames)\n", path, rec.FrameCount)
		return nil
	})
}

func deleteRecordingAction(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	id := c.Args().First()

	return withStore(c, func(st *store.Store) error {
		if err := st.Recordings().Delete(id); err != nil {
			return notFound(id, err)
		}
		fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
		return nil
	})
}
