package main

import (
	"fmt"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"noticiero/internal/config"
	"noticiero/internal/deps"
	"noticiero/internal/store"
)

type statusReport struct {
	DaemonRunning bool                `json:"daemonRunning"`
	DatabasePath  string              `json:"databasePath"`
	APIBind       string              `json:"apiBind"`
	Counts        map[store.State]int `json:"counts"`
	Generation    string              `json:"generation"`
	Storage       string              `json:"storage"`
	FFmpeg        deps.Status         `json:"ffmpeg"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, database and dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			counts, err := st.CountByState(cmd.Context())
			if err != nil {
				return err
			}
			report := statusReport{
				DaemonRunning: daemonRunning(cfg),
				DatabasePath:  st.Path(),
				APIBind:       cfg.Paths.APIBind,
				Counts:        counts,
				Generation:    credentialState(cfg.RequireGeneration()),
				Storage:       credentialState(cfg.RequireStorage()),
				FFmpeg:        deps.CheckFFmpeg(cfg.FFmpegBinary()),
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}

			daemon := "stopped"
			if report.DaemonRunning {
				daemon = "running on " + report.APIBind
			}
			ffmpeg := "available (" + report.FFmpeg.Command + ")"
			if !report.FFmpeg.Available {
				ffmpeg = "missing: " + report.FFmpeg.Detail
			}
			rows := [][]string{
				{"Daemon", daemon},
				{"Database", report.DatabasePath},
				{"Pending", strconv.Itoa(counts[store.StatePending])},
				{"Published", strconv.Itoa(counts[store.StatePublished])},
				{"Rejected", strconv.Itoa(counts[store.StateRejected])},
				{"Generation credentials", report.Generation},
				{"Storage credentials", report.Storage},
				{"FFmpeg", ffmpeg},
			}
			writeRows(cmd, []string{"Check", "Status"}, rows, nil)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// daemonRunning probes the daemon lock without holding it.
func daemonRunning(cfg *config.Config) bool {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

func credentialState(err error) string {
	if err != nil {
		return fmt.Sprintf("missing (%v)", err)
	}
	return "configured"
}
