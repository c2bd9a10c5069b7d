package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"noticiero/internal/pipeline"
	"noticiero/internal/storage"
	"noticiero/internal/store"
)

const displayTimeLayout = "2006-01-02 15:04"

func newDraftCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Collect fresh news and write a PENDING noticiero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			n, err := orch.Draft(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, n)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Drafted %s (%s)\n", n.ID, n.Title)
			fmt.Fprintf(out, "Review with 'noticiero show %s', then publish or reject it.\n", n.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish a PENDING noticiero and render its audio",
		Long: "Publish moves the noticiero to PUBLISHED and renders the MP3 before returning.\n" +
			"If audio rendering fails the noticiero stays published; retry with 'noticiero audio render'.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			runner := orch.Runner()
			if err := runner.Start(cmd.Context()); err != nil {
				return err
			}
			n, err := orch.Publish(cmd.Context(), args[0])
			runner.Stop()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Published %s (%s)\n", n.ID, n.Title)
			if status := runner.Status(); status.Failed > 0 {
				return fmt.Errorf("audio generation failed: %s (retry with 'noticiero audio render %s')", status.LastError, n.ID)
			}
			fmt.Fprintf(out, "Audio stored at %s\n", pipeline.AudioKey(n.ID))
			return nil
		},
	}
}

func newRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a PENDING noticiero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			n, err := st.TransitionNoticiero(cmd.Context(), args[0], store.StatePending, store.StateRejected)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s (%s)\n", n.ID, n.Title)
			return nil
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var stateFlag string
	var limit int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List noticieros, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ListFilter{Limit: limit}
			if value := strings.TrimSpace(stateFlag); value != "" {
				state, ok := store.ParseState(value)
				if !ok {
					return fmt.Errorf("unknown state %q (use PENDING, PUBLISHED or REJECTED)", value)
				}
				filter.State = state
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			items, err := st.ListNoticieros(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOut {
				if items == nil {
					items = []*store.Noticiero{}
				}
				return writeJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No noticieros found")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, n := range items {
				rows = append(rows, []string{
					n.ID,
					string(n.State),
					n.PublicationDate.Local().Format(displayTimeLayout),
					n.Title,
				})
			}
			writeRows(cmd, []string{"ID", "State", "Date", "Title"}, rows, nil)
			return nil
		},
	}
	cmd.Flags().StringVar(&stateFlag, "state", "", "Filter by state")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (default 100)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <id|latest>",
		Short: "Show a noticiero and its script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			n, err := lookupNoticiero(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, n)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", n.ID)
			fmt.Fprintf(out, "Title:   %s\n", n.Title)
			fmt.Fprintf(out, "State:   %s\n", n.State)
			fmt.Fprintf(out, "Date:    %s\n", n.PublicationDate.Local().Format(displayTimeLayout))
			fmt.Fprintf(out, "Updated: %s\n", n.UpdatedAt.Local().Format(displayTimeLayout))
			if n.State == store.StatePublished {
				fmt.Fprintf(out, "Audio:   %s\n", pipeline.AudioKey(n.ID))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, n.Guion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a noticiero and any stored audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			n, err := st.GetNoticiero(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if n.State == store.StatePublished {
				orch, err := ctx.orchestrator()
				if err != nil {
					return err
				}
				if err := orch.Delete(cmd.Context(), n.ID); err != nil {
					return err
				}
			} else if _, err := st.DeleteNoticiero(cmd.Context(), n.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", n.ID)
			return nil
		},
	}
}

func newAudioCommand(ctx *commandContext) *cobra.Command {
	audioCmd := &cobra.Command{
		Use:   "audio",
		Short: "Audio maintenance for published noticieros",
	}

	audioCmd.AddCommand(&cobra.Command{
		Use:   "render <id>",
		Short: "Synthesize, transcode and upload the audio of a published noticiero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			started := time.Now()
			if err := orch.RenderAudio(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Audio stored at %s in %s\n",
				pipeline.AudioKey(args[0]), time.Since(started).Round(time.Second))
			return nil
		},
	})

	var (
		ttlSeconds int
		public     bool
	)
	urlCmd := &cobra.Command{
		Use:   "url <id>",
		Short: "Print a presigned download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			var url string
			if public {
				url, err = orch.PublicAudioURL(cmd.Context(), args[0])
			} else {
				url, err = orch.AudioURL(cmd.Context(), args[0], time.Duration(ttlSeconds)*time.Second)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	urlCmd.Flags().IntVar(&ttlSeconds, "ttl", 0, "URL lifetime in seconds (default storage.signed_url_ttl_seconds)")
	urlCmd.Flags().BoolVar(&public, "public", false, "Print the public bucket URL instead of a presigned one")
	audioCmd.AddCommand(urlCmd)

	var uploadTTL int
	uploadURLCmd := &cobra.Command{
		Use:   "upload-url <id>",
		Short: "Print a presigned PUT URL for replacing the audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			url, err := orch.AudioUploadURL(cmd.Context(), args[0], time.Duration(uploadTTL)*time.Second)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	uploadURLCmd.Flags().IntVar(&uploadTTL, "ttl", 0, "URL lifetime in seconds (default storage.signed_url_ttl_seconds)")
	audioCmd.AddCommand(uploadURLCmd)

	var output string
	downloadCmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Save the MP3 of a published noticiero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			data, err := orch.DownloadAudio(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			target := output
			if target == "" {
				target = "noticiero-" + args[0] + ".mp3"
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", len(data), target)
			return nil
		},
	}
	downloadCmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default noticiero-<id>.mp3)")
	audioCmd.AddCommand(downloadCmd)

	audioCmd.AddCommand(&cobra.Command{
		Use:   "import <id> <file.mp3>",
		Short: "Replace the stored audio with a local MP3",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			file, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer file.Close()
			location, err := orch.ImportAudio(cmd.Context(), args[0], file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Audio stored at %s\n", location)
			return nil
		},
	})

	var infoJSON bool
	infoCmd := &cobra.Command{
		Use:   "info <id>",
		Short: "Show the stored audio metadata of a published noticiero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			info, err := orch.AudioInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeAudioInfo(cmd, info, infoJSON)
		},
	}
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output as JSON")
	audioCmd.AddCommand(infoCmd)

	var (
		listLimit int
		listJSON  bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored audio objects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			objects, err := orch.AudioObjects(cmd.Context(), listLimit)
			if err != nil {
				return err
			}
			if listJSON {
				return writeJSON(cmd, objects)
			}
			if len(objects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audio stored")
				return nil
			}
			rows := make([][]string, 0, len(objects))
			for _, obj := range objects {
				rows = append(rows, []string{
					obj.Key,
					strconv.FormatInt(obj.Size, 10),
					obj.LastModified.Local().Format(displayTimeLayout),
				})
			}
			writeRows(cmd, []string{"Key", "Bytes", "Modified"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft})
			return nil
		},
	}
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum objects to list (default 1000)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	audioCmd.AddCommand(listCmd)

	return audioCmd
}

func writeAudioInfo(cmd *cobra.Command, info storage.ObjectInfo, jsonOut bool) error {
	if jsonOut {
		return writeJSON(cmd, info)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Key:      %s\n", info.Key)
	fmt.Fprintf(out, "Bytes:    %d\n", info.Size)
	fmt.Fprintf(out, "Type:     %s\n", info.ContentType)
	fmt.Fprintf(out, "Modified: %s\n", info.LastModified.Local().Format(displayTimeLayout))
	fmt.Fprintf(out, "ETag:     %s\n", info.ETag)
	return nil
}

func lookupNoticiero(ctx context.Context, st *store.Store, ref string) (*store.Noticiero, error) {
	if strings.EqualFold(strings.TrimSpace(ref), "latest") {
		return st.LatestPublished(ctx)
	}
	return st.GetNoticiero(ctx, ref)
}
