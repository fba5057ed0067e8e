package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"hdi1d/internal/app"
	"hdi1d/internal/common/fsutil"
	"hdi1d/internal/generation"
	"hdi1d/internal/history"
	"hdi1d/internal/imaging"
	"hdi1d/internal/registry"
	"hdi1d/pkg/types"
)

type generateOpts struct {
	prompt     string
	variant    string
	resolution string
	width      int
	height     int
	seed       int64
	scheduler  string
	guidance   float64
	steps      int
	shift      float64
	format     string
}

func newGenerateCmd(g *globalOpts) *cobra.Command {
	o := &generateOpts{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one image without starting the server",
		Example: "  hdi1d generate --prompt \"a red cube\" --seed 42\n" +
			"  hdi1d generate --prompt \"a cat\" --variant full --resolution Custom --width 640 --height 960 --format WEBP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(g.cfg, g.log)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				_ = a.Close(ctx)
			}()
			res := a.Handler.Handle(cmd.Context(), o.request(cmd))
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Status)
			if res.Err != nil {
				return res.Err
			}
			fmt.Fprintln(out, res.SaveMessage)
			fmt.Fprintf(out, "seed: %d  variant: %s  size: %dx%d  steps: %d  duration: %s\n",
				res.Seed, res.Variant, res.Width, res.Height, res.Steps, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.prompt, "prompt", "p", "", "Prompt text")
	f.StringVar(&o.variant, "variant", "", "Variant id (default: configured default)")
	f.StringVar(&o.resolution, "resolution", "", "Preset label, its dimension part, or Custom")
	f.IntVar(&o.width, "width", 0, "Custom width (with --resolution Custom)")
	f.IntVar(&o.height, "height", 0, "Custom height (with --resolution Custom)")
	f.Int64Var(&o.seed, "seed", generation.RandomSeed, "Seed; -1 picks a random one")
	f.StringVar(&o.scheduler, "scheduler", "", "Scheduler kind")
	f.Float64Var(&o.guidance, "guidance", 0, "Guidance scale (default: variant default)")
	f.IntVar(&o.steps, "steps", 0, "Inference steps (default: variant default)")
	f.Float64Var(&o.shift, "shift", 0, "Scheduler shift (default: variant default)")
	f.StringVar(&o.format, "format", "", "PNG, JPEG or WEBP")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

// request maps flags to a generation request; unset optional flags keep the
// variant defaults.
func (o *generateOpts) request(cmd *cobra.Command) generation.Request {
	f := cmd.Flags()
	req := generation.Request{
		Variant:    o.variant,
		Prompt:     o.prompt,
		Resolution: o.resolution,
		Seed:       o.seed,
		Scheduler:  o.scheduler,
		Format:     o.format,
	}
	if f.Changed("width") {
		req.Width = &o.width
	}
	if f.Changed("height") {
		req.Height = &o.height
	}
	if f.Changed("guidance") {
		req.GuidanceScale = &o.guidance
	}
	if f.Changed("steps") {
		req.Steps = &o.steps
	}
	if f.Changed("shift") {
		req.Shift = &o.shift
	}
	return req
}

func newCleanupCmd(g *globalOpts) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete hdi1_* download copies from the temp directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			tmp, err := fsutil.ExpandHome(g.cfg.TempDir)
			if err != nil {
				return err
			}
			out, err := fsutil.ExpandHome(g.cfg.OutputDir)
			if err != nil {
				return err
			}
			store, err := imaging.NewStore(out, tmp)
			if err != nil {
				return err
			}
			var rep imaging.CleanupReport
			if olderThan > 0 {
				rep = store.CleanOlderThan(olderThan)
			} else {
				rep = store.CleanTemp()
			}
			for _, p := range rep.Deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d deleted, %d failed (%s)\n", len(rep.Deleted), len(rep.Failed), store.TempDir())
			return rep.Err()
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only delete copies older than this")
	return cmd
}

func newVariantsCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List model variants and their defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.FromConfig(g.cfg)
			if err != nil {
				return err
			}
			writeVariants(cmd.OutOrStdout(), reg)
			return nil
		},
	}
}

func writeVariants(w io.Writer, reg *registry.Registry) {
	var data [][]string
	for _, v := range reg.Variants() {
		id := v.ID
		if id == reg.DefaultID() {
			id += " *"
		}
		data = append(data, []string{
			id, v.Name, v.Path,
			strconv.Itoa(v.Steps),
			strconv.FormatFloat(v.GuidanceScale, 'f', -1, 64),
			strconv.FormatFloat(v.Shift, 'f', -1, 64),
			string(v.Scheduler),
		})
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "NAME", "PATH", "STEPS", "GUIDANCE", "SHIFT", "SCHEDULER"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func newHistoryCmd(g *globalOpts) *cobra.Command {
	var (
		limit   int
		variant string
		export  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generations from the history journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.HistoryDB == "" {
				return fmt.Errorf("history is disabled; set --history-db or history_db")
			}
			p, err := fsutil.ExpandHome(g.cfg.HistoryDB)
			if err != nil {
				return err
			}
			hs, err := history.Open(p)
			if err != nil {
				return err
			}
			defer hs.Close()
			entries, err := hs.List(cmd.Context(), variant, limit)
			if err != nil {
				return err
			}
			if export != "" {
				b, err := json.MarshalIndent(types.HistoryResponse{Entries: entries}, "", "  ")
				if err != nil {
					return err
				}
				if err := fsutil.WriteFileAtomic(export, b, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entries to %s\n", len(entries), export)
				return nil
			}
			writeHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Maximum entries")
	cmd.Flags().StringVar(&variant, "variant", "", "Only show this variant")
	cmd.Flags().StringVar(&export, "export", "", "Write entries as JSON to this file instead of printing a table")
	return cmd
}

func writeHistory(w io.Writer, entries []types.HistoryEntry) {
	var data [][]string
	for _, e := range entries {
		data = append(data, []string{
			time.Unix(e.CreatedAtUnix, 0).Format(time.DateTime),
			e.Variant,
			strconv.FormatInt(e.Seed, 10),
			fmt.Sprintf("%dx%d", e.Width, e.Height),
			strconv.Itoa(e.Steps),
			e.Format,
			truncate(e.Prompt, 40),
			e.SavedPath,
		})
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"CREATED", "VARIANT", "SEED", "SIZE", "STEPS", "FORMAT", "PROMPT", "PATH"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
