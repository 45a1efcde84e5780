// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danielwippermann/resol-vbus.rs/vbus/recording"
	"github.com/spf13/cobra"
)

var (
	replayInPath string
	replayMinTS  string
	replayMaxTS  string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay decoded frames from a recording file",
	Long: `Read LiveData records from a recording file previously produced by
"vbusctl record" and print each decoded frame, optionally restricted to a
timestamp window with --min-ts/--max-ts (RFC 3339 timestamps).`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayInPath, "in", "i", "", "Recording file to read (required)")
	replayCmd.Flags().StringVar(&replayMinTS, "min-ts", "", "Skip records before this RFC 3339 timestamp")
	replayCmd.Flags().StringVar(&replayMaxTS, "max-ts", "", "Skip records after this RFC 3339 timestamp")
	replayCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(replayInPath)
	if err != nil {
		return fmt.Errorf("failed to open recording file: %w", err)
	}
	defer f.Close()

	reader := recording.NewLiveDataRecordingReader(f)

	if replayMinTS != "" {
		t, err := time.Parse(time.RFC3339, replayMinTS)
		if err != nil {
			return fmt.Errorf("invalid --min-ts: %w", err)
		}
		reader.SetMinTimestamp(t)
	}
	if replayMaxTS != "" {
		t, err := time.Parse(time.RFC3339, replayMaxTS)
		if err != nil {
			return fmt.Errorf("invalid --max-ts: %w", err)
		}
		reader.SetMaxTimestamp(t)
	}

	var count uint64
	for {
		d, err := reader.ReadData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("replay failed after %d frames: %w", count, err)
		}
		fmt.Printf("%s  %s\n", d.Timestamp().Format(time.RFC3339Nano), formatData(d))
		count++
	}

	fmt.Printf("\n%d frames replayed\n", count)
	return nil
}
