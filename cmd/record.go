// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/danielwippermann/resol-vbus.rs/vbus"
	"github.com/danielwippermann/resol-vbus.rs/vbus/recording"
	"github.com/spf13/cobra"
)

var recordOutPath string

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record decoded VBus traffic to a recording file",
	Long: `Continuously decode VBus frames and append each one as a LiveData record
to the file given by --out, preserving the channel and the arrival timestamp.

The file can be replayed later with "vbusctl replay".

Supports both serial and WebSocket connections.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordOutPath, "out", "o", "", "Recording file to write (required)")
	recordCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	out, err := os.Create(recordOutPath)
	if err != nil {
		return fmt.Errorf("failed to create recording file: %w", err)
	}
	defer out.Close()

	writer := recording.NewLiveDataRecordingWriter(out)

	fmt.Printf("vbusctl record\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Recording to: %s\n", recordOutPath)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	buf := vbus.NewLiveDataBuffer(channel)
	read := make([]byte, 256)
	var count uint64

	for {
		n, err := conn.Read(read)
		if err != nil {
			if err == ErrConnectionClosed {
				log.Printf("Connection closed, %d records written", count)
				return writer.Flush()
			}
			log.Printf("Read error: %v", err)
			continue
		}

		buf.ExtendFromSlice(read[:n])

		for {
			d, ok := buf.ReadData()
			if !ok {
				break
			}
			if err := writer.WriteData(channel, time.Now(), vbus.Encode(d)); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
			count++
			if count%100 == 0 {
				if err := writer.Flush(); err != nil {
					return fmt.Errorf("failed to flush recording: %w", err)
				}
				fmt.Printf("\r%d records written", count)
			}
		}
	}
}
