// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"

	"github.com/danielwippermann/resol-vbus.rs/vbus"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Stream and print decoded VBus frames",
	Long: `Continuously decode VBus frames as they arrive and print them one per line.

Each line shows the frame's identity string, the family (Packet, Datagram, or
Telegram), and its family-specific fields. Malformed byte spans are skipped
and resynchronized on silently, matching how the live-data buffer treats
FrameRejected internally.

Supports both serial and WebSocket connections.`,
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("vbusctl decode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	buf := vbus.NewLiveDataBuffer(channel)
	read := make([]byte, 256)

	for {
		n, err := conn.Read(read)
		if err != nil {
			if err == ErrConnectionClosed {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		buf.ExtendFromSlice(read[:n])

		for {
			data, ok := buf.ReadData()
			if !ok {
				break
			}
			fmt.Println(formatData(data))
		}
	}
}

func formatData(d vbus.Data) string {
	switch {
	case d.IsPacket():
		p := d.Packet
		return fmt.Sprintf("%s  Packet   frame_count=%d frame_data=% X",
			d.IDString(), p.FrameCount, p.FrameData)
	case d.IsDatagram():
		dg := d.Datagram
		return fmt.Sprintf("%s  Datagram param16=%d param32=%d",
			d.IDString(), dg.Param16, dg.Param32)
	case d.IsTelegram():
		tg := d.Telegram
		return fmt.Sprintf("%s  Telegram frame_data=% X", d.IDString(), tg.FrameData)
	default:
		return fmt.Sprintf("%s  (empty)", d.IDString())
	}
}
