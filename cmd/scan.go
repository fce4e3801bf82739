// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chihiros-control/chihirosctl/pkg/device"
	"github.com/chihiros-control/chihirosctl/pkg/uart"
)

var scanDuration time.Duration

var listDevicesCmd = &cobra.Command{
	Use:   "list-devices",
	Short: "Scan for nearby Chihiros devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _, err := buildTransport()
		if err != nil {
			return err
		}
		ble, ok := transport.(*uart.BLETransport)
		if !ok {
			return fmt.Errorf("list-devices requires the Bluetooth carrier (drop --port/--url)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), scanDuration)
		defer cancel()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tNAME\tMODEL\tRSSI")
		found := 0
		err = ble.Scan(ctx, func(r uart.ScanResult) {
			if !strings.HasPrefix(r.Name, "DY") && !strings.HasPrefix(r.Name, "DOSER") {
				return
			}
			found++
			cap := device.Resolve(r.Name)
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.Address, r.Name, cap.ModelName, r.RSSI)
		})
		w.Flush()
		if err != nil && ctx.Err() == nil {
			return err
		}
		if found == 0 {
			fmt.Println("No Chihiros devices found")
		}
		return nil
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List known device models and their channels",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tKIND\tPREFIXES\tCHANNELS")
		for _, c := range device.Models() {
			kind := "light"
			if c.Kind == device.KindDoser {
				kind = "doser"
			}
			channels := make([]string, len(c.Channels))
			for i, ch := range c.Channels {
				channels[i] = fmt.Sprintf("%s=%d", ch.Name, ch.ID)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				c.ModelName, kind, strings.Join(c.Prefixes, ","), strings.Join(channels, ","))
		}
		w.Flush()
	},
}

func init() {
	listDevicesCmd.Flags().DurationVar(&scanDuration, "duration", 10*time.Second, "How long to scan")
	rootCmd.AddCommand(listDevicesCmd)
	rootCmd.AddCommand(listModelsCmd)
}
