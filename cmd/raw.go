// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chihiros-control/chihirosctl/pkg/chihiros"
)

var rawCmd = &cobra.Command{
	Use:   "raw <address> <cmd-id> <mode> [param...]",
	Short: "Send a raw command frame",
	Long: `Send an arbitrary command frame for protocol exploration. The command
id, mode and parameters are integers 0-255; the message id and checksum
are filled in automatically.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		address, err := deviceAddress(args)
		if err != nil {
			return err
		}
		manager, _, err := newManager()
		if err != nil {
			return err
		}
		defer manager.CloseAll()

		cmdID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid command id %q", args[1])
		}
		mode, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid mode %q", args[2])
		}
		params := make([]int, 0, len(args)-3)
		for _, a := range args[3:] {
			v, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("invalid parameter %q", a)
			}
			params = append(params, v)
		}

		ctx, cancel := commandContext()
		defer cancel()

		s := manager.Session(address)
		frame, err := chihiros.NewRawCommand(s.NextMessageID(), cmdID, mode, params)
		if err != nil {
			return err
		}
		if err := s.Send(ctx, frame); err != nil {
			return err
		}
		fmt.Printf("Sent %s\n", frame)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rawCmd)
}
