// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chihiros-control/chihirosctl/pkg/chihiros"
	"github.com/chihiros-control/chihirosctl/pkg/device"
	"github.com/chihiros-control/chihirosctl/pkg/uart"
)

var (
	scheduleWeekdays []string
	scheduleRampUp   int
)

func parseScheduleWindow(sunriseArg, sunsetArg string) (chihiros.TimeOfDay, chihiros.TimeOfDay, chihiros.Weekdays, error) {
	sunrise, err := chihiros.ParseTimeOfDay(sunriseArg)
	if err != nil {
		return chihiros.TimeOfDay{}, chihiros.TimeOfDay{}, 0, err
	}
	sunset, err := chihiros.ParseTimeOfDay(sunsetArg)
	if err != nil {
		return chihiros.TimeOfDay{}, chihiros.TimeOfDay{}, 0, err
	}
	days, err := chihiros.ParseWeekdays(scheduleWeekdays)
	if err != nil {
		return chihiros.TimeOfDay{}, chihiros.TimeOfDay{}, 0, err
	}
	return sunrise, sunset, days, nil
}

var addSettingCmd = &cobra.Command{
	Use:   "add-setting <address> <sunrise> <sunset> <brightness>",
	Short: "Add an automation entry (white light)",
	Long: `Add a sunrise-sunset automation entry with one brightness level.
Times are HH:MM. Use --weekdays to restrict the entry to specific days and
--ramp-up for a gradual fade in minutes.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdAddSetting, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			sunrise, sunset, days, err := parseScheduleWindow(args[1], args[2])
			if err != nil {
				return err
			}
			brightness, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("invalid brightness %q", args[3])
			}
			frame, err := chihiros.NewAddAutoSettingCommand(s.NextMessageID(), sunrise, sunset,
				[3]int{brightness, 255, 255}, scheduleRampUp, days)
			if err != nil {
				return err
			}
			return s.Send(ctx, frame)
		})
	},
}

var addRGBSettingCmd = &cobra.Command{
	Use:   "add-rgb-setting <address> <sunrise> <sunset> <red> <green> <blue>",
	Short: "Add an automation entry with per-color brightness",
	Args:  cobra.ExactArgs(6),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdAddSetting, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			sunrise, sunset, days, err := parseScheduleWindow(args[1], args[2])
			if err != nil {
				return err
			}
			var rgb [3]int
			for i := 0; i < 3; i++ {
				v, err := strconv.Atoi(args[i+3])
				if err != nil {
					return fmt.Errorf("invalid brightness %q", args[i+3])
				}
				rgb[i] = v
			}
			frame, err := chihiros.NewAddAutoSettingCommand(s.NextMessageID(), sunrise, sunset, rgb, scheduleRampUp, days)
			if err != nil {
				return err
			}
			return s.Send(ctx, frame)
		})
	},
}

var removeSettingCmd = &cobra.Command{
	Use:   "remove-setting <address> <sunrise> <sunset>",
	Short: "Remove a previously added automation entry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdRemoveSetting, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			sunrise, sunset, days, err := parseScheduleWindow(args[1], args[2])
			if err != nil {
				return err
			}
			frame, err := chihiros.NewDeleteAutoSettingCommand(s.NextMessageID(), sunrise, sunset, scheduleRampUp, days)
			if err != nil {
				return err
			}
			return s.Send(ctx, frame)
		})
	},
}

var resetSettingsCmd = &cobra.Command{
	Use:   "reset-settings <address>",
	Short: "Remove all automation entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdResetSettings, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			return s.Send(ctx, chihiros.NewResetAutoSettingsCommand(s.NextMessageID()))
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{addSettingCmd, addRGBSettingCmd, removeSettingCmd} {
		c.Flags().StringSliceVar(&scheduleWeekdays, "weekdays", nil, "Restrict to weekdays (monday..sunday, default every day)")
		c.Flags().IntVar(&scheduleRampUp, "ramp-up", 0, "Fade duration in minutes (0-150)")
	}
	rootCmd.AddCommand(addSettingCmd)
	rootCmd.AddCommand(addRGBSettingCmd)
	rootCmd.AddCommand(removeSettingCmd)
	rootCmd.AddCommand(resetSettingsCmd)
}
