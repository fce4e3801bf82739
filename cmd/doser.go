// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/chihiros-control/chihirosctl/pkg/chihiros"
	"github.com/chihiros-control/chihirosctl/pkg/device"
	"github.com/chihiros-control/chihirosctl/pkg/uart"
)

var (
	doseWeekdays  []string
	doseCatchUp   bool
	totalsWait    time.Duration
	dosingAutoOff bool
)

func parseDoserChannel(arg string) (int, error) {
	channel, err := strconv.Atoi(arg)
	if err != nil || channel < 0 || channel > chihiros.MaxDoserChannel {
		return 0, fmt.Errorf("invalid channel %q (want 0-%d)", arg, chihiros.MaxDoserChannel)
	}
	return channel, nil
}

var doseCmd = &cobra.Command{
	Use:   "dose <address> <channel> <milliliters>",
	Short: "Dose an amount once, immediately",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdDose, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			channel, err := parseDoserChannel(args[1])
			if err != nil {
				return err
			}
			ml, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			amount, err := chihiros.SplitDose(ml)
			if err != nil {
				return err
			}
			frame, err := chihiros.NewManualDoseCommand(s.NextMessageID(), channel, amount)
			if err != nil {
				return err
			}
			if err := s.Send(ctx, frame); err != nil {
				return err
			}
			fmt.Printf("Dosed %s on channel %d\n", amount, channel)
			return nil
		})
	},
}

var addDosingScheduleCmd = &cobra.Command{
	Use:   "add-dosing-schedule <address> <channel> <time> <milliliters>",
	Short: "Schedule a daily dose at the given HH:MM",
	Long: `Schedule a daily dose. Amounts above 25.0 mL are split into several
schedule entries fired one minute apart. Use --weekdays to restrict the
schedule to specific days.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdAddDosingSchedule, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			channel, err := parseDoserChannel(args[1])
			if err != nil {
				return err
			}
			at, err := chihiros.ParseTimeOfDay(args[2])
			if err != nil {
				return err
			}
			ml, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[3])
			}
			amount, err := chihiros.SplitDose(ml)
			if err != nil {
				return err
			}
			days, err := chihiros.ParseWeekdays(doseWeekdays)
			if err != nil {
				return err
			}
			frames, err := chihiros.NewDoseScheduleSequence(s.NextMessageID, time.Now(), at, channel, days,
				int(amount.Milliliters()*10+0.5))
			if err != nil {
				return err
			}
			if err := s.Send(ctx, frames...); err != nil {
				return err
			}
			fmt.Printf("Scheduled %s daily at %s on channel %d\n", amount, at, channel)
			return nil
		})
	},
}

var enableAutoDosingCmd = &cobra.Command{
	Use:   "enable-auto-dosing <address> <channel>",
	Short: "Enable or disable automatic dosing on a channel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdEnableAutoDosing, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			channel, err := parseDoserChannel(args[1])
			if err != nil {
				return err
			}
			frames, err := chihiros.NewDoserAutoSequence(s.NextMessageID, time.Now(), channel, doseCatchUp, !dosingAutoOff)
			if err != nil {
				return err
			}
			return s.Send(ctx, frames...)
		})
	},
}

var readDailyTotalsCmd = &cobra.Command{
	Use:   "read-daily-totals <address>",
	Short: "Read today's dispensed totals per channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdReadDailyTotals, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			totalsCh := make(chan [chihiros.MaxDoserChannel + 1]float64, 1)
			s.OnNotification(func(payload []byte) {
				if totals, ok := chihiros.ParseDailyTotals(payload); ok {
					select {
					case totalsCh <- totals:
					default:
					}
				}
			})

			if err := s.Send(ctx, chihiros.NewTotalsProbeCommands(s.NextMessageID)...); err != nil {
				return err
			}

			select {
			case totals := <-totalsCh:
				for ch, ml := range totals {
					fmt.Printf("Channel %d: %.1f mL\n", ch, ml)
				}
				return nil
			case <-time.After(totalsWait):
				return fmt.Errorf("no daily-totals response within %s", totalsWait)
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	},
}

func init() {
	addDosingScheduleCmd.Flags().StringSliceVar(&doseWeekdays, "weekdays", nil, "Restrict to weekdays (monday..sunday, default every day)")
	enableAutoDosingCmd.Flags().BoolVar(&doseCatchUp, "catch-up", false, "Make up doses missed while powered off")
	enableAutoDosingCmd.Flags().BoolVar(&dosingAutoOff, "off", false, "Disable instead of enable")
	readDailyTotalsCmd.Flags().DurationVar(&totalsWait, "wait", 8*time.Second, "How long to wait for the response")

	rootCmd.AddCommand(doseCmd)
	rootCmd.AddCommand(addDosingScheduleCmd)
	rootCmd.AddCommand(enableAutoDosingCmd)
	rootCmd.AddCommand(readDailyTotalsCmd)
}
