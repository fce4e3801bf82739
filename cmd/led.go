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

// withDevice wires up a session for the addressed device and tears it down
// after fn returns. Commands are checked against the device capability
// before anything is sent.
func withDevice(args []string, cmd device.Command, fn func(ctx context.Context, s *uart.Session, cap device.Capability) error) error {
	address, err := deviceAddress(args)
	if err != nil {
		return err
	}
	manager, transport, err := newManager()
	if err != nil {
		return err
	}
	defer manager.CloseAll()

	ctx, cancel := commandContext()
	defer cancel()

	cap := lookupCapability(ctx, transport, address)
	if !cap.Supports(cmd) {
		return fmt.Errorf("%s does not support this command", cap.ModelName)
	}
	return fn(ctx, manager.Session(address), cap)
}

func parseBrightness(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid brightness %q", s)
	}
	return v, nil
}

var setBrightnessCmd = &cobra.Command{
	Use:   "set-brightness <address> <brightness>",
	Short: "Set brightness on the first channel (0-100)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdSetBrightness, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			brightness, err := parseBrightness(args[1])
			if err != nil {
				return err
			}
			frame, err := chihiros.NewManualSettingCommand(s.NextMessageID(), cap.Channels[0].ID, brightness)
			if err != nil {
				return err
			}
			return s.Send(ctx, frame)
		})
	},
}

var setColorBrightnessCmd = &cobra.Command{
	Use:   "set-color-brightness <address> <channel> <brightness>",
	Short: "Set brightness on a named channel (e.g. red) or channel index",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdSetColorBrightness, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			brightness, err := parseBrightness(args[2])
			if err != nil {
				return err
			}
			channel, err := resolveChannel(cap, args[1])
			if err != nil {
				return err
			}
			frame, err := chihiros.NewManualSettingCommand(s.NextMessageID(), channel, brightness)
			if err != nil {
				return err
			}
			return s.Send(ctx, frame)
		})
	},
}

var setRGBBrightnessCmd = &cobra.Command{
	Use:   "set-rgb-brightness <address> <red> <green> <blue>",
	Short: "Set brightness on the red, green and blue channels",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdSetColorBrightness, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			frames := make([]chihiros.Frame, 0, 3)
			for i, name := range []string{"red", "green", "blue"} {
				brightness, err := parseBrightness(args[i+1])
				if err != nil {
					return err
				}
				channel, err := resolveChannel(cap, name)
				if err != nil {
					return err
				}
				frame, err := chihiros.NewManualSettingCommand(s.NextMessageID(), channel, brightness)
				if err != nil {
					return err
				}
				frames = append(frames, frame)
			}
			return s.Send(ctx, frames...)
		})
	},
}

var turnOnCmd = &cobra.Command{
	Use:   "turn-on <address>",
	Short: "Set every channel to full brightness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdTurnOn, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			return sendAllChannels(ctx, s, cap, chihiros.MaxBrightness)
		})
	},
}

var turnOffCmd = &cobra.Command{
	Use:   "turn-off <address>",
	Short: "Set every channel to zero brightness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdTurnOff, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			return sendAllChannels(ctx, s, cap, 0)
		})
	},
}

var enableAutoModeCmd = &cobra.Command{
	Use:   "enable-auto-mode <address>",
	Short: "Switch the light to its automatic schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdEnableAutoMode, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			return s.Send(ctx, chihiros.NewAutoModeSequence(s.NextMessageID, time.Now())...)
		})
	},
}

var setManualModeCmd = &cobra.Command{
	Use:   "set-manual-mode <address>",
	Short: "Switch the light to manual control",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(args, device.CmdSetManualMode, func(ctx context.Context, s *uart.Session, cap device.Capability) error {
			return s.Send(ctx, chihiros.NewSwitchToManualModeCommand(s.NextMessageID()))
		})
	},
}

// sendAllChannels writes one brightness to every distinct channel id.
func sendAllChannels(ctx context.Context, s *uart.Session, cap device.Capability, brightness int) error {
	seen := map[uint8]bool{}
	frames := make([]chihiros.Frame, 0, len(cap.Channels))
	for _, ch := range cap.Channels {
		if seen[ch.ID] {
			continue
		}
		seen[ch.ID] = true
		frame, err := chihiros.NewManualSettingCommand(s.NextMessageID(), ch.ID, brightness)
		if err != nil {
			return err
		}
		frames = append(frames, frame)
	}
	return s.Send(ctx, frames...)
}

// resolveChannel accepts a channel name or a numeric channel id.
func resolveChannel(cap device.Capability, arg string) (uint8, error) {
	if ch, ok := cap.Channel(arg); ok {
		return ch.ID, nil
	}
	if v, err := strconv.Atoi(arg); err == nil && v >= 0 && v <= 255 {
		return uint8(v), nil
	}
	return 0, fmt.Errorf("unknown channel %q on %s", arg, cap.ModelName)
}

func init() {
	rootCmd.AddCommand(setBrightnessCmd)
	rootCmd.AddCommand(setColorBrightnessCmd)
	rootCmd.AddCommand(setRGBBrightnessCmd)
	rootCmd.AddCommand(turnOnCmd)
	rootCmd.AddCommand(turnOffCmd)
	rootCmd.AddCommand(enableAutoModeCmd)
	rootCmd.AddCommand(setManualModeCmd)
}
