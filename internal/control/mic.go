package control

import (
	"fmt"
	"strconv"

	"murmur/internal/audio"
	"murmur/internal/config"

	"github.com/spf13/cobra"
)

// NewMicCmd groups microphone selection subcommands.
func NewMicCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mic",
		Short:   "List and select input devices",
		Aliases: []string{"microphone", "mics"},
	}
	cmd.AddCommand(newMicListCmd())
	cmd.AddCommand(newMicSetCmd(cfgPath))
	return cmd
}

func newMicListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available microphones",
		RunE: func(cmd *cobra.Command, args []string) error {
			devs, err := audio.ListDevices()
			if err != nil {
				return err
			}
			for _, d := range devs {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Printf("%s [%d] %s (%d ch)\n", marker, d.Index, d.Name, d.Channels)
			}
			return nil
		},
	}
}

func newMicSetCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set [name]",
		Short: "Set preferred microphone by name or --index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			idxStr := cmd.Flag("index").Value.String()
			if len(args) == 0 && idxStr == "-1" {
				return fmt.Errorf("give a device name or --index (see 'mic list')")
			}
			if len(args) == 1 {
				cfg.Audio.DeviceName = args[0]
			}
			if idx, err := strconv.Atoi(idxStr); err == nil && idx >= 0 {
				cfg.Audio.DeviceIndex = idx
			}
			if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
				return err
			}
			fmt.Printf("mic preference saved to %s\n", cfg.Paths.ConfigPath)
			return nil
		},
	}
	cmd.Flags().Int("index", -1, "device index from 'mic list'")
	return cmd
}
