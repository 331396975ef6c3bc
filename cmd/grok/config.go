package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/grok-ask/internal/config"
	"github.com/diogo/grok-ask/pkg/client"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and modify grok CLI configuration settings.`,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.render.RenderTitle("Configuration")
			a.render.RenderKeyValue("config_file", a.cfgMgr.GetConfigFile(), keyWidth())
			a.render.NewLine()
			for _, key := range config.Keys {
				a.render.RenderKeyValue(key, a.cfg.Value(key), keyWidth())
			}
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if err := a.cfg.SetValue(key, value); err != nil {
				return a.fail(&client.ClientError{Kind: client.KindInvalidRequest, Detail: err.Error()})
			}
			if err := a.cfgMgr.Save(a.cfg); err != nil {
				return a.fail(fmt.Errorf("failed to save config: %w", err))
			}

			a.render.RenderSuccess(fmt.Sprintf("Set %s = %s", key, a.cfg.Value(key)))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := a.cfgMgr.Defaults()
			if err := a.cfgMgr.Save(defaults); err != nil {
				return a.fail(fmt.Errorf("failed to save config: %w", err))
			}
			a.render.RenderSuccess("Configuration reset to defaults")
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, a.cfgMgr.GetConfigFile())
		},
	})

	return configCmd
}

// keyWidth is the length of the longest config key.
func keyWidth() int {
	width := len("config_file")
	for _, key := range config.Keys {
		if len(key) > width {
			width = len(key)
		}
	}
	return width
}
