package main

import (
	"github.com/spf13/cobra"

	"github.com/diogo/grok-ask/internal/auth"
	"github.com/diogo/grok-ask/pkg/client"
)

func newAuthCmd(a *app) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect API key configuration",
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which API key will be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, source, err := auth.ResolveAPIKey(a.apiKey, a.cfg.APIKey)
			a.render.RenderKeyValue("api_key", auth.MaskKey(key), 7)
			a.render.RenderKeyValue("source", string(source), 7)
			if err != nil {
				return a.fail(&client.ClientError{Kind: client.KindAuth, Detail: err.Error()})
			}
			if !auth.LooksValid(key) {
				a.render.RenderWarning("the key does not look like an xAI key (expected an \"xai-\" prefix)")
			}
			return nil
		},
	})

	return authCmd
}
