package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devcollab/edgegate"
	"github.com/devcollab/edgegate/claims"
	"github.com/devcollab/edgegate/internal/settings"
	"github.com/spf13/cobra"
)

type decideOutput struct {
	Path          string           `json:"path"`
	Verdict       edgegate.Verdict `json:"decision"`
	Authenticated bool             `json:"authenticated"`
	RoleKnown     bool             `json:"role_known"`
	Admin         bool             `json:"admin"`
}

func decideCmd() *cobra.Command {
	var (
		path       string
		access     string
		refresh    string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Evaluate one path and credential pair",
		Example: `  edgegate decide --path /admin/users --access "$TOKEN"
  edgegate decide --path /home --config edgegate.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := edgegate.DefaultConfig()
			if configPath != "" {
				s, err := settings.Load(configPath)
				if err != nil {
					return err
				}
				cfg = s.Gate
			}
			cfg.Audit.Enabled = false

			engine, err := edgegate.New().WithConfig(cfg).Build()
			if err != nil {
				return err
			}
			defer engine.Close()

			d := engine.Evaluate(context.Background(), path, edgegate.CredentialPair{Access: access, Refresh: refresh})
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(decideOutput{
				Path:          d.Path,
				Verdict:       d.Verdict,
				Authenticated: d.Authenticated,
				RoleKnown:     d.RoleKnown,
				Admin:         d.Admin,
			})
		},
	}

	cmd.Flags().StringVar(&path, "path", "/", "Request path, query included if any")
	cmd.Flags().StringVar(&access, "access", "", "Access credential value")
	cmd.Flags().StringVar(&refresh, "refresh", "", "Refresh credential value")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Settings file for the gate configuration")

	return cmd
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Print the unverified claims of a token",
		Long: `Decode prints the payload of a three-segment token without checking its
signature or expiry. The output is not proof of anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := claims.Decode(args[0])
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no claims")
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c.Raw())
		},
	}
}
