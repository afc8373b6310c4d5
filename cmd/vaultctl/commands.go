package main

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vaultkit/vault-client/pkg/client"
)

// Health command
func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Queries sys/health. Fails when the node is sealed or is not the active node.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			health, err := c.Health().Health(ctx)
			if err != nil {
				return errors.Wrap(err, "health check failed")
			}

			err = a.output(cmd, health, func(w io.Writer) {
				fmt.Fprintf(w, "Initialized: %v\n", health.Initialized)
				fmt.Fprintf(w, "Sealed: %v\n", health.Sealed)
				fmt.Fprintf(w, "Standby: %v\n", health.Standby)
				fmt.Fprintf(w, "Version: %s\n", health.Version)
				if health.ClusterName != "" {
					fmt.Fprintf(w, "Cluster: %s\n", health.ClusterName)
				}
			})
			if err != nil {
				return err
			}

			if !health.IsHealthy() {
				return errors.New("server is not healthy")
			}
			return nil
		},
	}
}

// TOTP command group
func (a *app) totpCmd() *cobra.Command {
	totpCmd := &cobra.Command{
		Use:   "totp",
		Short: "TOTP operations",
	}
	var mount string
	totpCmd.PersistentFlags().StringVar(&mount, "mount", "totp", "Mount point of the TOTP engine")

	codeCmd := &cobra.Command{
		Use:   "code <name>",
		Short: "Generate a code",
		Long:  "Generates the current code of a key the server generated.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			code, err := c.TOTP(client.WithMountPoint(mount)).GenerateCode(ctx, args[0])
			if err != nil {
				return errors.Wrapf(err, "failed to generate code for %s", args[0])
			}

			return a.output(cmd, code.Data, func(w io.Writer) {
				fmt.Fprintln(w, code.Data.Code)
			})
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <name> <code>",
		Short: "Validate a code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			result, err := c.TOTP(client.WithMountPoint(mount)).ValidateCode(ctx, args[0], args[1])
			if err != nil {
				return errors.Wrapf(err, "failed to validate code for %s", args[0])
			}

			err = a.output(cmd, result.Data, func(w io.Writer) {
				fmt.Fprintf(w, "Valid: %v\n", result.Data.Valid)
			})
			if err != nil {
				return err
			}
			if !result.Data.Valid {
				return errors.New("code is not valid")
			}
			return nil
		},
	}

	totpCmd.AddCommand(codeCmd, validateCmd)
	return totpCmd
}

// Token command group
func (a *app) tokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Token operations",
	}

	var increment string
	renewCmd := &cobra.Command{
		Use:   "renew-self",
		Short: "Renew the current token",
		Long:  "Extends the lease of the token given by --token or VAULT_TOKEN.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			if c.Token() == "" {
				return errors.New("no token set, use --token or VAULT_TOKEN")
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			resp, err := c.Auth(nil).RenewSelf(ctx, client.TokenRenewSelfOptions{Increment: increment}, false)
			if err != nil {
				return errors.Wrap(err, "token renewal failed")
			}

			return a.output(cmd, resp.Auth, func(w io.Writer) {
				fmt.Fprintf(w, "Token renewed\n")
				fmt.Fprintf(w, "  Accessor: %s\n", resp.Auth.Accessor)
				fmt.Fprintf(w, "  Lease: %s\n", resp.Auth.Lease())
				fmt.Fprintf(w, "  Renewable: %v\n", resp.Auth.Renewable)
				fmt.Fprintf(w, "  Policies: %v\n", resp.Auth.Policies)
			})
		},
	}
	renewCmd.Flags().StringVar(&increment, "increment", "", "Requested lease extension, e.g. 1h")

	tokenCmd.AddCommand(renewCmd)
	return tokenCmd
}
