package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vaultkit/vault-client/pkg/client"
)

// kvFlags are shared by every kv subcommand.
type kvFlags struct {
	v1    bool
	mount string
}

func (f *kvFlags) mountOptions() []client.MountOption {
	if f.mount == "" {
		return nil
	}
	return []client.MountOption{client.WithMountPoint(f.mount)}
}

// KV command group
func (a *app) kvCmd() *cobra.Command {
	kvCmd := &cobra.Command{
		Use:   "kv",
		Short: "Key/value secrets",
		Long:  "Reads and writes key/value secrets. Version 2 engines are used unless --v1 is given.",
	}

	f := &kvFlags{}
	kvCmd.PersistentFlags().BoolVar(&f.v1, "v1", false, "Use a version 1 engine (default mount kv)")
	kvCmd.PersistentFlags().StringVar(&f.mount, "mount", "", "Mount point (default secret, or kv with --v1)")

	kvCmd.AddCommand(
		a.kvGetCmd(f),
		a.kvPutCmd(f),
		a.kvListCmd(f),
		a.kvDeleteCmd(f),
	)
	return kvCmd
}

func (a *app) kvGetCmd(f *kvFlags) *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Read a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			var data map[string]any
			var metadata *client.KV2VersionMetadata
			if f.v1 {
				secret, err := c.KV(f.mountOptions()...).Read(ctx, args[0])
				if err != nil {
					return errors.Wrapf(err, "failed to read %s", args[0])
				}
				data = secret.Data
			} else {
				secret, err := c.KV2(f.mountOptions()...).Read(ctx, args[0], version)
				if err != nil {
					return errors.Wrapf(err, "failed to read %s", args[0])
				}
				data = secret.Data.Data
				metadata = secret.Data.Metadata
			}

			return a.output(cmd, data, func(w io.Writer) {
				if metadata != nil {
					fmt.Fprintf(w, "Version: %d\n", metadata.Version)
					fmt.Fprintf(w, "Created: %s\n", metadata.CreatedTime)
				}
				printData(w, data)
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Version to read (v2 only, default latest)")
	return cmd
}

func (a *app) kvPutCmd(f *kvFlags) *cobra.Command {
	var cas int
	cmd := &cobra.Command{
		Use:   "put <path> <key=value>...",
		Short: "Write a secret",
		Long: `Writes a secret. On a version 2 engine this creates a new version.

Example:
  vaultctl kv put app/config user=admin password=hunter2`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parsePairs(args[1:])
			if err != nil {
				return err
			}

			c, err := a.newClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			if f.v1 {
				if err := c.KV(f.mountOptions()...).Create(ctx, args[0], data); err != nil {
					return errors.Wrapf(err, "failed to write %s", args[0])
				}
				return a.output(cmd, map[string]bool{"written": true}, func(w io.Writer) {
					fmt.Fprintf(w, "Secret '%s' written\n", args[0])
				})
			}

			body := client.KV2CreateBody{Data: data}
			if cmd.Flags().Changed("cas") {
				body.Options = &client.KV2CreateOptions{CAS: &cas}
			}
			created, err := c.KV2(f.mountOptions()...).Create(ctx, args[0], body)
			if err != nil {
				return errors.Wrapf(err, "failed to write %s", args[0])
			}
			return a.output(cmd, created.Data, func(w io.Writer) {
				fmt.Fprintf(w, "Secret '%s' written (version %d)\n", args[0], created.Data.Version)
			})
		},
	}
	cmd.Flags().IntVar(&cas, "cas", 0, "Only write if the current version matches (v2 only)")
	return cmd
}

func (a *app) kvListCmd(f *kvFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [path]",
		Short: "List secrets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			c, err := a.newClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			var keys *client.KeyListResponse
			if f.v1 {
				keys, err = c.KV(f.mountOptions()...).List(ctx, path)
			} else {
				keys, err = c.KV2(f.mountOptions()...).List(ctx, path)
			}
			if err != nil {
				if client.StatusCode(err) == 404 {
					keys = &client.KeyListResponse{}
				} else {
					return errors.Wrap(err, "failed to list secrets")
				}
			}

			return a.output(cmd, map[string]any{"keys": keys.Data.Keys}, func(w io.Writer) {
				if len(keys.Data.Keys) == 0 {
					fmt.Fprintln(w, "No secrets found")
					return
				}
				for _, k := range keys.Data.Keys {
					fmt.Fprintln(w, k)
				}
			})
		},
	}
}

func (a *app) kvDeleteCmd(f *kvFlags) *cobra.Command {
	var versions []int
	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a secret",
		Long:  "Deletes a secret. On a version 2 engine --versions deletes only those versions, otherwise all versions and metadata are removed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			switch {
			case f.v1:
				err = c.KV(f.mountOptions()...).Delete(ctx, args[0])
			case len(versions) > 0:
				err = c.KV2(f.mountOptions()...).DeleteVersion(ctx, args[0], versions...)
			default:
				err = c.KV2(f.mountOptions()...).Delete(ctx, args[0])
			}
			if err != nil {
				return errors.Wrapf(err, "failed to delete %s", args[0])
			}

			return a.output(cmd, map[string]bool{"deleted": true}, func(w io.Writer) {
				fmt.Fprintf(w, "Secret '%s' deleted\n", args[0])
			})
		},
	}
	cmd.Flags().IntSliceVar(&versions, "versions", nil, "Versions to delete (v2 only)")
	return cmd
}

// parsePairs turns key=value arguments into secret data.
func parsePairs(args []string) (map[string]any, error) {
	data := make(map[string]any, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, errors.Newf("invalid argument %q, expected key=value", arg)
		}
		data[k] = v
	}
	return data, nil
}

func printData(w io.Writer, data map[string]any) {
	for _, k := range slices.Sorted(maps.Keys(data)) {
		fmt.Fprintf(w, "%s: %v\n", k, data[k])
	}
}
