package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vaultkit/vault-client/pkg/client"
)

// Transit command group
func (a *app) transitCmd() *cobra.Command {
	transitCmd := &cobra.Command{
		Use:   "transit",
		Short: "Encryption as a service",
	}

	var mount string
	transitCmd.PersistentFlags().StringVar(&mount, "mount", "transit", "Mount point of the transit engine")
	transit := func() (*client.TransitClient, error) {
		c, err := a.newClient()
		if err != nil {
			return nil, err
		}
		return c.Transit(client.WithMountPoint(mount)), nil
	}

	encryptCmd := &cobra.Command{
		Use:   "encrypt <key> [plaintext]",
		Short: "Encrypt text",
		Long: `Encrypts plaintext with the named key. Without a plaintext argument
the text is read from stdin.

Example:
  echo -n "4242 4242 4242 4242" | vaultctl transit encrypt orders`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := argOrStdin(cmd, args, 1)
			if err != nil {
				return err
			}

			t, err := transit()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			ciphertext, err := t.EncryptText(ctx, args[0], plaintext)
			if err != nil {
				return errors.Wrap(err, "encryption failed")
			}

			return a.output(cmd, map[string]string{"ciphertext": ciphertext}, func(w io.Writer) {
				fmt.Fprintln(w, ciphertext)
			})
		},
	}

	decryptCmd := &cobra.Command{
		Use:   "decrypt <key> [ciphertext]",
		Short: "Decrypt text",
		Long:  "Decrypts ciphertext with the named key. Without a ciphertext argument it is read from stdin.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ciphertext, err := argOrStdin(cmd, args, 1)
			if err != nil {
				return err
			}

			t, err := transit()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			plaintext, err := t.DecryptText(ctx, args[0], strings.TrimSpace(ciphertext))
			if err != nil {
				if client.IsDecryptionKeyNotFound(err) {
					return errors.Newf("key %s not found", args[0])
				}
				return errors.Wrap(err, "decryption failed")
			}

			return a.output(cmd, map[string]string{"plaintext": plaintext}, func(w io.Writer) {
				fmt.Fprint(w, plaintext)
			})
		},
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := transit()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			keys, err := t.List(ctx)
			if err != nil {
				if client.StatusCode(err) != 404 {
					return errors.Wrap(err, "failed to list keys")
				}
				keys = &client.KeyListResponse{}
			}

			return a.output(cmd, map[string]any{"keys": keys.Data.Keys}, func(w io.Writer) {
				if len(keys.Data.Keys) == 0 {
					fmt.Fprintln(w, "No keys found")
					return
				}
				fmt.Fprintf(w, "Keys (%d):\n", len(keys.Data.Keys))
				for _, k := range keys.Data.Keys {
					fmt.Fprintf(w, "  %s\n", k)
				}
			})
		},
	}

	var keyType string
	createCmd := &cobra.Command{
		Use:   "create <key>",
		Short: "Create a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := transit()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			opts := &client.TransitCreateOptions{Type: client.TransitKeyType(keyType)}
			if err := t.Create(ctx, args[0], opts); err != nil {
				return errors.Wrapf(err, "failed to create key %s", args[0])
			}

			return a.output(cmd, map[string]bool{"created": true}, func(w io.Writer) {
				fmt.Fprintf(w, "Key '%s' created\n", args[0])
			})
		},
	}
	createCmd.Flags().StringVar(&keyType, "type", string(client.TransitKeyAES256GCM96), "Key type")

	rotateCmd := &cobra.Command{
		Use:   "rotate <key>",
		Short: "Rotate a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := transit()
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := t.Rotate(ctx, args[0]); err != nil {
				return errors.Wrapf(err, "failed to rotate key %s", args[0])
			}

			return a.output(cmd, map[string]bool{"rotated": true}, func(w io.Writer) {
				fmt.Fprintf(w, "Key '%s' rotated\n", args[0])
			})
		},
	}

	transitCmd.AddCommand(encryptCmd, decryptCmd, keysCmd, createCmd, rotateCmd)
	return transitCmd
}

// argOrStdin returns args[i], or everything on stdin when it is absent.
func argOrStdin(cmd *cobra.Command, args []string, i int) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", errors.Wrap(err, "failed to read input")
	}
	if len(data) == 0 {
		return "", errors.New("no data provided on stdin")
	}
	return string(data), nil
}
