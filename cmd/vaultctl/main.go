// Package main provides a CLI for Vault built on pkg/client.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/zapr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vaultkit/vault-client/pkg/client"
	"go.uber.org/zap"
)

// Configuration keys. With the VAULT prefix they map onto the usual
// VAULT_ADDR, VAULT_TOKEN, VAULT_NAMESPACE and VAULT_CACERT variables.
const (
	keyAddress   = "addr"
	keyToken     = "token"
	keyNamespace = "namespace"
	keyCACert    = "cacert"
	keyTimeout   = "timeout"
	keyJSON      = "json"
	keyVerbose   = "verbose"
)

const defaultEnvFile = ".env"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by all commands of one invocation.
type app struct {
	cfg     *viper.Viper
	envFile string
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "vaultctl",
		Short: "Vault CLI",
		Long: `A command-line client for the Vault HTTP API.

This tool allows you to:
  - Check server health
  - Read and write key/value secrets (v1 and v2)
  - Encrypt and decrypt with transit keys
  - Generate TOTP codes
  - Renew the current token

Environment variables (also read from a .env file):
  VAULT_ADDR      - Server address (default: http://127.0.0.1:8200)
  VAULT_TOKEN     - Token sent with every request
  VAULT_NAMESPACE - Namespace header
  VAULT_CACERT    - CA certificate file for TLS`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(keyAddress, "", "Server address (or VAULT_ADDR env)")
	flags.String(keyToken, "", "Token (or VAULT_TOKEN env)")
	flags.String(keyNamespace, "", "Namespace (or VAULT_NAMESPACE env)")
	flags.String(keyCACert, "", "CA certificate file (or VAULT_CACERT env)")
	flags.Duration(keyTimeout, 30*time.Second, "Request timeout")
	flags.Bool(keyJSON, false, "Output as JSON")
	flags.BoolP(keyVerbose, "v", false, "Log requests to stderr")
	flags.StringVar(&a.envFile, "env-file", "", "Load environment variables from this file (default .env if present)")

	rootCmd.AddCommand(
		a.healthCmd(),
		a.kvCmd(),
		a.transitCmd(),
		a.totpCmd(),
		a.tokenCmd(),
	)
	return rootCmd
}

// setup loads the env file, binds flags and environment, and builds the
// logger. Flags win over the environment.
func (a *app) setup(cmd *cobra.Command) error {
	if err := loadEnvFile(a.envFile); err != nil {
		return err
	}

	a.cfg.SetEnvPrefix("VAULT")
	a.cfg.AutomaticEnv()
	if err := a.cfg.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return errors.Wrap(err, "bind flags")
	}

	logger, err := newLogger(a.cfg.GetBool(keyVerbose))
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	a.logger = logger
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// loadEnvFile loads path, or .env from the working directory when path is
// empty and the file exists. Variables already set are not overridden.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s", path)
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// newClient creates a client from flags and environment
func (a *app) newClient() (*client.Client, error) {
	opts := []client.Option{
		client.WithTimeout(a.cfg.GetDuration(keyTimeout)),
	}
	if a.logger != nil {
		opts = append(opts, client.WithLogger(zapr.NewLogger(a.logger)))
	}
	if addr := a.cfg.GetString(keyAddress); addr != "" {
		opts = append(opts, client.WithAddress(addr))
	}
	if token := a.cfg.GetString(keyToken); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	if ns := a.cfg.GetString(keyNamespace); ns != "" {
		opts = append(opts, client.WithNamespace(ns))
	}
	if ca := a.cfg.GetString(keyCACert); ca != "" {
		opts = append(opts, client.WithCACertificatePath(ca))
	}

	c, err := client.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}
	return c, nil
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.GetDuration(keyTimeout))
}

// output prints v as JSON when --json is set, otherwise calls text.
func (a *app) output(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if a.cfg.GetBool(keyJSON) {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
