package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/s3proxy/config"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: version,
		Use:     "s3proxy",
		Short:   "Serve S3 objects over HTTP with a MIME type policy",
		Long: `s3proxy fetches objects from S3 (or a local directory) and serves them
over HTTP, deciding per extension whether the browser displays the content
inline, downloads it as an attachment, or is refused.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := config.LoadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}

			configFiles, _ := cmd.Flags().GetStringSlice("config")
			cfg, err := config.Load(configFiles, cmd.Flags())
			if err != nil {
				return err
			}

			setupLogging(cmd.ErrOrStderr(), cfg)
			cmd.SetContext(config.WithContext(cmd.Context(), cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: S3PROXY_LOG_LEVEL)")

	rootCmd.AddCommand(newServeCmd(), newClassifyCmd(), newConfigCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
