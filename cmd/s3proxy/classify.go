package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagarc03/s3proxy/config"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify KEY...",
		Short: "Show how object keys would be served",
		Long: `Print the content policy decision for each key: inline, attachment
or reject, with the inferred MIME type. No storage backend is contacted.`,
		Example: `  s3proxy classify report.pdf archive.zip index.html
  S3PROXY_POLICY_DISALLOW=text/html s3proxy classify index.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromContext(cmd.Context())
			if err != nil {
				return err
			}

			policy := cfg.NewPolicy()
			for _, key := range args {
				d := policy.Classify(key)
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", key, d.Disposition, d.MimeType); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
