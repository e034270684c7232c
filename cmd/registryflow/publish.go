package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rferrors "github.com/registryflow/registryflow/pkg/errors"
	"github.com/registryflow/registryflow/pkg/storage/s3"
	"github.com/registryflow/registryflow/pkg/tui"
	"github.com/registryflow/registryflow/pkg/validation"
)

var (
	publishBucket    string
	publishPrefix    string
	publishEndpoint  string
	publishPathStyle bool
)

var publishCmd = &cobra.Command{
	Use:   "publish [dir]",
	Short: "Upload produced artifacts to S3",
	Long: `Upload every file under the output directory (or dir) to an S3 bucket,
keeping relative paths under the configured prefix.

Credentials come from the standard AWS chain (environment, shared config,
instance role). --endpoint and --path-style target S3-compatible stores
such as MinIO.

Examples:
  registryflow publish --bucket registry-exports --prefix az/2024-06
  REGISTRYFLOW_S3_BUCKET=exports registryflow publish build`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishBucket, "bucket", "", "Target bucket")
	publishCmd.Flags().StringVar(&publishPrefix, "prefix", "", "Key prefix")
	publishCmd.Flags().StringVar(&publishEndpoint, "endpoint", "", "S3-compatible endpoint URL")
	publishCmd.Flags().BoolVar(&publishPathStyle, "path-style", false, "Use path-style addressing")
}

func runPublish(cmd *cobra.Command, args []string) error {
	dir := cfg.Output.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	abs, err := validation.ValidateFilePath(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return rferrors.FileNotFound(dir)
	}

	pub := cfg.Publish
	flags := cmd.Flags()
	if flags.Changed("bucket") {
		pub.Bucket = publishBucket
	}
	if flags.Changed("prefix") {
		pub.Prefix = publishPrefix
	}
	if flags.Changed("endpoint") {
		pub.Endpoint = publishEndpoint
	}
	if flags.Changed("path-style") {
		pub.PathStyle = publishPathStyle
	}

	scfg := s3.DefaultConfig(pub.Bucket, pub.Region)
	scfg.Prefix = pub.Prefix
	scfg.Endpoint = pub.Endpoint
	scfg.UsePathStyle = pub.PathStyle

	client, err := s3.NewClient(cmd.Context(), scfg, logger)
	if err != nil {
		return err
	}

	uploaded, err := client.UploadDir(cmd.Context(), abs)
	if err != nil {
		return err
	}

	rows := make([][2]string, len(uploaded))
	for i, u := range uploaded {
		rows[i] = [2]string{fmt.Sprintf("s3://%s/%s", client.Bucket(), u.Key), fmt.Sprint(u.Size)}
	}
	tui.NewPrinter(cmd.OutOrStdout()).Table("published", rows)
	return nil
}
