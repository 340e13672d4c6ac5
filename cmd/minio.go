package cmd

import (
	"context"
	"fmt"
	"log"

	"melodygram/config"
	"melodygram/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the MinIO bucket",
	Long:  `Connects to MinIO, verifies the bucket and lists stored objects, optionally under a prefix such as clips/.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO config: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}
		fmt.Println("MinIO connection OK")

		client := storage.GetMinioClient()
		ctx := context.Background()

		var count int
		var totalSize int64
		for object := range client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{
			Prefix:    minioPrefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				log.Fatalf("Failed to list objects: %v", object.Err)
			}
			count++
			totalSize += object.Size
			if !minioStats {
				fmt.Printf("%10d  %s\n", object.Size, object.Key)
			}
		}
		fmt.Printf("%d objects, %d bytes total\n", count, totalSize)
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "object prefix to list, e.g. clips/")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print totals only")
	rootCmd.AddCommand(minioCmd)
}
