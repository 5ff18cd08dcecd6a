package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wolfitem/rss-ingest/internal/application/service"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

// importCmd represents the import-feeds command
var importCmd = &cobra.Command{
	Use:   "import-feeds",
	Short: "记录订阅源的标题和网站链接",
	Long: `读取订阅源列表，抓取每个订阅源的标题和网站链接并写入feeds表。
抓取失败的订阅源使用其地址作为标题。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := service.NewRunner(ingestParams())

		imported, err := runner.ImportFeeds(cmd.Context())
		if err != nil {
			logger.Error("导入订阅源失败", "error", err)
			return fmt.Errorf("导入订阅源失败: %w", err)
		}
		fmt.Printf("已记录订阅源: %d\n", imported)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
