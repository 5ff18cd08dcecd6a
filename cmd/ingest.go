package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wolfitem/rss-ingest/internal/application/service"
	"github.com/wolfitem/rss-ingest/internal/domain/model"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "抓取全部订阅源并写入新条目",
	Long: `读取订阅源列表，抓取并解析每个订阅源，按批次去重后写入数据库。
单个订阅源失败不影响其它订阅源；数据库不可用时中止运行并输出部分汇总。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := service.NewRunner(ingestParams())

		summary, err := runner.Ingest(cmd.Context())
		printSummary(summary)
		if err != nil {
			logger.Error("采集运行失败", "error", err)
			return fmt.Errorf("采集运行失败: %w", err)
		}
		return nil
	},
}

// printSummary 输出运行汇总
func printSummary(s model.RunSummary) {
	status := "完成"
	if s.Partial {
		status = "部分完成"
	}
	fmt.Printf("=== 采集汇总（%s）===\n", status)
	fmt.Printf("处理订阅源: %d（失败 %d）\n", s.FeedsProcessed, s.FeedsFailed)
	fmt.Printf("新写入条目: %d\n", s.EntriesSaved)
	fmt.Printf("重复跳过条目: %d\n", s.EntriesSkipped)
	fmt.Printf("缺少链接丢弃: %d\n", s.EntriesDropped)
	fmt.Printf("写入批次: %d\n", s.Flushes)
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().IntP("batch-size", "b", 0, "批量写入阈值，覆盖 ingest.batch_size")
	ingestCmd.Flags().IntP("concurrency", "c", 0, "并发抓取数量，覆盖 fetch.concurrency")
	viper.BindPFlag("ingest.batch_size", ingestCmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("fetch.concurrency", ingestCmd.Flags().Lookup("concurrency"))
}
