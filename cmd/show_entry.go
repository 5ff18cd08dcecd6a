package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/wolfitem/rss-ingest/internal/application/service"
	"github.com/wolfitem/rss-ingest/internal/domain/model"
)

var showEntryCmd = &cobra.Command{
	Use:   "show-entry <link>",
	Short: "按链接查询已存储的条目",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := service.NewRunner(ingestParams()).LookupEntry(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("查询条目失败: %w", err)
		}
		if entry == nil {
			return fmt.Errorf("条目不存在: %s", args[0])
		}
		printEntry(cmd.OutOrStdout(), entry)
		return nil
	},
}

func printEntry(w io.Writer, e *model.Entry) {
	published := "无"
	if e.Published != nil {
		published = e.Published.Format(time.RFC3339)
	}
	fmt.Fprintf(w, "订阅源: %d\n", e.FeedID)
	fmt.Fprintf(w, "标题: %s\n", e.Title)
	fmt.Fprintf(w, "链接: %s\n", e.Link)
	fmt.Fprintf(w, "发布时间: %s\n", published)
	fmt.Fprintf(w, "作者: %s\n", e.Author)
	fmt.Fprintf(w, "条目ID: %s\n", e.EntryID)
	fmt.Fprintf(w, "摘要: %s\n", e.Summary)
}

func init() {
	rootCmd.AddCommand(showEntryCmd)
}
