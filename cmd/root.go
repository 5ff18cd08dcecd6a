package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wolfitem/rss-ingest/internal/domain/model"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rss-ingest",
	Short: "RSS订阅批量采集与去重工具",
	Long: `rss-ingest 读取订阅源列表（OPML或CSV），逐个抓取RSS/Atom订阅，
将条目规范化后按批次与数据库中已有的链接比对去重，只写入新条目。`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := setupSignalHandler()
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// 程序退出前同步日志
	logger.Sync()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局标志
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认为 ./config.yaml)")
	rootCmd.PersistentFlags().StringP("feeds", "i", "", "订阅源列表文件（OPML或CSV），覆盖 feeds.file")
	rootCmd.PersistentFlags().String("db", "", "SQLite数据库文件路径，覆盖 database.file_path")
	viper.BindPFlag("feeds.file", rootCmd.PersistentFlags().Lookup("feeds"))
	viper.BindPFlag("database.file_path", rootCmd.PersistentFlags().Lookup("db"))
}

// setDefaults 设置所有配置项的默认值
func setDefaults() {
	viper.SetDefault("feeds.file", "feeds.csv")

	viper.SetDefault("ingest.batch_size", 1000)
	viper.SetDefault("ingest.max_field_length", 65535)
	viper.SetDefault("ingest.title_max_length", 0)
	viper.SetDefault("ingest.strip_html", false)

	viper.SetDefault("fetch.timeout", 30)
	viper.SetDefault("fetch.concurrency", 4)
	viper.SetDefault("fetch.user_agent", "")
	viper.SetDefault("fetch.max_body_bytes", 10*1024*1024)
	viper.SetDefault("fetch.requests_per_second", 0)

	viper.SetDefault("database.file_path", "data/rss_feed.db")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.console", true)
	viper.SetDefault("logger.file_path", "logs/rss-ingest.log")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		// 使用指定的配置文件
		viper.SetConfigFile(cfgFile)
	} else {
		// 在当前目录中查找配置文件
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// 环境变量覆盖配置，例如 INGEST_BATCH_SIZE 对应 ingest.batch_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("使用配置文件:", viper.ConfigFileUsed())
	} else {
		fmt.Printf("无法读取配置文件，使用默认配置: %v\n", err)
	}

	initLogger()
}

// initLogger 初始化日志系统
func initLogger() {
	logConfig := logger.Config{
		Level:      viper.GetString("logger.level"),
		Console:    viper.GetBool("logger.console"),
		FilePath:   viper.GetString("logger.file_path"),
		MaxSize:    viper.GetInt("logger.max_size"),
		MaxBackups: viper.GetInt("logger.max_backups"),
		MaxAge:     viper.GetInt("logger.max_age"),
		Compress:   viper.GetBool("logger.compress"),
	}

	if err := logger.Init(logConfig); err != nil {
		fmt.Printf("初始化日志系统失败: %v\n", err)
	}
}

// ingestParams 从配置中读取运行参数
func ingestParams() model.IngestParams {
	return model.IngestParams{
		FeedsFile: viper.GetString("feeds.file"),
		IngestConfig: model.IngestConfig{
			BatchSize:      viper.GetInt("ingest.batch_size"),
			MaxFieldLength: viper.GetInt("ingest.max_field_length"),
			TitleMaxLength: viper.GetInt("ingest.title_max_length"),
			StripHTML:      viper.GetBool("ingest.strip_html"),
		},
		FetchConfig: model.FetchConfig{
			Timeout:           viper.GetInt("fetch.timeout"),
			Concurrency:       viper.GetInt("fetch.concurrency"),
			UserAgent:         viper.GetString("fetch.user_agent"),
			MaxBodyBytes:      viper.GetInt64("fetch.max_body_bytes"),
			RequestsPerSecond: viper.GetFloat64("fetch.requests_per_second"),
		},
		DatabaseConfig: model.DatabaseConfig{
			FilePath: viper.GetString("database.file_path"),
		},
	}
}

// setupSignalHandler 返回在收到SIGINT或SIGTERM时取消的上下文
// 取消后不再开始新的订阅源，正在进行的批次写入会完成
func setupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
