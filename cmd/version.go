package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version 在编译时通过 -ldflags "-X github.com/wolfitem/rss-ingest/cmd.Version=..." 注入
var Version string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示程序版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(versionString())
	},
}

// versionString 未注入版本时回退到模块版本和VCS修订号
func versionString() string {
	version := Version
	revision := ""
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				revision = s.Value[:7]
			}
		}
	}
	if version == "" {
		version = "开发版本"
	}

	out := fmt.Sprintf("rss-ingest 版本: %s (%s %s/%s)", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if revision != "" {
		out += " 修订: " + revision
	}
	return out
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
