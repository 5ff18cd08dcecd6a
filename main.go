package main

import "github.com/wolfitem/rss-ingest/cmd"

func main() {
	cmd.Execute()
}
