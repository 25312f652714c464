package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zfogg/sidechain/reader/pkg/config"
	"github.com/zfogg/sidechain/reader/pkg/output"
)

// shownConfigKeys are the settings printed by "config show", in order
var shownConfigKeys = []string{
	"api.base_url",
	"api.timeout",
	"api.retries",
	"output.format",
	"feed.type",
	"feed.page_size",
	"scroll.threshold",
	"scroll.root_margin",
	"media.root_margin",
	"media.cache_file",
	"media.max_bytes",
	"viewport.cell_width",
	"viewport.cell_height",
	"metrics.addr",
	"log.level",
	"log.file",
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		record := make(map[string]interface{}, len(shownConfigKeys)+1)
		keys := append([]string{"config_file"}, shownConfigKeys...)
		record["config_file"] = config.GetConfigFile()
		for _, key := range shownConfigKeys {
			record[key] = config.GetString(key)
		}
		return output.PrintRecord("Configuration", keys, record)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
