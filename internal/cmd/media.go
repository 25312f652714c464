package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zfogg/sidechain/reader/pkg/config"
	"github.com/zfogg/sidechain/reader/pkg/formatter"
	"github.com/zfogg/sidechain/reader/pkg/media"
	"github.com/zfogg/sidechain/reader/pkg/output"
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Media preview commands",
}

var mediaCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the preview cache",
}

var mediaCacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show preview cache usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := media.OpenCache(config.GetString("media.cache_file"))
		if err != nil {
			return err
		}
		defer cache.Close()

		stats, err := cache.Stats()
		if err != nil {
			return err
		}

		return output.PrintRecord("Media cache", []string{"path", "entries", "size"}, map[string]interface{}{
			"path":    stats.Path,
			"entries": stats.Entries,
			"size":    formatter.Bytes(stats.Bytes),
		})
	},
}

var mediaCacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached preview",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := media.OpenCache(config.GetString("media.cache_file"))
		if err != nil {
			return err
		}
		defer cache.Close()

		n, err := cache.Clear()
		if err != nil {
			return err
		}

		output.PrintSuccess("Removed %d cached previews", n)
		return nil
	},
}

func init() {
	mediaCacheCmd.AddCommand(mediaCacheStatsCmd)
	mediaCacheCmd.AddCommand(mediaCacheClearCmd)
	mediaCmd.AddCommand(mediaCacheCmd)
}
