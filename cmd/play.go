package cmd

import (
	"fmt"

	"github.com/audiolibrelab/trackdeck/internal/play"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Audition a saved take",
	Long: `Plays a saved audio file through an installed command line player.
With no argument, plays the most recent file in the save folder.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		player := play.New(cfg.SaveFolder)

		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			latest, err := player.Latest()
			if err != nil {
				return err
			}
			path = latest
		}

		fmt.Printf("Playing: %s\n", path)
		return player.Play(path)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
