package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/TheCodeDaniel/voiceSync/internal/ui"
	"github.com/TheCodeDaniel/voiceSync/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "voicesync",
	Short:   "Terminal-based voice chat over WebRTC",
	Long: `VoiceSync is a command-line voice chat tool. Audio flows directly
between peers over WebRTC; a lightweight signaling server only brokers the
rendezvous. Create a room, share the three-block key, talk.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
