package cmd

import (
	"github.com/spf13/cobra"

	"github.com/TheCodeDaniel/voiceSync/internal/roomkey"
	"github.com/TheCodeDaniel/voiceSync/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join <room-key>",
	Aliases: []string{"j"},
	Short:   "Join an existing voice room",
	Long: `Join a voice room by its key. Keys are case-insensitive.

Examples:
  voicesync join ABC-234-XYZ
  voicesync join abc-234-xyz -u bob -s voice.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func init() {
	clientFlags(joinCmd)
	rootCmd.AddCommand(joinCmd)
}

func joinRoom(rawKey string) error {
	key := roomkey.Normalize(rawKey)

	sess, _, err := newSession()
	if err != nil {
		return err
	}

	sp := ui.NewSimpleSpinner("Joining room " + key + "...")
	sp.Start()
	if err := sess.JoinRoom(key); err != nil {
		sp.Error("Could not join room")
		sess.Leave()
		return err
	}
	sp.Success("Joined room " + key)

	return runCall(sess, key)
}
