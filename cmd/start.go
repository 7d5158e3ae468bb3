package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheCodeDaniel/voiceSync/internal/ui"
)

var flagInvite string

var startCmd = &cobra.Command{
	Use:     "start",
	Aliases: []string{"create"},
	Short:   "Create a voice room and wait for others",
	Long: `Create a new voice room on the signaling server. The room key is
printed so you can share it; others join with "voicesync join <key>".

Examples:
  voicesync start
  voicesync start -u alice
  voicesync start -s voice.example.com --invite bob`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRoom()
	},
}

func init() {
	clientFlags(startCmd)
	startCmd.Flags().StringVarP(&flagInvite, "invite", "i", "", "invite an online user into the room")
	rootCmd.AddCommand(startCmd)
}

func startRoom() error {
	sess, _, err := newSession()
	if err != nil {
		return err
	}

	key, err := sess.CreateRoom()
	if err != nil {
		sess.Leave()
		return err
	}

	ui.NewRoomInfo(key).Render()
	fmt.Println()

	if flagInvite != "" {
		if err := sess.Invite(flagInvite); err != nil {
			ui.PrintWarning(err.Error())
		} else {
			ui.PrintInfof("Invitation sent to %s", flagInvite)
		}
	}

	return runCall(sess, key)
}
