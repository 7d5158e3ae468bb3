package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/TheCodeDaniel/voiceSync/internal/config"
	"github.com/TheCodeDaniel/voiceSync/internal/session"
	"github.com/TheCodeDaniel/voiceSync/internal/signaling"
	"github.com/TheCodeDaniel/voiceSync/internal/ui"
)

var (
	flagServer   string
	flagUsername string
)

func clientFlags(c *cobra.Command) {
	c.Flags().StringVarP(&flagServer, "server", "s", "", "signaling server address (default $VOICESYNC_SERVER or localhost:3000)")
	c.Flags().StringVarP(&flagUsername, "username", "u", "", "display name (default $VOICESYNC_USERNAME or $USER)")
}

// newSession loads the client config, dials the signaling server and logs in.
func newSession() (*session.Session, *config.Config, error) {
	cfg, err := config.Load(config.Options{Server: flagServer, Username: flagUsername})
	if err != nil {
		return nil, nil, err
	}

	sess := session.New(session.Config{
		Username:  cfg.Username,
		Transport: signaling.NewTransport(cfg.WebSocketURL),
	})

	sp := ui.NewConnectionSpinner("Connecting to " + cfg.Server + "...")
	sp.Start()
	if err := sess.Connect(); err != nil {
		sp.Error("Connection failed")
		return nil, nil, err
	}
	sp.Success("Connected as " + cfg.Username)

	return sess, cfg, nil
}

// runCall drives the in-call view until the user leaves or the call dies,
// then prints the summary. Leave always runs, even when the UI errors out.
func runCall(sess *session.Session, roomKey string) error {
	model := ui.NewCallModel(sess, roomKey)
	p := tea.NewProgram(model)
	_, uiErr := p.Run()

	sess.Leave()

	sum := sess.Summary()
	ui.RenderCallSummary(sum.RoomKey, sum.Duration, sum.PeakParticipants)

	if uiErr != nil {
		return uiErr
	}
	return model.Err()
}
