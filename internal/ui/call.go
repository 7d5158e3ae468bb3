package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/TheCodeDaniel/voiceSync/internal/errs"
	"github.com/TheCodeDaniel/voiceSync/internal/session"
)

// CallModel is the Bubble Tea model for the in-call view: the participant
// roster with speaking and mute indicators, a mic level meter and the key
// bindings for mute and leave.
type CallModel struct {
	sess    *session.Session
	roomKey string

	participants []session.Participant
	level        float64
	status       string
	startTime    time.Time

	spinner  spinner.Model
	quitting bool
	err      error
}

type (
	participantsMsg []session.Participant
	levelMsg        float64
	inviteMsg       session.InviteEvent
	declineMsg      string
	sessionErrMsg   struct{ err error }
	endedMsg        struct{}
	tickMsg         time.Time
)

func NewCallModel(sess *session.Session, roomKey string) *CallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &CallModel{
		sess:         sess,
		roomKey:      roomKey,
		participants: sess.Participants(),
		spinner:      s,
		startTime:    time.Now(),
	}
}

// Err reports the fatal error that ended the call, if any.
func (m *CallModel) Err() error {
	return m.err
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitUpdates(),
		m.waitLevels(),
		m.waitInvites(),
		m.waitDeclines(),
		m.waitErrors(),
		m.waitEnded(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *CallModel) waitUpdates() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.sess.Updates()
		if !ok {
			return nil
		}
		return participantsMsg(snap)
	}
}

func (m *CallModel) waitLevels() tea.Cmd {
	return func() tea.Msg {
		level, ok := <-m.sess.Levels()
		if !ok {
			return nil
		}
		return levelMsg(level)
	}
}

func (m *CallModel) waitInvites() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.sess.Invites()
		if !ok {
			return nil
		}
		return inviteMsg(ev)
	}
}

func (m *CallModel) waitDeclines() tea.Cmd {
	return func() tea.Msg {
		name, ok := <-m.sess.Declines()
		if !ok {
			return nil
		}
		return declineMsg(name)
	}
}

func (m *CallModel) waitErrors() tea.Cmd {
	return func() tea.Msg {
		err, ok := <-m.sess.Errors()
		if !ok {
			return nil
		}
		return sessionErrMsg{err: err}
	}
}

func (m *CallModel) waitEnded() tea.Cmd {
	return func() tea.Msg {
		<-m.sess.Ended()
		return endedMsg{}
	}
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "m":
			m.sess.SetMuted(!m.sess.Muted())
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		if !m.quitting {
			cmds = append(cmds, tickCmd())
		}

	case participantsMsg:
		m.participants = msg
		cmds = append(cmds, m.waitUpdates())

	case levelMsg:
		m.level = float64(msg)
		cmds = append(cmds, m.waitLevels())

	case inviteMsg:
		m.status = fmt.Sprintf("%s %s invited you to room %s", IconInvite, msg.FromUsername, msg.RoomKey)
		cmds = append(cmds, m.waitInvites())

	case declineMsg:
		m.status = fmt.Sprintf("%s %s declined the invitation", IconWarning, string(msg))
		cmds = append(cmds, m.waitDeclines())

	case sessionErrMsg:
		if errs.HasCode(msg.err, errs.CodeConnLost) {
			m.err = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.status = FormatError(msg.err)
		cmds = append(cmds, m.waitErrors())

	case endedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, tea.Batch(cmds...)
}

func (m *CallModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := HeaderStyle.Render(fmt.Sprintf("%s VoiceSync - Room %s", IconMic, m.roomKey))
	b.WriteString(header + "\n")

	elapsed := time.Since(m.startTime).Round(time.Second)
	b.WriteString(MutedStyle.Render(fmt.Sprintf("%s %s · %d in call", IconTime, elapsed, len(m.participants))) + "\n\n")

	for _, p := range m.participants {
		b.WriteString("  " + participantLine(p) + "\n")
	}
	if len(m.participants) < 2 {
		b.WriteString("\n" + fmt.Sprintf("%s %s", m.spinner.View(), MutedStyle.Render("Waiting for others to join...")) + "\n")
	}

	b.WriteString("\n  " + MutedStyle.Render("mic ") + levelMeter(m.level) + "\n")

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}

	b.WriteString(FooterStyle.Render("m toggle mute · q leave"))

	return ContainerStyle.Render(b.String())
}

func participantLine(p session.Participant) string {
	icon := IconPeer
	style := MutedStyle
	switch {
	case p.IsMuted:
		icon = IconMutedMic
	case p.IsSpeaking:
		icon = IconSpeaking
		style = SpeakingStyle
	}

	name := p.Username
	if p.IsSelf {
		name += " (you)"
	}
	return fmt.Sprintf("%s %s", icon, style.Render(name))
}

// levelMeter renders the local mic RMS as a small bar.
func levelMeter(level float64) string {
	const width = 20
	filled := int(level * 5 * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return SpinnerStyle.Render(bar)
}
