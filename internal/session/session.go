// Package session is the client-side call coordinator. It owns one
// signaling transport, one peer engine and one audio adapter, and turns the
// wire protocol into observable participant state.
package session

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/TheCodeDaniel/voiceSync/internal/audio"
	"github.com/TheCodeDaniel/voiceSync/internal/errs"
	"github.com/TheCodeDaniel/voiceSync/internal/peer"
	"github.com/TheCodeDaniel/voiceSync/internal/protocol"
	"github.com/TheCodeDaniel/voiceSync/internal/roomkey"
)

// leaveDelay gives the leave-room frame time to flush before the socket
// closes.
const leaveDelay = 250 * time.Millisecond

// Transport is the signaling connection as the session sees it.
// *signaling.Transport satisfies it; tests substitute a scripted fake.
type Transport interface {
	Connect() error
	Disconnect()
	Incoming() <-chan *protocol.Message
	Errors() <-chan error

	Login(username string)
	CreateRoom()
	JoinRoom(roomKey string)
	Invite(toUsername string)
	AcceptInvite(roomKey string)
	DeclineInvite(roomKey string)
	LeaveRoom()
	Signal(toPeerID string, data json.RawMessage)
}

// PeerEngine is the per-peer negotiation surface. *peer.Engine satisfies it.
type PeerEngine interface {
	Create(peerID string, initiator bool, localTrack webrtc.TrackLocal) error
	HandleSignal(peerID string, data json.RawMessage)
	SendControl(peerID string, msg peer.ControlMessage) error
	BroadcastControl(msg peer.ControlMessage)
	Destroy(peerID string)
	DestroyAll()
}

// InviteEvent is an inbound call invitation.
type InviteEvent struct {
	FromUsername string
	RoomKey      string
}

// Summary describes a finished call.
type Summary struct {
	RoomKey          string
	Duration         time.Duration
	PeakParticipants int
}

// Config assembles a Session. Audio defaults to the null adapter and
// NewEngine to the pion-backed engine.
type Config struct {
	Username  string
	Transport Transport
	Audio     audio.Adapter
	NewEngine func(cb peer.Callbacks) PeerEngine
}

// Session coordinates one client's presence: login, at most one room, the
// peer connections toward its members and the local audio state.
type Session struct {
	username  string
	transport Transport
	audio     audio.Adapter
	engine    PeerEngine

	requestTimeout time.Duration
	leaveDelay     time.Duration

	mu           sync.Mutex
	selfID       string
	roomKey      string
	lastRoomKey  string
	startedAt    time.Time
	endedAt      time.Time
	participants map[string]*Participant
	order        []string
	peak         int
	pending      map[pendingKey]*pendingRequest

	updates  chan []Participant
	invites  chan InviteEvent
	declines chan string
	levels   chan float64
	errors   chan error
	ended    chan struct{}

	cleanupOnce sync.Once
}

func New(cfg Config) *Session {
	s := &Session{
		username:       cfg.Username,
		transport:      cfg.Transport,
		audio:          cfg.Audio,
		requestTimeout: requestTimeout,
		leaveDelay:     leaveDelay,
		participants:   make(map[string]*Participant),
		pending:        make(map[pendingKey]*pendingRequest),
		updates:        make(chan []Participant, 1),
		invites:        make(chan InviteEvent, 4),
		declines:       make(chan string, 4),
		levels:         make(chan float64, 16),
		errors:         make(chan error, 8),
		ended:          make(chan struct{}),
	}
	if s.audio == nil {
		s.audio = audio.NewNull()
	}

	newEngine := cfg.NewEngine
	if newEngine == nil {
		newEngine = func(cb peer.Callbacks) PeerEngine { return peer.NewEngine(cb) }
	}
	s.engine = newEngine(s.peerCallbacks())
	return s
}

// Connect opens the signaling connection, logs in and starts audio capture.
func (s *Session) Connect() error {
	if err := s.transport.Connect(); err != nil {
		return err
	}
	go s.run()

	msg, err := s.await(protocol.TypeLoginOK, protocol.TypeLoginError, func() {
		s.transport.Login(s.username)
	})
	if err != nil {
		s.transport.Disconnect()
		return err
	}
	if msg.Type == protocol.TypeLoginError {
		s.transport.Disconnect()
		return errs.Signaling(errs.CodeWSError, msg.Message, nil)
	}

	s.mu.Lock()
	s.selfID = msg.PeerID
	s.addParticipant(&Participant{PeerID: msg.PeerID, Username: s.username, IsSelf: true})
	s.mu.Unlock()

	if err := s.audio.Start(); err != nil {
		// Voice out is gone but the call can still be heard.
		s.emitError(errs.Audio(errs.CodeMicOpenFailed, "open capture device", err))
	}
	go s.watchLevels()
	return nil
}

// CreateRoom asks the server for a fresh room and returns its key.
func (s *Session) CreateRoom() (string, error) {
	msg, err := s.await(protocol.TypeRoomCreated, protocol.TypeCreateError, s.transport.CreateRoom)
	if err != nil {
		return "", err
	}
	if msg.Type == protocol.TypeCreateError {
		return "", errs.Room(errs.CodeRoomError, msg.Message)
	}

	s.mu.Lock()
	s.roomKey = msg.RoomKey
	s.lastRoomKey = msg.RoomKey
	s.startedAt = time.Now()
	s.mu.Unlock()
	s.emitUpdate()
	return msg.RoomKey, nil
}

// JoinRoom enters an existing room by key.
func (s *Session) JoinRoom(key string) error {
	key = roomkey.Normalize(key)
	if !roomkey.IsValid(key) {
		return errs.Room(errs.CodeRoomError, "malformed room key: "+key)
	}
	return s.enterRoom(func() { s.transport.JoinRoom(key) })
}

// AcceptInvite enters the room named by a received invitation.
func (s *Session) AcceptInvite(key string) error {
	return s.enterRoom(func() { s.transport.AcceptInvite(roomkey.Normalize(key)) })
}

// DeclineInvite tells the room the invitation was turned down.
func (s *Session) DeclineInvite(key string) {
	s.transport.DeclineInvite(roomkey.Normalize(key))
}

func (s *Session) enterRoom(send func()) error {
	msg, err := s.await(protocol.TypeRoomJoined, protocol.TypeJoinError, send)
	if err != nil {
		return err
	}
	if msg.Type == protocol.TypeJoinError {
		return errs.Room(errs.CodeRoomError, msg.Message)
	}

	s.mu.Lock()
	s.roomKey = msg.RoomKey
	s.lastRoomKey = msg.RoomKey
	s.startedAt = time.Now()
	for _, p := range msg.Peers {
		s.addParticipant(&Participant{PeerID: p.PeerID, Username: p.Username})
	}
	s.mu.Unlock()

	// The joiner opens negotiation toward every existing member; they
	// answer. Exactly one offer per pair, so no glare.
	for _, p := range msg.Peers {
		if err := s.engine.Create(p.PeerID, true, s.audio.LocalTrack()); err != nil {
			s.emitError(err)
		}
	}
	s.emitUpdate()
	return nil
}

// Invite asks the server to forward a call invitation to an online user.
func (s *Session) Invite(toUsername string) error {
	msg, err := s.await(protocol.TypeInviteSent, protocol.TypeInviteError, func() {
		s.transport.Invite(toUsername)
	})
	if err != nil {
		return err
	}
	if msg.Type == protocol.TypeInviteError {
		return errs.Room(errs.CodeRoomError, msg.Message)
	}
	return nil
}

// SetMuted toggles the microphone. Observers hear about it only when the
// state actually changes; peers are told over the control channel.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	self := s.participants[s.selfID]
	changed := self != nil && self.IsMuted != muted
	if changed {
		self.IsMuted = muted
	}
	s.mu.Unlock()
	if !changed {
		return
	}

	s.audio.SetMuted(muted)
	s.engine.BroadcastControl(peer.ControlMessage{Type: peer.ControlTypeMuteState, Muted: muted})
	s.emitUpdate()
}

func (s *Session) Muted() bool {
	return s.audio.Muted()
}

// Leave exits the room and tears the session down. The short delay lets the
// leave-room frame flush before the socket closes; cleanup runs regardless.
func (s *Session) Leave() {
	s.mu.Lock()
	inRoom := s.roomKey != ""
	s.roomKey = ""
	s.mu.Unlock()

	if inRoom {
		s.transport.LeaveRoom()
		time.Sleep(s.leaveDelay)
	}
	s.transport.Disconnect()
	s.cleanup()
}

// run consumes the transport until it closes, routing each frame either to
// a pending request or to the reactive handlers.
func (s *Session) run() {
	for msg := range s.transport.Incoming() {
		if s.resolvePending(msg) {
			continue
		}
		s.handleEvent(msg)
	}
	s.transportClosed()
}

func (s *Session) handleEvent(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeConnected:
		s.mu.Lock()
		s.selfID = msg.PeerID
		s.mu.Unlock()

	case protocol.TypePeerJoined:
		s.mu.Lock()
		s.addParticipant(&Participant{PeerID: msg.PeerID, Username: msg.Username})
		s.mu.Unlock()
		if err := s.engine.Create(msg.PeerID, false, s.audio.LocalTrack()); err != nil {
			s.emitError(err)
		}
		s.emitUpdate()

	case protocol.TypePeerLeft:
		s.mu.Lock()
		s.removeParticipant(msg.PeerID)
		s.mu.Unlock()
		s.engine.Destroy(msg.PeerID)
		s.audio.RemoveRemote(msg.PeerID)
		s.emitUpdate()

	case protocol.TypeSignal:
		s.engine.HandleSignal(msg.FromPeerID, msg.Data)

	case protocol.TypeInvite:
		select {
		case s.invites <- InviteEvent{FromUsername: msg.FromUsername, RoomKey: msg.RoomKey}:
		default:
			slog.Debug("session: invite dropped, observer not draining")
		}

	case protocol.TypeInviteDeclined:
		select {
		case s.declines <- msg.Username:
		default:
		}

	case protocol.TypeLeftRoom:
		s.cleanup()

	default:
		slog.Debug("session: unhandled frame", "type", msg.Type)
	}
}

// transportClosed runs when the incoming stream ends. A close during an
// active call is fatal to that call.
func (s *Session) transportClosed() {
	var cause error
	select {
	case cause = <-s.transport.Errors():
	default:
	}

	s.mu.Lock()
	inRoom := s.roomKey != ""
	s.mu.Unlock()

	if inRoom {
		if cause == nil {
			cause = errs.Signaling(errs.CodeConnLost, "signaling connection closed during call", nil)
		}
		s.emitError(cause)
	}
	s.cleanup()
}

// cleanup releases everything exactly once: peers, audio, participants.
// Closing ended also aborts any await still blocked.
func (s *Session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.engine.DestroyAll()
		if err := s.audio.Close(); err != nil {
			slog.Debug("session: audio close", "err", err)
		}

		s.mu.Lock()
		s.roomKey = ""
		s.participants = make(map[string]*Participant)
		s.order = nil
		s.endedAt = time.Now()
		s.mu.Unlock()

		close(s.ended)
	})
}

// watchLevels meters the local microphone and flips the speaking bit on the
// self participant. Updates go out only when the bit changes.
func (s *Session) watchLevels() {
	for batch := range s.audio.Samples() {
		level := audio.Level(batch)
		s.setSelfSpeaking(!s.audio.Muted() && level > audio.SpeakingThreshold)

		select {
		case s.levels <- level:
		default:
		}
	}
}

func (s *Session) setSelfSpeaking(speaking bool) {
	s.mu.Lock()
	self := s.participants[s.selfID]
	changed := self != nil && self.IsSpeaking != speaking
	if changed {
		self.IsSpeaking = speaking
	}
	s.mu.Unlock()
	if changed {
		s.emitUpdate()
	}
}

func (s *Session) peerCallbacks() peer.Callbacks {
	return peer.Callbacks{
		OnSignal: func(peerID string, data json.RawMessage) {
			s.transport.Signal(peerID, data)
		},
		OnTrack: func(peerID string, track *webrtc.TrackRemote) {
			s.audio.AddRemote(peerID, track)
		},
		OnConnected: s.onPeerConnected,
		OnDisconnected: func(peerID string) {
			slog.Debug("session: peer media down", "peer", peerID)
		},
		OnControl: s.onPeerControl,
		OnError: func(peerID string, err error) {
			s.emitError(err)
		},
	}
}

func (s *Session) onPeerConnected(peerID string) {
	slog.Info("session: peer media up", "peer", peerID)

	// A peer arriving mid-mute has to be caught up. The control channel
	// opens just after the connection, so retry briefly.
	if !s.audio.Muted() {
		return
	}
	go func() {
		for i := 0; i < 10; i++ {
			err := s.engine.SendControl(peerID, peer.ControlMessage{
				Type:  peer.ControlTypeMuteState,
				Muted: true,
			})
			if err == nil {
				return
			}
			time.Sleep(200 * time.Millisecond)
		}
	}()
}

func (s *Session) onPeerControl(peerID string, msg peer.ControlMessage) {
	if msg.Type != peer.ControlTypeMuteState {
		return
	}
	s.mu.Lock()
	p := s.participants[peerID]
	changed := p != nil && p.IsMuted != msg.Muted
	if changed {
		p.IsMuted = msg.Muted
	}
	s.mu.Unlock()
	if changed {
		s.emitUpdate()
	}
}

// emitUpdate publishes a participant snapshot, latest wins: a slow observer
// only ever misses stale state.
func (s *Session) emitUpdate() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for {
		select {
		case s.updates <- snap:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

func (s *Session) emitError(err error) {
	slog.Warn("session: error", "err", err)
	select {
	case s.errors <- err:
	default:
	}
}

// Updates streams participant snapshots. Only the most recent is retained.
func (s *Session) Updates() <-chan []Participant { return s.updates }

// Invites streams inbound call invitations.
func (s *Session) Invites() <-chan InviteEvent { return s.invites }

// Declines streams usernames that turned an invitation down.
func (s *Session) Declines() <-chan string { return s.declines }

// Levels streams the local microphone RMS, for metering.
func (s *Session) Levels() <-chan float64 { return s.levels }

// Errors streams non-fatal and fatal session errors.
func (s *Session) Errors() <-chan error { return s.errors }

// Ended closes when the session is fully torn down.
func (s *Session) Ended() <-chan struct{} { return s.ended }

func (s *Session) Username() string { return s.username }

func (s *Session) SelfID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfID
}

func (s *Session) RoomKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomKey
}

// Summary reports the finished (or running) call for the exit screen.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var d time.Duration
	if !s.startedAt.IsZero() {
		end := s.endedAt
		if end.IsZero() {
			end = time.Now()
		}
		d = end.Sub(s.startedAt)
	}
	return Summary{RoomKey: s.lastRoomKey, Duration: d, PeakParticipants: s.peak}
}
