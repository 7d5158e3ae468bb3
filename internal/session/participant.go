package session

// Participant is the client-side view of one room member, including self.
// Snapshots handed to observers are value copies; mutating them has no
// effect on session state.
type Participant struct {
	PeerID     string
	Username   string
	IsSpeaking bool
	IsMuted    bool
	IsSelf     bool
}

// addParticipant inserts a participant, keeping insertion order for stable
// rendering. Callers hold s.mu.
func (s *Session) addParticipant(p *Participant) {
	if _, exists := s.participants[p.PeerID]; exists {
		return
	}
	s.participants[p.PeerID] = p
	s.order = append(s.order, p.PeerID)
	if len(s.participants) > s.peak {
		s.peak = len(s.participants)
	}
}

// removeParticipant drops a participant. Callers hold s.mu.
func (s *Session) removeParticipant(peerID string) {
	if _, exists := s.participants[peerID]; !exists {
		return
	}
	delete(s.participants, peerID)
	for i, id := range s.order {
		if id == peerID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// snapshotLocked copies the participant list in insertion order. Callers
// hold s.mu.
func (s *Session) snapshotLocked() []Participant {
	out := make([]Participant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.participants[id])
	}
	return out
}

// Participants returns the current participant snapshot.
func (s *Session) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}
