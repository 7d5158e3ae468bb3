package session

import (
	"time"

	"github.com/TheCodeDaniel/voiceSync/internal/errs"
	"github.com/TheCodeDaniel/voiceSync/internal/protocol"
)

// requestTimeout bounds every request/response exchange with the server.
const requestTimeout = 10 * time.Second

// pendingKey pairs the success and failure frame types of one request.
type pendingKey struct {
	success string
	failure string
}

type pendingRequest struct {
	reply chan *protocol.Message
}

// await invokes send and blocks until the matching success or failure frame
// arrives, the timeout fires, or the session ends. The returned message may
// be the failure frame; callers branch on its Type. At most one request per
// frame pair may be in flight.
func (s *Session) await(success, failure string, send func()) (*protocol.Message, error) {
	key := pendingKey{success: success, failure: failure}
	req := &pendingRequest{reply: make(chan *protocol.Message, 1)}

	s.mu.Lock()
	if _, busy := s.pending[key]; busy {
		s.mu.Unlock()
		return nil, errs.Signaling(errs.CodeWSError, "request already in flight for "+success, nil)
	}
	s.pending[key] = req
	s.mu.Unlock()

	send()

	timer := time.NewTimer(s.requestTimeout)
	defer timer.Stop()

	select {
	case msg := <-req.reply:
		return msg, nil
	case <-timer.C:
		s.dropPending(key, req)
		return nil, errs.Signaling(errs.CodeWSError, "timed out waiting for "+success, nil)
	case <-s.ended:
		s.dropPending(key, req)
		return nil, errs.Signaling(errs.CodeConnLost, "session ended while waiting for "+success, nil)
	}
}

func (s *Session) dropPending(key pendingKey, req *pendingRequest) {
	s.mu.Lock()
	if s.pending[key] == req {
		delete(s.pending, key)
	}
	s.mu.Unlock()
}

// resolvePending hands msg to a waiting request when one matches its type.
// Reports whether the frame was consumed.
func (s *Session) resolvePending(msg *protocol.Message) bool {
	s.mu.Lock()
	var matched *pendingRequest
	for key, req := range s.pending {
		if msg.Type == key.success || msg.Type == key.failure {
			delete(s.pending, key)
			matched = req
			break
		}
	}
	s.mu.Unlock()

	if matched == nil {
		return false
	}
	matched.reply <- msg
	return true
}
