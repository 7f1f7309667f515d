package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/roadsight/helmetwatch/internal/log"
)

// streamDialTimeout bounds the websocket handshake.
const streamDialTimeout = 10 * time.Second

// Stream is a remote frame source: a websocket connection delivering
// binary JPEG frames (one message per frame). CurrentFrame returns the
// most recently received frame; frames that arrive while nobody is
// sampling simply replace the previous one.
type Stream struct {
	url  string
	conn *websocket.Conn

	mu       sync.RWMutex
	latest   []byte
	readErr  error
	released bool

	done chan struct{}
}

// DialStream connects to a remote frame feed. It blocks until the
// first frame arrives so that acquisition failures surface at dial
// time, and closes the connection on every failure path.
func DialStream(url string) (*Stream, error) {
	dialer := websocket.Dialer{HandshakeTimeout: streamDialTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrDeviceUnavailable, url, err)
	}

	s := &Stream{
		url:  url,
		conn: conn,
		done: make(chan struct{}),
	}

	// First frame before we declare the source acquired.
	conn.SetReadDeadline(time.Now().Add(streamDialTimeout))
	mt, data, err := conn.ReadMessage()
	conn.SetReadDeadline(time.Time{})
	if err != nil || mt != websocket.BinaryMessage {
		conn.Close()
		return nil, fmt.Errorf("%w: no frames from %s", ErrDeviceUnavailable, url)
	}
	s.latest = data

	go s.readLoop()
	return s, nil
}

// readLoop keeps the latest frame current until the connection closes.
func (s *Stream) readLoop() {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if !s.released {
				s.readErr = fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, s.url, err)
				log.Warn("stream source disconnected", "url", s.url, "err", err)
			}
			s.mu.Unlock()
			close(s.done)
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		s.mu.Lock()
		s.latest = data
		s.mu.Unlock()
	}
}

// Kind implements Source.
func (s *Stream) Kind() Kind { return KindStream }

// CurrentFrame returns the most recently received frame.
func (s *Stream) CurrentFrame() (Frame, error) {
	s.mu.RLock()
	data, readErr, released := s.latest, s.readErr, s.released
	s.mu.RUnlock()

	if released {
		return Frame{}, ErrReleased
	}
	if readErr != nil {
		return Frame{}, readErr
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if err == nil {
			mat.Close()
		}
		return Frame{}, fmt.Errorf("%w: undecodable frame from %s", ErrDeviceUnavailable, s.url)
	}
	defer mat.Close()

	return Frame{
		Data:      data,
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Timestamp: time.Now(),
	}, nil
}

// Release closes the connection and waits for the read loop to exit.
// Idempotent.
func (s *Stream) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	s.mu.Unlock()

	err := s.conn.Close()
	<-s.done
	return err
}
