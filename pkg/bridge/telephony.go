package bridge

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
)

// Media stream events exchanged with the telephony provider.
const (
	eventConnected = "connected"
	eventStart     = "start"
	eventMedia     = "media"
	eventMark      = "mark"
	eventStop      = "stop"
	eventClear     = "clear"
)

// MediaConn is the subset of a websocket connection the bridge needs.
// Both the server-side and client-side websocket connections satisfy it.
type MediaConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const textMessage = 1 // websocket text frame

// streamFrame is a telephony media stream message. Only the fields for
// the active event are populated.
type streamFrame struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Start     *startFrame   `json:"start,omitempty"`
	Media     *mediaFrame   `json:"media,omitempty"`
	Mark      *markFrame    `json:"mark,omitempty"`
	Stop      *stopFrame    `json:"stop,omitempty"`
}

type startFrame struct {
	StreamSID    string            `json:"streamSid"`
	AccountSID   string            `json:"accountSid"`
	CallSID      string            `json:"callSid"`
	Tracks       []string          `json:"tracks"`
	MediaFormat  mediaFormat       `json:"mediaFormat"`
	CustomParams map[string]string `json:"customParameters"`
}

type mediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type mediaFrame struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type markFrame struct {
	Name string `json:"name"`
}

type stopFrame struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

// telephonyLeg wraps the caller-side websocket with serialized writes.
// The provider interleaves media, mark and clear frames on one
// connection, so every outbound write takes the mutex.
type telephonyLeg struct {
	conn MediaConn

	writeMu sync.Mutex
}

func newTelephonyLeg(conn MediaConn) *telephonyLeg {
	return &telephonyLeg{conn: conn}
}

// readFrame blocks for the next inbound frame. Frames that fail to
// parse are returned as an error so the caller can decide whether the
// stream is still usable.
func (l *telephonyLeg) readFrame() (*streamFrame, error) {
	_, data, err := l.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var frame streamFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}
	return &frame, nil
}

// sendMedia writes one audio frame to the caller, base64 encoded per
// the media stream protocol.
func (l *telephonyLeg) sendMedia(streamSID string, audio []byte) error {
	frame := streamFrame{
		Event:     eventMedia,
		StreamSID: streamSID,
		Media: &mediaFrame{
			Payload: base64.StdEncoding.EncodeToString(audio),
		},
	}
	return l.writeFrame(&frame)
}

// sendClear tells the provider to drop any audio it has buffered but
// not yet played to the caller. Sent on barge-in.
func (l *telephonyLeg) sendClear(streamSID string) error {
	return l.writeFrame(&streamFrame{
		Event:     eventClear,
		StreamSID: streamSID,
	})
}

// sendMark places a named marker after the audio written so far.
func (l *telephonyLeg) sendMark(streamSID, name string) error {
	return l.writeFrame(&streamFrame{
		Event:     eventMark,
		StreamSID: streamSID,
		Mark:      &markFrame{Name: name},
	})
}

func (l *telephonyLeg) writeFrame(frame *streamFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.conn.WriteMessage(textMessage, data)
}

// decodeMediaPayload recovers the raw audio bytes from a media frame.
func decodeMediaPayload(m *mediaFrame) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("media frame missing payload")
	}
	audio, err := base64.StdEncoding.DecodeString(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode media payload: %w", err)
	}
	return audio, nil
}
