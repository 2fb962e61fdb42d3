package relay

import "encoding/base64"

// Frame types pushed to subscribers. Audio frames are distinct from
// status and control frames so clients can demux a single socket.
const (
	FrameJoined  = "joined"
	FrameAudio   = "audio"
	FrameStatus  = "status"
	FrameStopped = "stopped"
	FrameError   = "error"
)

// Frame is one server-to-client message on the audio socket. Type
// discriminates the payload; fields a type does not use stay empty and
// are omitted on the wire.
type Frame struct {
	Type       string `json:"type"`
	SessionID  string `json:"sessionId,omitempty"`
	Data       string `json:"data,omitempty"`
	IsPlaying  *bool  `json:"isPlaying,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Format     string `json:"format,omitempty"`
	Message    string `json:"message,omitempty"`
}

// AudioFrame wraps one PCM chunk as a base64 audio frame.
func AudioFrame(chunk []byte) Frame {
	return Frame{Type: FrameAudio, Data: base64.StdEncoding.EncodeToString(chunk)}
}

// StatusFrame reports a playback state change.
func StatusFrame(isPlaying bool) Frame {
	return Frame{Type: FrameStatus, IsPlaying: &isPlaying}
}

// StoppedFrame tells subscribers their session is gone.
func StoppedFrame(sessionID string) Frame {
	return Frame{Type: FrameStopped, SessionID: sessionID}
}

// JoinedFrame is the snapshot sent to a subscriber on join, carrying
// the playback state and the audio format it must decode.
func JoinedFrame(status JoinStatus) Frame {
	isPlaying := status.IsPlaying
	return Frame{
		Type:       FrameJoined,
		SessionID:  status.SessionID,
		IsPlaying:  &isPlaying,
		SampleRate: status.SampleRate,
		Channels:   status.Channels,
		Format:     status.Format,
	}
}

// ErrorFrame reports a failed client request.
func ErrorFrame(message string) Frame {
	return Frame{Type: FrameError, Message: message}
}

// Subscriber is one transport connection attached to a session's audio
// feed. Deliver must not block the caller: implementations buffer
// internally and shed frames when the buffer is full. A Deliver error
// means the subscriber is gone and gets it detached from the session.
type Subscriber interface {
	ID() string
	Deliver(frame Frame) error
}
