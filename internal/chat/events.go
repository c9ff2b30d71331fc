package chat

import (
	"encoding/json"

	"github.com/iniduniaku/anon/internal/geo"
)

// Envelope is the structure of every websocket frame, in both directions:
// an event name plus an optional JSON payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to server events.
const (
	EventJoin             = "join"
	EventFindPartner      = "find-partner"
	EventStopChat         = "stop-chat"
	EventSendMessage      = "send-message"
	EventSendMediaMessage = "send-media-message"
	EventSendVoiceMessage = "send-voice-message"
	EventTypingStart      = "typing-start"
	EventTypingStop       = "typing-stop"

	EventInitiateVoiceCall = "initiate-voice-call"
	EventInitiateVideoCall = "initiate-video-call"
	EventAcceptVoiceCall   = "accept-voice-call"
	EventAcceptVideoCall   = "accept-video-call"
	EventRejectVoiceCall   = "reject-voice-call"
	EventRejectVideoCall   = "reject-video-call"
	EventEndVoiceCall      = "end-voice-call"
	EventEndVideoCall      = "end-video-call"

	// WebRTC signaling payloads are relayed verbatim, never parsed.
	EventWebRTCOffer        = "webrtc-offer"
	EventWebRTCAnswer       = "webrtc-answer"
	EventWebRTCICECandidate = "webrtc-ice-candidate"
)

// Server to client events.
const (
	EventJoinedSystem        = "joined-system"
	EventSearchingPartner    = "searching-partner"
	EventPartnerFound        = "partner-found"
	EventPartnerDisconnected = "partner-disconnected"
	EventChatStopped         = "chat-stopped"
	EventNewMessage          = "new-message"
	EventPartnerTypingStart  = "partner-typing-start"
	EventPartnerTypingStop   = "partner-typing-stop"

	EventIncomingVoiceCall = "incoming-voice-call"
	EventIncomingVideoCall = "incoming-video-call"
	EventVoiceCallAccepted = "voice-call-accepted"
	EventVideoCallAccepted = "video-call-accepted"
	EventVoiceCallRejected = "voice-call-rejected"
	EventVideoCallRejected = "video-call-rejected"
	EventVoiceCallEnded    = "voice-call-ended"
	EventVideoCallEnded    = "video-call-ended"

	EventError = "error"
)

// JoinPayload is the body of a "join" event.
type JoinPayload struct {
	Nickname string `json:"nickname"`
}

// TextMessagePayload is the body of a "send-message" event.
type TextMessagePayload struct {
	Text string `json:"text"`
}

// MediaMessagePayload is the body of a "send-media-message" event. All fields
// come from the upload pipeline; the server embeds them in the message as-is.
type MediaMessagePayload struct {
	MediaType    string `json:"mediaType"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Filename     string `json:"filename,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Mimetype     string `json:"mimetype,omitempty"`
}

// VoiceMessagePayload is the body of a "send-voice-message" event.
type VoiceMessagePayload struct {
	AudioURL string  `json:"audioUrl"`
	Duration float64 `json:"duration,omitempty"`
	Size     int64   `json:"size,omitempty"`
}

// CallTargetPayload is the body of the accept-*/reject-* call events, naming
// the connection that initiated the call.
type CallTargetPayload struct {
	CallerID string `json:"callerId"`
}

// JoinedPayload acknowledges a "join", echoing the server-assigned connection
// id and whatever location could be resolved.
type JoinedPayload struct {
	ID       string        `json:"id"`
	Location *geo.Location `json:"location,omitempty"`
}

// PartnerInfo describes the matched partner to one side of a new room.
type PartnerInfo struct {
	Nickname   string `json:"nickname"`
	Country    string `json:"country,omitempty"`
	Region     string `json:"region,omitempty"`
	City       string `json:"city,omitempty"`
	DistanceKm *int   `json:"distanceKm,omitempty"`
}

// PartnerFoundPayload is sent to both members when a room is created.
type PartnerFoundPayload struct {
	RoomID    string      `json:"roomId"`
	PartnerID string      `json:"partnerId"`
	Partner   PartnerInfo `json:"partner"`
}

// NewMessagePayload wraps a room message for broadcast.
type NewMessagePayload struct {
	Message *Message `json:"message"`
}

// IncomingCallPayload announces a voice or video call to the partner.
type IncomingCallPayload struct {
	CallerID       string `json:"callerId"`
	CallerNickname string `json:"callerNickname"`
}

// CallAcceptedPayload is forwarded to the caller on accept.
type CallAcceptedPayload struct {
	AccepterID string `json:"accepterId"`
}

// CallRejectedPayload is forwarded to the caller on reject.
type CallRejectedPayload struct {
	RejecterID string `json:"rejecterId"`
}

// SignalPayload wraps a relayed WebRTC payload with the id of its sender.
type SignalPayload struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload is the body of an "error" event, delivered only to the
// connection that triggered it.
type ErrorPayload struct {
	Message string `json:"message"`
}

// newEvent builds an outbound envelope. The payload structs above are all
// marshal-safe, so an encoding failure is a programming error and yields an
// empty payload rather than a dropped event.
func newEvent(typ string, payload any) *Envelope {
	if payload == nil {
		return &Envelope{Type: typ}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return &Envelope{Type: typ}
	}
	return &Envelope{Type: typ, Payload: data}
}

func errorEvent(msg string) *Envelope {
	return newEvent(EventError, ErrorPayload{Message: msg})
}
