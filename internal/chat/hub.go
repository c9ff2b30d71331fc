// Package chat implements the matchmaking and session-relay core: it queues
// users seeking a partner, pairs them into exclusive two-party rooms, relays
// messages and opaque call signaling between the two occupants, and tears the
// session down when either side leaves.
package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iniduniaku/anon/internal/geo"
)

// locateTimeout bounds the geolocation lookup performed during join.
const locateTimeout = 5 * time.Second

// Locator resolves a client network address to a coarse location. A nil
// location with a nil error means "unknown", which is always acceptable.
type Locator interface {
	Locate(ctx context.Context, addr string) (*geo.Location, error)
}

// inbound is one client event queued for the hub, with the location already
// resolved (join only) so the hub loop never touches the network.
type inbound struct {
	client   *Client
	env      *Envelope
	location *geo.Location
}

// Stats is a snapshot of the hub's state.
type Stats struct {
	Connections int `json:"connections"`
	Waiting     int `json:"waiting"`
	Rooms       int `json:"rooms"`
}

// Hub coordinates every session. All state below the channels is owned by
// the single goroutine running Run; events from all connections are handled
// one at a time, so pairing is atomic and no locks are needed.
type Hub struct {
	// Register is the channel for newly upgraded connections.
	Register chan *Client

	// Unregister is the channel for closed connections.
	Unregister chan *Client

	// Inbound carries client events into the hub loop.
	Inbound chan *inbound

	statsReq chan chan Stats

	registry *Registry
	queue    *WaitingQueue
	rooms    *RoomDirectory

	// clients maps connection ids to their live connections; this is the
	// relay the hub delivers through.
	clients map[string]*Client

	locator Locator
	logger  *slog.Logger
}

// NewHub creates a hub with fresh state. locator may be nil to disable
// geolocation. Call Run to start processing events.
func NewHub(locator Locator, logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inbound, 64),
		statsReq:   make(chan chan Stats),
		registry:   NewRegistry(),
		queue:      NewWaitingQueue(),
		rooms:      NewRoomDirectory(),
		clients:    make(map[string]*Client),
		locator:    locator,
		logger:     logger,
	}
}

// Run is the hub's event loop. It owns the registry, waiting queue and room
// directory until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.Register:
			h.clients[c.ID] = c
			h.logger.Debug("connection opened", "conn", c.ID)

		case c := <-h.Unregister:
			h.handleDisconnect(c)

		case in := <-h.Inbound:
			h.handleInbound(in)

		case reply := <-h.statsReq:
			reply <- Stats{
				Connections: len(h.clients),
				Waiting:     h.queue.Len(),
				Rooms:       h.rooms.Len(),
			}
		}
	}
}

// Stats asks the hub loop for a snapshot of its state.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)

	select {
	case h.statsReq <- reply:
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// send delivers an event to one connection. Delivery is best-effort: a
// consumer that has fallen a full buffer behind loses the event rather than
// stalling the hub loop.
func (h *Hub) send(c *Client, env *Envelope) {
	if c == nil {
		return
	}
	select {
	case c.send <- env:
	default:
		h.logger.Warn("dropping event for slow consumer", "conn", c.ID, "event", env.Type)
	}
}

// sendTo delivers an event to a connection id, if it is still live.
func (h *Hub) sendTo(connID string, env *Envelope) {
	h.send(h.clients[connID], env)
}

func (h *Hub) handleInbound(in *inbound) {
	c := in.client

	switch in.env.Type {
	case EventJoin:
		h.handleJoin(c, in)
	case EventFindPartner:
		h.handleFindPartner(c)
	case EventStopChat:
		h.handleStopChat(c)
	case EventSendMessage, EventSendMediaMessage, EventSendVoiceMessage:
		h.handleSendMessage(c, in.env)
	case EventTypingStart, EventTypingStop:
		h.handleTyping(c, in.env.Type)
	case EventInitiateVoiceCall, EventInitiateVideoCall:
		h.handleInitiateCall(c, in.env.Type)
	case EventAcceptVoiceCall, EventAcceptVideoCall, EventRejectVoiceCall, EventRejectVideoCall:
		h.handleCallAnswer(c, in.env)
	case EventEndVoiceCall, EventEndVideoCall:
		h.handleEndCall(c, in.env.Type)
	case EventWebRTCOffer, EventWebRTCAnswer, EventWebRTCICECandidate:
		h.handleSignal(c, in.env)
	default:
		h.send(c, errorEvent("unknown event: "+in.env.Type))
	}
}

// handleJoin registers (or re-registers) the connection's profile and acks
// with the assigned id and resolved location.
func (h *Hub) handleJoin(c *Client, in *inbound) {
	var p JoinPayload
	if len(in.env.Payload) > 0 {
		if err := json.Unmarshal(in.env.Payload, &p); err != nil {
			h.send(c, errorEvent("malformed join payload"))
			return
		}
	}

	profile := h.registry.Register(c.ID, p.Nickname, in.location)
	h.logger.Info("user joined", "conn", c.ID, "nickname", profile.Nickname)

	h.send(c, newEvent(EventJoinedSystem, JoinedPayload{
		ID:       profile.ID,
		Location: profile.Location,
	}))
}

// handleFindPartner either pairs the requester with the oldest waiting user
// or enqueues them. Running inside the hub loop makes dequeue-plus-create
// atomic with respect to every other find-partner.
func (h *Hub) handleFindPartner(c *Client) {
	profile, ok := h.registry.Lookup(c.ID)
	if !ok {
		h.send(c, errorEvent("join first"))
		return
	}
	if _, ok := h.rooms.ByMember(c.ID); ok {
		h.send(c, errorEvent("already in a room"))
		return
	}
	if h.queue.Contains(c.ID) {
		h.send(c, errorEvent("already searching"))
		return
	}

	entry := h.queue.DequeueMatchExcluding(c.ID)
	if entry == nil {
		h.queue.Enqueue(profile)
		h.send(c, newEvent(EventSearchingPartner, nil))
		return
	}

	room := h.rooms.Create(entry.Profile, profile)
	h.logger.Info("partners matched", "room", room.ID,
		"a", entry.Profile.ID, "b", profile.ID)

	h.sendTo(entry.Profile.ID, newEvent(EventPartnerFound, PartnerFoundPayload{
		RoomID:    room.ID,
		PartnerID: profile.ID,
		Partner:   partnerInfo(profile, room.DistanceKm),
	}))
	h.send(c, newEvent(EventPartnerFound, PartnerFoundPayload{
		RoomID:    room.ID,
		PartnerID: entry.Profile.ID,
		Partner:   partnerInfo(entry.Profile, room.DistanceKm),
	}))
}

// partnerInfo flattens a profile into what the other side gets to see.
func partnerInfo(p *Profile, distanceKm *int) PartnerInfo {
	info := PartnerInfo{
		Nickname:   p.Nickname,
		DistanceKm: distanceKm,
	}
	if p.Location != nil {
		info.Country = p.Location.Country
		info.Region = p.Location.Region
		info.City = p.Location.City
	}
	return info
}

// handleStopChat cancels a search or leaves a room. A stop while idle is
// acknowledged as a benign no-op.
func (h *Hub) handleStopChat(c *Client) {
	if h.queue.Remove(c.ID) {
		h.send(c, newEvent(EventChatStopped, nil))
		return
	}

	if room, ok := h.rooms.ByMember(c.ID); ok {
		partner, _ := room.Partner(c.ID)
		h.rooms.Remove(room.ID)
		h.logger.Info("chat stopped", "room", room.ID, "by", c.ID)

		h.send(c, newEvent(EventChatStopped, nil))
		h.sendTo(partner.ID, newEvent(EventPartnerDisconnected, nil))
		return
	}

	h.send(c, newEvent(EventChatStopped, nil))
}

// handleSendMessage appends a message to the sender's room and broadcasts it
// to both members, the sender included, so every client renders from the
// same authoritative stream.
func (h *Hub) handleSendMessage(c *Client, env *Envelope) {
	room, ok := h.rooms.ByMember(c.ID)
	if !ok {
		h.send(c, errorEvent("not in a chat"))
		return
	}

	msg, err := buildMessage(c.ID, env)
	if err != nil {
		h.send(c, errorEvent(err.Error()))
		return
	}

	h.rooms.AppendMessage(room.ID, msg)

	out := newEvent(EventNewMessage, NewMessagePayload{Message: msg})
	h.sendTo(room.Members[0].ID, out)
	h.sendTo(room.Members[1].ID, out)
}

// handleTyping forwards a typing indicator to the partner only.
func (h *Hub) handleTyping(c *Client, typ string) {
	room, ok := h.rooms.ByMember(c.ID)
	if !ok {
		h.send(c, errorEvent("not in a chat"))
		return
	}

	partner, _ := room.Partner(c.ID)
	out := EventPartnerTypingStart
	if typ == EventTypingStop {
		out = EventPartnerTypingStop
	}
	h.sendTo(partner.ID, newEvent(out, nil))
}

// handleInitiateCall announces an incoming voice or video call to the
// partner, tagged with the caller's id and nickname.
func (h *Hub) handleInitiateCall(c *Client, typ string) {
	room, ok := h.rooms.ByMember(c.ID)
	if !ok {
		h.send(c, errorEvent("not in a chat"))
		return
	}

	caller, _ := h.registry.Lookup(c.ID)
	partner, _ := room.Partner(c.ID)

	out := EventIncomingVoiceCall
	if typ == EventInitiateVideoCall {
		out = EventIncomingVideoCall
	}
	h.sendTo(partner.ID, newEvent(out, IncomingCallPayload{
		CallerID:       c.ID,
		CallerNickname: caller.Nickname,
	}))
}

// handleCallAnswer forwards an accept or reject to the named caller, who
// must be the sender's current partner.
func (h *Hub) handleCallAnswer(c *Client, env *Envelope) {
	room, ok := h.rooms.ByMember(c.ID)
	if !ok {
		h.send(c, errorEvent("not in a chat"))
		return
	}

	var target CallTargetPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &target); err != nil {
			h.send(c, errorEvent("malformed call payload"))
			return
		}
	}

	partnerID, _ := h.rooms.Partner(room.ID, c.ID)
	if target.CallerID != partnerID {
		h.send(c, errorEvent("unknown caller"))
		return
	}

	var out *Envelope
	switch env.Type {
	case EventAcceptVoiceCall:
		out = newEvent(EventVoiceCallAccepted, CallAcceptedPayload{AccepterID: c.ID})
	case EventAcceptVideoCall:
		out = newEvent(EventVideoCallAccepted, CallAcceptedPayload{AccepterID: c.ID})
	case EventRejectVoiceCall:
		out = newEvent(EventVoiceCallRejected, CallRejectedPayload{RejecterID: c.ID})
	case EventRejectVideoCall:
		out = newEvent(EventVideoCallRejected, CallRejectedPayload{RejecterID: c.ID})
	}
	h.sendTo(target.CallerID, out)
}

// handleEndCall tells the partner the call is over.
func (h *Hub) handleEndCall(c *Client, typ string) {
	room, ok := h.rooms.ByMember(c.ID)
	if !ok {
		h.send(c, errorEvent("not in a chat"))
		return
	}

	partner, _ := room.Partner(c.ID)
	out := EventVoiceCallEnded
	if typ == EventEndVideoCall {
		out = EventVideoCallEnded
	}
	h.sendTo(partner.ID, newEvent(out, nil))
}

// handleSignal relays an opaque WebRTC payload to the partner, tagged with
// the sender's id. The payload is never parsed or validated here.
func (h *Hub) handleSignal(c *Client, env *Envelope) {
	room, ok := h.rooms.ByMember(c.ID)
	if !ok {
		h.send(c, errorEvent("not in a chat"))
		return
	}

	partner, _ := room.Partner(c.ID)
	h.sendTo(partner.ID, newEvent(env.Type, SignalPayload{
		From:    c.ID,
		Payload: env.Payload,
	}))
}

// handleDisconnect is the universal cleanup path: drop any waiting entry,
// tear down the room (notifying the partner) and forget the profile. It is
// idempotent; a connection that was already cleaned up is skipped entirely,
// so a partner is never notified twice.
func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)

	h.queue.Remove(c.ID)

	if room, ok := h.rooms.ByMember(c.ID); ok {
		partner, _ := room.Partner(c.ID)
		h.rooms.Remove(room.ID)
		h.logger.Info("room closed on disconnect", "room", room.ID, "conn", c.ID)

		h.sendTo(partner.ID, newEvent(EventPartnerDisconnected, nil))
	}

	h.registry.Remove(c.ID)
	close(c.send)
	h.logger.Debug("connection closed", "conn", c.ID)
}

// buildMessage validates and constructs the Message for one of the three
// send events.
func buildMessage(senderID string, env *Envelope) (*Message, error) {
	msg := &Message{
		ID:       uuid.New().String(),
		SenderID: senderID,
		SentAt:   time.Now(),
	}

	switch env.Type {
	case EventSendMessage:
		var p TextMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, errMalformedMessage
		}
		p.Text = strings.TrimSpace(p.Text)
		if p.Text == "" {
			return nil, errEmptyMessage
		}
		msg.Kind = MessageText
		msg.Text = p.Text

	case EventSendMediaMessage:
		var p MediaMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, errMalformedMessage
		}
		if p.URL == "" {
			return nil, errEmptyMessage
		}
		msg.Kind = MessageMedia
		msg.Media = &p

	case EventSendVoiceMessage:
		var p VoiceMessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, errMalformedMessage
		}
		if p.AudioURL == "" {
			return nil, errEmptyMessage
		}
		msg.Kind = MessageVoice
		msg.Voice = &p
	}

	return msg, nil
}
