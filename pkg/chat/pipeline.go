package chat

import (
	"time"

	"baatcheet/pkg/logger"
	"baatcheet/pkg/metrics"
	"baatcheet/pkg/models"
	"baatcheet/pkg/validation"
)

// Sender delivers events to live connections. A user target reaches every
// connection bound to that identity; a conn target reaches exactly one.
type Sender interface {
	ToUser(userID, event string, data any)
	ToConn(connID, event string, data any)
}

// SubmitInput is an outbound message intent.
type SubmitInput struct {
	To            string              `json:"to"`
	Text          string              `json:"text,omitempty"`
	VoiceURL      string              `json:"voiceUrl,omitempty"`
	VoiceDuration float64             `json:"voiceDuration,omitempty"`
	ReplyTo       string              `json:"replyTo,omitempty"`
	Attachments   []models.Attachment `json:"attachments,omitempty"`
}

// Pipeline accepts message intents, persists them and hands them to
// fan-out. Persistence failure means no delivery, ever; a lost lastMessage
// pointer update is only logged, because the message itself is already
// durable and re-firing the broadcast would duplicate delivery.
type Pipeline struct {
	resolver *Resolver
	msgs     MessageStore
	convs    ConversationStore
	users    UserLookup
	sender   Sender
}

// NewPipeline wires the delivery pipeline.
func NewPipeline(resolver *Resolver, msgs MessageStore, convs ConversationStore, users UserLookup, sender Sender) *Pipeline {
	return &Pipeline{resolver: resolver, msgs: msgs, convs: convs, users: users, sender: sender}
}

// Submit validates, resolves the conversation, snapshots the optional reply
// reference and persists the message with deliveredAt set. It performs no
// live delivery; callers on the live path follow up with Deliver.
func (p *Pipeline) Submit(from models.User, in SubmitInput) (*models.Message, *models.Conversation, error) {
	m := models.Message{
		From:          from.ID,
		To:            in.To,
		Text:          in.Text,
		VoiceURL:      in.VoiceURL,
		VoiceDuration: in.VoiceDuration,
		Attachments:   in.Attachments,
	}
	if err := validation.ValidateSubmit(in.To, m); err != nil {
		return nil, nil, err
	}

	conv, err := p.resolver.Resolve(from.ID, in.To)
	if err != nil {
		return nil, nil, err
	}
	m.Conversation = conv.ID

	if in.ReplyTo != "" {
		m.ReplyTo = p.replySnapshot(in.ReplyTo)
	}

	now := time.Now().UTC().UnixNano()
	m.DeliveredAt = now
	m.CreatedTS = now
	if err := p.msgs.SaveMessage(&m); err != nil {
		logger.Error("message_persist_failed", "from", from.ID, "to", in.To, "error", err)
		return nil, nil, err
	}
	metrics.MessagesDelivered.Inc()

	if err := p.convs.UpdateLastMessage(conv.ID, m.ID, now); err != nil {
		// summary pointer is eventually consistent; the message is durable
		logger.Warn("last_message_update_failed", "conv", conv.ID, "msg", m.ID, "error", err)
	}
	logger.Info("message_submitted", "conv", conv.ID, "msg", m.ID, "from", from.ID, "to", in.To)
	return &m, conv, nil
}

// Deliver fans the persisted message out: message:new to every active
// connection of the recipient, message:sent to the originating connection
// only. The sender's other devices get neither; that asymmetry is the
// synchronization contract multi-device clients rely on.
func (p *Pipeline) Deliver(m *models.Message, originConnID string) {
	if p.sender == nil {
		return
	}
	p.sender.ToUser(m.To, "message:new", models.MessageEvent{Message: m})
	if originConnID != "" {
		p.sender.ToConn(originConnID, "message:sent", models.MessageEvent{Message: m})
	}
}

// replySnapshot copies display fields of the replied-to message. A missing
// original is not an error; the message simply goes out without a reply
// reference. The snapshot is deliberately not a live reference.
func (p *Pipeline) replySnapshot(replyTo string) *models.ReplyRef {
	orig, err := p.msgs.GetMessage(replyTo)
	if err != nil {
		logger.Debug("reply_lookup_failed", "msg", replyTo, "error", err)
		return nil
	}
	ref := &models.ReplyRef{
		MessageID: orig.ID,
		Text:      orig.Text,
		VoiceURL:  orig.VoiceURL,
		From:      orig.From,
	}
	if u, err := p.users.FindUser(orig.From); err == nil {
		ref.FromName = u.Name
	}
	return ref
}
