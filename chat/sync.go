// Package chat owns the per-conversation message timeline: remote messages
// fetched from the backend merged with a locally seeded placeholder
// conversation into one ordered view, with authorization-gated deletion.
package chat

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Woondzer/ChatIt/api"
	"github.com/Woondzer/ChatIt/auth"
	"github.com/Woondzer/ChatIt/store"
)

// Message mirrors the backend's message record. Placeholder messages use an
// empty ConversationID and never reach the server.
type Message struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	CreatedAt      string `json:"createdAt"`
}

// Synchronizer reconciles the remote message stream of one conversation
// with the persisted placeholder set. One logical operation at a time; the
// mutex only guards against the delayed companion reply firing mid-update.
type Synchronizer struct {
	client  *api.Client
	session *auth.Session
	store   store.Store
	now     func() time.Time

	// ReplyDelay is how long the demo companion waits before answering a
	// sent message.
	ReplyDelay time.Duration

	mu             sync.Mutex
	conversationID string
	remote         []Message
	local          []Message
	errMsg         string
	replyIdx       int
}

func NewSynchronizer(client *api.Client, session *auth.Session, st store.Store) *Synchronizer {
	return &Synchronizer{
		client:     client,
		session:    session,
		store:      st,
		now:        time.Now,
		ReplyDelay: 1500 * time.Millisecond,
	}
}

// ResolveConversationID looks up or creates the conversation for subject.
// Once created the id is stable: the same user always resumes the same
// conversation, regenerating it would orphan the remote history view.
func (s *Synchronizer) ResolveConversationID(subject string) string {
	key := conversationKey(subject)
	if val, ok := s.store.Get(key); ok && len(val) > 0 {
		return string(val)
	}
	id := uuid.NewString()
	if err := s.store.Set(key, []byte(id)); err != nil {
		log.Warn().Err(err).Msg("[chat] persist conversation id failed")
	}
	return id
}

// SetConversation switches the active conversation and clears both message
// sets immediately, so a stale timeline is never shown under the new id.
func (s *Synchronizer) SetConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.conversationID {
		return
	}
	s.conversationID = id
	s.remote = nil
	s.local = nil
	s.errMsg = ""
}

func (s *Synchronizer) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// LoadRemote replaces the remote set with the backend's messages for the
// active conversation, dropping any row whose conversation id does not
// match (the endpoint may answer with a shared feed).
func (s *Synchronizer) LoadRemote(ctx context.Context) {
	cid := s.ConversationID()
	if cid == "" {
		return
	}
	var msgs []Message
	if err := s.client.Get(ctx, "/messages?conversationId="+url.QueryEscape(cid), &msgs); err != nil {
		log.Warn().Err(err).Msg("[chat] load messages failed")
		s.setError("Failed to load messages")
		return
	}
	filtered := msgs[:0]
	for _, m := range msgs {
		if m.ConversationID == cid {
			filtered = append(filtered, m)
		}
	}
	s.mu.Lock()
	s.remote = filtered
	s.errMsg = ""
	s.mu.Unlock()
}

// LoadOrSeedLocal loads the placeholder set for the active conversation; a
// brand-new conversation gets the fixed companion seed. A corrupt record is
// treated as absent and reseeded.
func (s *Synchronizer) LoadOrSeedLocal() {
	cid := s.ConversationID()
	if cid == "" {
		return
	}
	key := localKey(cid)
	if val, ok := s.store.Get(key); ok {
		var msgs []Message
		if err := json.Unmarshal(val, &msgs); err == nil {
			s.mu.Lock()
			s.local = msgs
			s.mu.Unlock()
			return
		}
		log.Warn().Str("key", key).Msg("[chat] corrupt placeholder record; reseeding")
		_ = s.store.Remove(key)
	}
	seed := seedMessages(s.now())
	s.mu.Lock()
	s.local = seed
	s.mu.Unlock()
	s.persistLocal(cid, seed)
}

// Send posts text to the active conversation, reloads the remote set, and
// schedules the companion's delayed reply. Blank text is a no-op.
func (s *Synchronizer) Send(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	cid := s.ConversationID()
	if cid == "" {
		return
	}
	csrf := s.session.EnsureCSRF(ctx)

	body := struct {
		Text           string `json:"text"`
		ConversationID string `json:"conversationId"`
	}{text, cid}
	if err := s.client.Post(ctx, "/messages", body, nil, api.WithHeader("X-CSRF-Token", csrf)); err != nil {
		log.Warn().Err(err).Msg("[chat] send message failed")
		s.setError("Failed to send message")
		return
	}
	s.LoadRemote(ctx)
	s.scheduleReply(cid)
}

// Delete removes one of the caller's own remote messages. A message that is
// unknown, placeholder, or owned by someone else is silently skipped and no
// network call is made.
func (s *Synchronizer) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	var target Message
	found := false
	for _, m := range s.remote {
		if m.ID == id {
			target = m
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return
	}
	subject := s.session.Subject()
	if subject == "" || target.UserID != subject {
		return
	}

	csrf := s.session.EnsureCSRF(ctx)
	if err := s.client.Delete(ctx, "/messages/"+url.PathEscape(id), api.WithHeader("X-CSRF-Token", csrf)); err != nil {
		log.Warn().Err(err).Msg("[chat] delete message failed")
		s.setError("Failed to delete message")
		return
	}
	s.LoadRemote(ctx)
}

// Timeline merges the remote and placeholder sets ascending by createdAt.
// The sort is stable, so equal timestamps keep their insertion order.
func (s *Synchronizer) Timeline() []Message {
	s.mu.Lock()
	merged := make([]Message, 0, len(s.remote)+len(s.local))
	merged = append(merged, s.remote...)
	merged = append(merged, s.local...)
	s.mu.Unlock()

	sort.SliceStable(merged, func(i, j int) bool {
		return timestampMillis(merged[i].CreatedAt) < timestampMillis(merged[j].CreatedAt)
	})
	return merged
}

// Err is the last user-facing load/send/delete failure, empty after a
// successful reload.
func (s *Synchronizer) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// scheduleReply queues one synthetic companion message. The conversation id
// is captured now and re-checked when the timer fires: a reply for a
// conversation the user has switched away from is discarded, not persisted.
func (s *Synchronizer) scheduleReply(cid string) {
	s.mu.Lock()
	text := replyPool[s.replyIdx%len(replyPool)]
	s.replyIdx++
	s.mu.Unlock()

	time.AfterFunc(s.ReplyDelay, func() {
		s.mu.Lock()
		if s.conversationID != cid {
			s.mu.Unlock()
			return
		}
		s.local = append(s.local, Message{
			ID:        uuid.NewString(),
			Text:      text,
			UserID:    CompanionID,
			CreatedAt: s.now().UTC().Format(time.RFC3339),
		})
		snapshot := append([]Message(nil), s.local...)
		s.mu.Unlock()
		s.persistLocal(cid, snapshot)
	})
}

func (s *Synchronizer) persistLocal(cid string, msgs []Message) {
	buf, err := json.Marshal(msgs)
	if err != nil {
		log.Warn().Err(err).Msg("[chat] encode placeholder set failed")
		return
	}
	if err := s.store.Set(localKey(cid), buf); err != nil {
		log.Warn().Err(err).Msg("[chat] persist placeholder set failed")
	}
}

func (s *Synchronizer) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

func conversationKey(subject string) string { return "conversation:" + subject }
func localKey(cid string) string            { return "local:" + cid }

// timestampMillis parses an ISO-8601 createdAt into epoch milliseconds. A
// missing or unparseable timestamp sorts as epoch 0 rather than breaking
// the render.
func timestampMillis(ts string) int64 {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
