package chat

import (
	"fmt"
	"time"
)

// CompanionID is the synthetic user behind the placeholder conversation
// partner. It never matches a real session subject, which keeps the
// companion's messages out of the deletable set.
const CompanionID = "companion"

// replyPool is cycled round-robin for the delayed reply after each send.
var replyPool = []string{
	"Haha, right?",
	"Tell me more!",
	"I was just thinking the same thing.",
	"No way. Really?",
	"Good point. What happened next?",
}

// seedMessages is the fixed opener every new conversation starts with. The
// timestamps trail now by an hour so live traffic always sorts after them.
func seedMessages(now time.Time) []Message {
	base := now.Add(-time.Hour).UTC()
	texts := []string{
		"Hey! Welcome to ChatIt.",
		"This is your conversation, it picks up right where you left off.",
		"Say something and I'll answer in a bit.",
	}
	msgs := make([]Message, 0, len(texts))
	for i, text := range texts {
		msgs = append(msgs, Message{
			ID:        fmt.Sprintf("seed-%d", i+1),
			Text:      text,
			UserID:    CompanionID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		})
	}
	return msgs
}
