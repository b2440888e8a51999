package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Woondzer/ChatIt/auth"
	"github.com/Woondzer/ChatIt/chat"
	"github.com/Woondzer/ChatIt/sanitize"
)

// Terminal stand-in for the web client's views: a prompt loop over stdin
// driving the session manager and the synchronizer, re-rendering the merged
// timeline after each operation. Commands mirror the pages — login and
// register forms, the protected chat view, logout in the side nav.

func runPrompt(ctx context.Context, session *auth.Session, sync *chat.Synchronizer) {
	in := bufio.NewScanner(os.Stdin)
	printHelp()
	if session.LoggedIn() {
		renderTimeline(session, sync)
	}

	for {
		fmt.Print("> ")
		if !in.Scan() || ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(in.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/help":
			printHelp()
		case strings.HasPrefix(line, "/register"):
			handleRegister(ctx, session, line)
		case strings.HasPrefix(line, "/login"):
			handleLogin(ctx, session, sync, line)
		case line == "/logout":
			session.Logout()
			fmt.Println("signed out")
		case line == "/reload":
			if !requireLogin(session) {
				continue
			}
			sync.LoadRemote(ctx)
			renderTimeline(session, sync)
		case strings.HasPrefix(line, "/delete "):
			if !requireLogin(session) {
				continue
			}
			sync.Delete(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/delete ")))
			renderTimeline(session, sync)
		case strings.HasPrefix(line, "/"):
			fmt.Println("unknown command, try /help")
		default:
			if !requireLogin(session) {
				continue
			}
			sync.Send(ctx, line)
			renderTimeline(session, sync)
		}
	}
}

func handleLogin(ctx context.Context, session *auth.Session, sync *chat.Synchronizer, line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		fmt.Println("usage: /login <username> <password>")
		return
	}
	if session.Login(ctx, auth.Credentials{Username: fields[1], Password: fields[2]}) {
		fmt.Println(session.StatusMessage())
		openConversation(ctx, session, sync)
		renderTimeline(session, sync)
		return
	}
	fmt.Println(session.ErrorMessage())
}

func handleRegister(ctx context.Context, session *auth.Session, line string) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		fmt.Println("usage: /register <username> <email> <password> <confirm>")
		return
	}
	ok := session.Register(ctx, auth.Profile{
		Username:        fields[1],
		Email:           fields[2],
		Password:        fields[3],
		ConfirmPassword: fields[4],
	})
	if ok {
		fmt.Println(session.StatusMessage(), "- you can /login now")
		return
	}
	fmt.Println(session.ErrorMessage())
}

// requireLogin gates the chat commands the way the protected route gates
// the chat page.
func requireLogin(session *auth.Session) bool {
	if session.LoggedIn() {
		return true
	}
	fmt.Println("sign in first: /login <username> <password>")
	return false
}

func renderTimeline(session *auth.Session, sync *chat.Synchronizer) {
	subject := session.Subject()
	for _, m := range sync.Timeline() {
		who := shortID(m.UserID)
		if m.UserID == subject {
			who = "you"
		} else if m.UserID == chat.CompanionID {
			who = chat.CompanionID
		}
		deletable := ""
		if m.UserID == subject && m.ConversationID != "" {
			deletable = "  (/delete " + m.ID + ")"
		}
		fmt.Printf("[%s] %s: %s%s\n", renderTime(m.CreatedAt), who, sanitize.Message(m.Text), deletable)
	}
	if msg := sync.Err(); msg != "" {
		fmt.Println("! " + msg)
	}
}

func renderTime(createdAt string) string {
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return "--:--:--"
	}
	return t.Local().Format("15:04:05")
}

// shortID keeps rendered user ids readable; backends hand out UUIDs.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printHelp() {
	fmt.Println(`commands:
  /register <username> <email> <password> <confirm>
  /login <username> <password>
  /logout
  /reload            refresh the conversation
  /delete <id>       delete one of your own messages
  /quit
anything else is sent as a message`)
}
