package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"guestpost/internal/notifications"

	"github.com/gorilla/websocket"
)

// wsURL turns the API root into the event stream URL.
func wsURL(apiURL, ticket string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()
	return u.String(), nil
}

func runWatch(ctx context.Context, app *cli, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	ticket, err := app.api.IssueWSTicket(ctx)
	if err != nil {
		return err
	}
	target, err := wsURL(app.api.BaseURL(), ticket.Data.Ticket)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		return fmt.Errorf("connect to event stream: %w", err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	fmt.Println("👀 Watching moderation events (Ctrl+C to stop)")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("event stream closed: %w", err)
		}
		printEvent(data)
	}
}

func printEvent(data []byte) {
	var ev notifications.Event
	if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
		fmt.Printf("%s\n", data)
		return
	}
	line := fmt.Sprintf("[%s] %-32s website %d", ev.At.Local().Format(time.TimeOnly), ev.Type, ev.WebsiteID)
	if domain, ok := ev.Payload["domain"].(string); ok {
		line += " " + domain
	}
	if reason, ok := ev.Payload["reason"].(string); ok && reason != "" {
		line += fmt.Sprintf(" (%s)", reason)
	}
	fmt.Println(line)
}
