package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

const MaxMessageLength = 2000

func (c *Client) SendMessage(ctx context.Context, receiverID, content string) (Message, error) {
	if strings.TrimSpace(receiverID) == "" {
		return Message{}, &ValidationError{Field: "receiverId", Err: errors.New("receiver is required")}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, &ValidationError{Field: "content", Err: errors.New("message content cannot be empty")}
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return Message{}, &ValidationError{Field: "content", Err: fmt.Errorf("message exceeds %d characters", MaxMessageLength)}
	}

	var out Message
	in := map[string]string{"receiverId": receiverID, "content": content}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/messages", in, &out); err != nil {
		return Message{}, err
	}
	return out, nil
}

func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	if err := c.getJSON(ctx, "/api/messages/contacts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.getJSON(ctx, "/api/messages/conversations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Conversation trae los mensajes con userID en orden cronológico y los marca leídos.
func (c *Client) Conversation(ctx context.Context, userID string) ([]Message, error) {
	var out []Message
	if err := c.getJSON(ctx, "/api/messages/conversation/"+url.PathEscape(userID), &out); err != nil {
		return nil, err
	}
	sortMessages(out)
	return out, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		UnreadCount int `json:"unreadCount"`
	}
	if err := c.getJSON(ctx, "/api/messages/unread-count", &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

func sortMessages(items []Message) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].SentAt.Equal(items[j].SentAt) {
			return items[i].SentAt.Before(items[j].SentAt)
		}
		return items[i].ID < items[j].ID
	})
}
