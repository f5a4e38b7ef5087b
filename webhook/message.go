package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const MessageTypeNormal = "normal"

var ErrInvalidMessage = errors.New("invalid webhook message")

// Message is one event posted by the server protector.
type Message struct {
	// ID identifies the message in logs.
	ID uuid.UUID

	// Server is the address of the reporting server.
	Server string

	Type       string
	Title      string
	Content    string
	ReceivedAt time.Time
}

// Decode parses a webhook body of the form
//
//	{"msgtype":"normal","data":{"title":"...","content":"..."}}
func Decode(body []byte) (*Message, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not JSON", ErrInvalidMessage)
	}

	r := gjson.ParseBytes(body)
	if !r.IsObject() {
		return nil, fmt.Errorf("%w: body is not an object", ErrInvalidMessage)
	}

	data := r.Get("data")
	if !data.IsObject() {
		return nil, fmt.Errorf("%w: missing data object", ErrInvalidMessage)
	}

	return &Message{
		ID:         uuid.New(),
		Type:       r.Get("msgtype").String(),
		Title:      data.Get("title").String(),
		Content:    data.Get("content").String(),
		ReceivedAt: time.Now(),
	}, nil
}
