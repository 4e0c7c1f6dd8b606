package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientMessageUnmarshal(t *testing.T) {
	tcases := []struct {
		name    string
		payload string
		check   func(t *testing.T, msg ClientMessage)
	}{
		{
			name:    "join",
			payload: `{"id":1,"join":{"room_id":"r1"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				assert.Equal(t, 1, msg.Id)
				if assert.NotNil(t, msg.Join) {
					assert.Equal(t, "r1", msg.Join.RoomId)
				}
				assert.Nil(t, msg.Leave)
				assert.Nil(t, msg.Publish)
			},
		},
		{
			name:    "publish with attachments",
			payload: `{"id":2,"publish":{"room_id":"r1","content":"hi","attachments":[{"url":"http://localhost:8000/uploads/f.png","file_type":"image/png"}]}}`,
			check: func(t *testing.T, msg ClientMessage) {
				if assert.NotNil(t, msg.Publish) {
					assert.Equal(t, "hi", msg.Publish.Content)
					if assert.Len(t, msg.Publish.Attachments, 1) {
						assert.Equal(t, "image/png", msg.Publish.Attachments[0].FileType)
					}
				}
			},
		},
		{
			name:    "leave",
			payload: `{"id":3,"leave":{"room_id":"r1"}}`,
			check: func(t *testing.T, msg ClientMessage) {
				if assert.NotNil(t, msg.Leave) {
					assert.Equal(t, "r1", msg.Leave.RoomId)
				}
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			var msg ClientMessage
			assert.NoError(t, json.Unmarshal([]byte(tc.payload), &msg))
			tc.check(t, msg)
		})
	}
}

func TestErrInvalidMessage(t *testing.T) {
	assert.Equal(t, 5, ErrInvalidMessage(5).Id)
	assert.Equal(t, 0, ErrInvalidMessage(-1).Id, "unparseable ids are omitted")
}

func TestNow(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Equal(t, now, now.Round(time.Millisecond))
}
