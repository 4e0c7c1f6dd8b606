package summary

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/studystream/study-stream/internal/database"
	"github.com/studystream/study-stream/internal/stats"
	"github.com/studystream/study-stream/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestPipeline(t *testing.T, db database.Repository, ai Summarizer) (*Pipeline, *stats.MockStatsUpdater) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", "summaries_created").Return()

	return NewPipeline(testutil.TestLogger(t), db, ai, su), su
}

func TestEndRoom(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	messages := []database.Message{
		{SenderName: "Alice", Content: "hi", CreatedAt: base},
		{
			SenderName: "Bob",
			Content:    "hello",
			CreatedAt:  base.Add(120 * time.Second),
			Attachments: []database.Attachment{
				{Id: 1, Url: "http://example.com/f.pdf", FileType: "application/pdf"},
			},
		},
	}

	t.Run("success", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetRoomByExternalId", "r1").Return(database.Room{Id: 1, ExternalId: "r1", Title: "Algebra", IsActive: true}, nil)
		db.On("GetRoomMessages", 1).Return(messages, nil)
		db.On("CloseRoom", 1, mock.MatchedBy(func(report string) bool {
			return strings.Contains(report, "AI-Generated Summary:\nThey greeted each other.")
		})).Return(database.Summary{Id: 1, RoomId: 1}, nil)

		ai := &MockSummarizer{}
		ai.On("Summarize", mock.Anything, mock.MatchedBy(func(prompt string) bool {
			return strings.Contains(prompt, "Alice: hi\nBob: hello")
		})).Return("They greeted each other.", nil)

		p, su := newTestPipeline(t, db, ai)
		su.On("Incr", "summaries_created").Return()

		report, err := p.EndRoom(context.Background(), "r1")
		assert.NoError(t, err)
		assert.Contains(t, report,
			"Chat Statistics:\n- Duration: 2 minutes\n- Participants (2): Alice, Bob\n- Total Messages: 2\n- Attachments Shared: 1\n")
		assert.Contains(t, report, "AI-Generated Summary:\nThey greeted each other.")
		db.AssertExpectations(t)
		ai.AssertExpectations(t)
		su.AssertExpectations(t)
	})

	t.Run("summarizer failure downgrades to fallback", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetRoomByExternalId", "r1").Return(database.Room{Id: 1, ExternalId: "r1", IsActive: true}, nil)
		db.On("GetRoomMessages", 1).Return(messages, nil)
		db.On("CloseRoom", 1, mock.MatchedBy(func(report string) bool {
			return strings.Contains(report, fallbackNotice)
		})).Return(database.Summary{Id: 1, RoomId: 1}, nil)

		ai := &MockSummarizer{}
		ai.On("Summarize", mock.Anything, mock.Anything).Return("", errors.New("service unavailable"))

		p, su := newTestPipeline(t, db, ai)
		su.On("Incr", "summaries_created").Return()

		report, err := p.EndRoom(context.Background(), "r1")
		assert.NoError(t, err)
		assert.Contains(t, report, fallbackNotice)
		db.AssertExpectations(t)
	})

	t.Run("room not found", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetRoomByExternalId", "missing").Return(database.Room{}, sql.ErrNoRows)

		ai := &MockSummarizer{}
		p, _ := newTestPipeline(t, db, ai)

		_, err := p.EndRoom(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrRoomNotFound)
		ai.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
	})

	t.Run("room already closed", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetRoomByExternalId", "r1").Return(database.Room{Id: 1, ExternalId: "r1", IsActive: false}, nil)

		ai := &MockSummarizer{}
		p, _ := newTestPipeline(t, db, ai)

		_, err := p.EndRoom(context.Background(), "r1")
		assert.ErrorIs(t, err, ErrRoomClosed)
		db.AssertNotCalled(t, "CloseRoom", mock.Anything, mock.Anything)
		ai.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
	})

	t.Run("persistence failure aborts close", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("GetRoomByExternalId", "r1").Return(database.Room{Id: 1, ExternalId: "r1", IsActive: true}, nil)
		db.On("GetRoomMessages", 1).Return(messages, nil)
		db.On("CloseRoom", 1, mock.Anything).Return(database.Summary{}, errors.New("db down"))

		ai := &MockSummarizer{}
		ai.On("Summarize", mock.Anything, mock.Anything).Return("summary", nil)

		p, su := newTestPipeline(t, db, ai)

		_, err := p.EndRoom(context.Background(), "r1")
		assert.Error(t, err)
		su.AssertNotCalled(t, "Incr", "summaries_created")
	})
}
