package summary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/studystream/study-stream/internal/database"
	"github.com/studystream/study-stream/internal/stats"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomClosed   = errors.New("room already closed")
)

// Pipeline closes rooms: it gathers the room's history, computes
// statistics, obtains an AI-generated narrative and durably records the
// result while deactivating the room.
type Pipeline struct {
	log   *log.Logger
	db    database.Repository
	ai    Summarizer
	stats stats.StatsProvider
}

func NewPipeline(logger *log.Logger, db database.Repository, ai Summarizer, su stats.StatsProvider) *Pipeline {
	su.RegisterMetric("summaries_created")

	return &Pipeline{
		log:   logger,
		db:    db,
		ai:    ai,
		stats: su,
	}
}

// EndRoom formally closes the room identified by externalId and returns
// the assembled report text. The summary insert and room deactivation
// commit as one transaction. A failed summarization call downgrades to
// a fallback notice and never aborts the close.
func (p *Pipeline) EndRoom(ctx context.Context, externalId string) (string, error) {
	room, err := p.db.GetRoomByExternalId(externalId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRoomNotFound
		}
		return "", fmt.Errorf("get room: %w", err)
	}

	if !room.IsActive {
		return "", ErrRoomClosed
	}

	messages, err := p.db.GetRoomMessages(room.Id)
	if err != nil {
		return "", fmt.Errorf("get messages: %w", err)
	}

	roomStats := ComputeStats(messages)

	var aiSummary string
	aiSummary, err = p.ai.Summarize(ctx, buildPrompt(roomStats, Transcript(messages)))
	if err != nil {
		p.log.Printf("summarize room %q: %v", externalId, err)
		aiSummary = ""
	}

	report := buildReport(roomStats, aiSummary)

	if _, err := p.db.CloseRoom(room.Id, report); err != nil {
		return "", fmt.Errorf("close room: %w", err)
	}

	p.stats.Incr("summaries_created")
	p.log.Printf("closed room %q (%d messages, %d participants)",
		externalId, roomStats.MessageCount, len(roomStats.Participants))

	return report, nil
}
