package summary

import (
	"fmt"
	"strings"

	"github.com/studystream/study-stream/internal/database"
)

// RoomStats are the deterministic statistics computed from a room's
// full message history.
type RoomStats struct {
	DurationMinutes int
	Participants    []string
	MessageCount    int
	AttachmentCount int
}

// ComputeStats derives statistics from a room's history. Participants
// are the distinct sender display names in order of first appearance.
// Duration is the whole-minute floor of last minus first timestamp;
// with fewer than two messages it is zero.
func ComputeStats(messages []database.Message) RoomStats {
	stats := RoomStats{
		MessageCount: len(messages),
	}

	seen := make(map[string]struct{})
	for _, msg := range messages {
		if _, ok := seen[msg.SenderName]; !ok {
			seen[msg.SenderName] = struct{}{}
			stats.Participants = append(stats.Participants, msg.SenderName)
		}
		stats.AttachmentCount += len(msg.Attachments)
	}

	if len(messages) > 1 {
		elapsed := messages[len(messages)-1].CreatedAt.Sub(messages[0].CreatedAt)
		stats.DurationMinutes = int(elapsed.Milliseconds() / 60_000)
	}

	return stats
}

// Transcript renders the chronological history as "<sender>: <content>"
// lines for the summarization prompt.
func Transcript(messages []database.Message) string {
	lines := make([]string, len(messages))
	for i, msg := range messages {
		lines[i] = msg.SenderName + ": " + msg.Content
	}
	return strings.Join(lines, "\n")
}

func buildPrompt(stats RoomStats, transcript string) string {
	return fmt.Sprintf(`Please create a comprehensive summary of the following chat conversation. Include key discussion points, main decisions or conclusions reached, and any important action items.

Chat Statistics:
- Duration: %d minutes
- Participants: %s
- Total Messages: %d
- Attachments Shared: %d

Conversation:
%s`,
		stats.DurationMinutes,
		strings.Join(stats.Participants, ", "),
		stats.MessageCount,
		stats.AttachmentCount,
		transcript,
	)
}

// fallbackNotice replaces the AI prose when the summarization service
// call fails.
const fallbackNotice = "AI summary generation failed. Please review the chat history manually."

func buildReport(stats RoomStats, aiSummary string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Chat Statistics:\n")
	fmt.Fprintf(&sb, "- Duration: %d minutes\n", stats.DurationMinutes)
	fmt.Fprintf(&sb, "- Participants (%d): %s\n", len(stats.Participants), strings.Join(stats.Participants, ", "))
	fmt.Fprintf(&sb, "- Total Messages: %d\n", stats.MessageCount)
	fmt.Fprintf(&sb, "- Attachments Shared: %d\n\n", stats.AttachmentCount)

	if aiSummary != "" {
		fmt.Fprintf(&sb, "AI-Generated Summary:\n%s", aiSummary)
	} else {
		sb.WriteString(fallbackNotice)
	}

	return sb.String()
}
