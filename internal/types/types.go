package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Room struct {
	Id         int       `json:"id"`
	ExternalId string    `json:"external_id"`
	Title      string    `json:"title"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

type Attachment struct {
	Id       int    `json:"id"`
	Url      string `json:"url"`
	FileType string `json:"file_type"`
}

type Message struct {
	Id          int          `json:"id"`
	RoomId      string       `json:"room_id"`
	Sender      User         `json:"sender"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Paper is a set of archived exam papers and notes for one subject and
// semester. Slots without an uploaded file are empty.
type Paper struct {
	Id         int       `json:"id"`
	Subject    string    `json:"subject"`
	Semester   int       `json:"semester"`
	Mst1Url    string    `json:"mst1_url,omitempty"`
	Mst2Url    string    `json:"mst2_url,omitempty"`
	Mst3Url    string    `json:"mst3_url,omitempty"`
	EndsemUrl  string    `json:"endsem_url,omitempty"`
	NotesUrl   string    `json:"notes_url,omitempty"`
	UploadedBy User      `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// RoomSummary is the listing view of a stored summary. RoomTitle falls
// back to a placeholder when the room record has been removed.
type RoomSummary struct {
	Id               int       `json:"id"`
	RoomTitle        string    `json:"room_title"`
	ParticipantCount int       `json:"participant_count"`
	MessageCount     int       `json:"message_count"`
	Summary          string    `json:"summary"`
	CreatedAt        time.Time `json:"created_at"`
}
