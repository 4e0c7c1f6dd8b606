package database

import "time"

type Account struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id         int
	ExternalId string
	Title      string
	IsActive   bool
	CreatedAt  time.Time
}

type Attachment struct {
	Id        int
	MessageId int
	Url       string
	FileType  string
}

type Message struct {
	Id          int
	RoomId      int
	SenderId    int
	SenderName  string
	SenderEmail string
	Content     string
	CreatedAt   time.Time
	Attachments []Attachment
}

type Summary struct {
	Id        int
	RoomId    int
	Content   string
	CreatedAt time.Time
}

// SummaryListing is a summary joined with its room's title and
// aggregate message statistics. RoomTitle is empty when the room
// record has been removed.
type SummaryListing struct {
	Id               int
	RoomTitle        string
	ParticipantCount int
	MessageCount     int
	Content          string
	CreatedAt        time.Time
}

type Paper struct {
	Id            int
	Subject       string
	Semester      int
	Mst1Url       string
	Mst2Url       string
	Mst3Url       string
	EndsemUrl     string
	NotesUrl      string
	UploaderId    int
	UploaderName  string
	UploaderEmail string
	UploadedAt    time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type CreateRoomParams struct {
	Title      string
	ExternalId string
}

type AttachmentParams struct {
	Url      string
	FileType string
}

type CreateMessageParams struct {
	RoomId      int
	SenderId    int
	Content     string
	Attachments []AttachmentParams
}

type CreatePaperParams struct {
	Subject    string
	Semester   int
	UploaderId int
	Mst1Url    string
	Mst2Url    string
	Mst3Url    string
	EndsemUrl  string
	NotesUrl   string
}
