package database

import (
	"database/sql"
	"fmt"
	"time"
)

func (db *PgRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, username, email, created_at, updated_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) GetAccountById(id int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	res := db.conn.QueryRow(
		"INSERT INTO rooms (external_id, title, is_active, created_at) "+
			"VALUES ($1, $2, TRUE, $3) RETURNING id, external_id, title, is_active, created_at",
		params.ExternalId,
		params.Title,
		time.Now().UTC(),
	)

	var r Room
	err := res.Scan(
		&r.Id,
		&r.ExternalId,
		&r.Title,
		&r.IsActive,
		&r.CreatedAt,
	)

	return r, err
}

func (db *PgRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, title, is_active, created_at FROM rooms "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var r Room
	err := row.Scan(
		&r.Id,
		&r.ExternalId,
		&r.Title,
		&r.IsActive,
		&r.CreatedAt,
	)

	return r, err
}

func (db *PgRepository) ListActiveRooms() ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, title, is_active, created_at FROM rooms " +
			"WHERE is_active = TRUE ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(
			&r.Id,
			&r.ExternalId,
			&r.Title,
			&r.IsActive,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}

	return rooms, rows.Err()
}

// CreateMessage inserts a message and its attachments as a single
// transaction and returns the stored message with the sender's display
// fields resolved.
func (db *PgRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var msg Message
	if err := tx.QueryRow(
		"INSERT INTO messages (room_id, sender_id, content, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, room_id, sender_id, content, created_at",
		params.RoomId,
		params.SenderId,
		params.Content,
		time.Now().UTC(),
	).Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.Content,
		&msg.CreatedAt,
	); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	for _, att := range params.Attachments {
		var a Attachment
		if err := tx.QueryRow(
			"INSERT INTO attachments (message_id, url, file_type) "+
				"VALUES ($1, $2, $3) RETURNING id, message_id, url, file_type",
			msg.Id,
			att.Url,
			att.FileType,
		).Scan(
			&a.Id,
			&a.MessageId,
			&a.Url,
			&a.FileType,
		); err != nil {
			return Message{}, fmt.Errorf("insert attachment: %w", err)
		}
		msg.Attachments = append(msg.Attachments, a)
	}

	if err := tx.QueryRow(
		"SELECT username, email FROM accounts WHERE id = $1",
		params.SenderId,
	).Scan(&msg.SenderName, &msg.SenderEmail); err != nil {
		return Message{}, fmt.Errorf("resolve sender: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("commit: %w", err)
	}

	return msg, nil
}

// GetRoomMessages returns the room's full message history in insertion
// order with sender display fields and attachments.
func (db *PgRepository) GetRoomMessages(roomId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.room_id, m.sender_id, a.username, a.email, m.content, m.created_at "+
			"FROM messages m JOIN accounts a ON a.id = m.sender_id "+
			"WHERE m.room_id = $1 ORDER BY m.created_at ASC, m.id ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	idx := make(map[int]int)
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.RoomId,
			&m.SenderId,
			&m.SenderName,
			&m.SenderEmail,
			&m.Content,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		idx[m.Id] = len(messages)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attRows, err := db.conn.Query(
		"SELECT att.id, att.message_id, att.url, att.file_type "+
			"FROM attachments att JOIN messages m ON m.id = att.message_id "+
			"WHERE m.room_id = $1 ORDER BY att.id ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer attRows.Close()

	for attRows.Next() {
		var a Attachment
		if err := attRows.Scan(
			&a.Id,
			&a.MessageId,
			&a.Url,
			&a.FileType,
		); err != nil {
			return nil, err
		}
		if i, ok := idx[a.MessageId]; ok {
			messages[i].Attachments = append(messages[i].Attachments, a)
		}
	}

	return messages, attRows.Err()
}

// CloseRoom stores the room's summary and flips the room inactive in a
// single transaction. Neither effect is applied if the other fails.
func (db *PgRepository) CloseRoom(roomId int, summary string) (Summary, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Summary{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var s Summary
	if err := tx.QueryRow(
		"INSERT INTO summaries (room_id, content, created_at) "+
			"VALUES ($1, $2, $3) RETURNING id, room_id, content, created_at",
		roomId,
		summary,
		time.Now().UTC(),
	).Scan(
		&s.Id,
		&s.RoomId,
		&s.Content,
		&s.CreatedAt,
	); err != nil {
		return Summary{}, fmt.Errorf("insert summary: %w", err)
	}

	res, err := tx.Exec(
		"UPDATE rooms SET is_active = FALSE WHERE id = $1",
		roomId,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("deactivate room: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Summary{}, err
	}
	if n == 0 {
		return Summary{}, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("commit: %w", err)
	}

	return s, nil
}

// CreatePaper stores an uploaded paper set and returns it with the
// uploader's display fields resolved.
func (db *PgRepository) CreatePaper(params CreatePaperParams) (Paper, error) {
	var p Paper
	err := db.conn.QueryRow(
		"INSERT INTO papers (subject, semester, mst1_url, mst2_url, mst3_url, endsem_url, notes_url, uploaded_by, uploaded_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) "+
			"RETURNING id, subject, semester, mst1_url, mst2_url, mst3_url, endsem_url, notes_url, uploaded_by, uploaded_at, "+
			"(SELECT username FROM accounts WHERE id = uploaded_by), (SELECT email FROM accounts WHERE id = uploaded_by)",
		params.Subject,
		params.Semester,
		params.Mst1Url,
		params.Mst2Url,
		params.Mst3Url,
		params.EndsemUrl,
		params.NotesUrl,
		params.UploaderId,
		time.Now().UTC(),
	).Scan(
		&p.Id,
		&p.Subject,
		&p.Semester,
		&p.Mst1Url,
		&p.Mst2Url,
		&p.Mst3Url,
		&p.EndsemUrl,
		&p.NotesUrl,
		&p.UploaderId,
		&p.UploadedAt,
		&p.UploaderName,
		&p.UploaderEmail,
	)

	return p, err
}

func (db *PgRepository) ListPapers(semester int) ([]Paper, error) {
	query := "SELECT p.id, p.subject, p.semester, p.mst1_url, p.mst2_url, p.mst3_url, p.endsem_url, p.notes_url, " +
		"p.uploaded_by, p.uploaded_at, a.username, a.email " +
		"FROM papers p JOIN accounts a ON a.id = p.uploaded_by"

	var args []any
	if semester > 0 {
		query += " WHERE p.semester = $1"
		args = append(args, semester)
	}
	query += " ORDER BY p.uploaded_at DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []Paper
	for rows.Next() {
		var p Paper
		if err := rows.Scan(
			&p.Id,
			&p.Subject,
			&p.Semester,
			&p.Mst1Url,
			&p.Mst2Url,
			&p.Mst3Url,
			&p.EndsemUrl,
			&p.NotesUrl,
			&p.UploaderId,
			&p.UploadedAt,
			&p.UploaderName,
			&p.UploaderEmail,
		); err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}

	return papers, rows.Err()
}

func (db *PgRepository) ListSummaries() ([]SummaryListing, error) {
	rows, err := db.conn.Query(
		// participants are distinct sender display names, matching the
		// statistics block of the stored summary
		"SELECT s.id, COALESCE(r.title, ''), " +
			"COALESCE((SELECT COUNT(DISTINCT a.username) FROM messages m JOIN accounts a ON a.id = m.sender_id WHERE m.room_id = s.room_id), 0), " +
			"COALESCE((SELECT COUNT(*) FROM messages m WHERE m.room_id = s.room_id), 0), " +
			"s.content, s.created_at " +
			"FROM summaries s LEFT JOIN rooms r ON r.id = s.room_id " +
			"ORDER BY s.created_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []SummaryListing
	for rows.Next() {
		var l SummaryListing
		if err := rows.Scan(
			&l.Id,
			&l.RoomTitle,
			&l.ParticipantCount,
			&l.MessageCount,
			&l.Content,
			&l.CreatedAt,
		); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}
