package store

import (
	"fmt"
	"time"
)

// Transfer is one journal row.
type Transfer struct {
	ID            int64         `json:"id"`
	Cmd           string        `json:"cmd"`
	Target        string        `json:"target,omitempty"`
	Strategy      string        `json:"strategy,omitempty"`
	Outcome       string        `json:"outcome"`
	ErrorKind     string        `json:"error_kind,omitempty"`
	Mount         string        `json:"mount,omitempty"`
	TotalFiles    int           `json:"total_files"`
	SelectedFiles int           `json:"selected_files"`
	ResponseBytes int           `json:"response_bytes"`
	Chunks        int           `json:"chunks"`
	Message       string        `json:"message,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
	CreatedAt     time.Time     `json:"created_at"`
}

// maxMessage caps the stored message; successful imports carry whole GPX
// documents that do not belong in the journal.
const maxMessage = 512

// InsertTransfer records t and returns its id.
func (s *Store) InsertTransfer(t Transfer) (int64, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	msg := t.Message
	if len(msg) > maxMessage {
		msg = truncate(msg, maxMessage)
	}

	res, err := s.db.Exec(
		`INSERT INTO transfers (cmd, target, strategy, outcome, error_kind, mount, total_files,
		        selected_files, response_bytes, chunks, message, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Cmd, t.Target, t.Strategy, t.Outcome, t.ErrorKind, t.Mount, t.TotalFiles,
		t.SelectedFiles, t.ResponseBytes, t.Chunks, msg, t.Duration.Milliseconds(),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert transfer: %w", err)
	}
	return res.LastInsertId()
}

// RecentTransfers returns up to limit transfers, newest first.
func (s *Store) RecentTransfers(limit int) ([]Transfer, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, cmd, target, strategy, outcome, error_kind, mount, total_files,
		        selected_files, response_bytes, chunks, message, duration_ms, created_at
		 FROM transfers
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var out []Transfer
	for rows.Next() {
		var (
			t          Transfer
			durationMs int64
			created    string
		)
		if err := rows.Scan(&t.ID, &t.Cmd, &t.Target, &t.Strategy, &t.Outcome, &t.ErrorKind, &t.Mount,
			&t.TotalFiles, &t.SelectedFiles, &t.ResponseBytes, &t.Chunks, &t.Message,
			&durationMs, &created); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		t.Duration = time.Duration(durationMs) * time.Millisecond
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// TransferCount returns the number of recorded transfers.
func (s *Store) TransferCount() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM transfers").Scan(&count)
	return count, err
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
