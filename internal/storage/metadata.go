package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("not found")

// TranscriptRecord is one finished job.
type TranscriptRecord struct {
	JobID        string    `json:"job_id"`
	RequestName  string    `json:"request_name"`
	SourceType   string    `json:"source_type"`
	GDriveURL    string    `json:"gdrive_url"`
	LocalPath    string    `json:"local_path"`
	MarkdownPath string    `json:"markdown_path"`
	CreatedAt    time.Time `json:"created_at"`
	Duration     float64   `json:"duration"`
	SpeakerCount int       `json:"speaker_count"`
	PhraseCount  int       `json:"phrase_count"`
}

// EvaluationRecord is the summary of one corpus evaluation.
type EvaluationRecord struct {
	RunID       string    `json:"run_id"`
	Root        string    `json:"root"`
	CreatedAt   time.Time `json:"created_at"`
	DER         float64   `json:"der"`
	JER         float64   `json:"jer"`
	DERNoMiss   float64   `json:"der_no_miss"`
	WER         float64   `json:"wer"`
	TotalLength float64   `json:"total_length"`
	Recordings  int       `json:"recordings"`
}

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens (or creates) the database at dbPath.
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a ":memory:" database lives only as long as its connection
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		request_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		gdrive_url TEXT NOT NULL DEFAULT '',
		local_path TEXT NOT NULL,
		markdown_path TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		duration REAL,
		speaker_count INTEGER,
		phrase_count INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_request_name ON transcripts(request_name);

	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		root TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		der REAL,
		jer REAL,
		der_no_miss REAL,
		wer REAL,
		total_length REAL,
		recordings INTEGER
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveTranscript saves transcript metadata to the database
func (mdb *MetadataDB) SaveTranscript(r TranscriptRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO transcripts (job_id, request_name, source_type, gdrive_url, local_path, markdown_path,
		created_at, duration, speaker_count, phrase_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := mdb.db.Exec(query, r.JobID, r.RequestName, r.SourceType, r.GDriveURL, r.LocalPath, r.MarkdownPath,
		r.CreatedAt, r.Duration, r.SpeakerCount, r.PhraseCount)
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %w", err)
	}
	return nil
}

const transcriptColumns = `job_id, request_name, source_type, gdrive_url, local_path, markdown_path,
	created_at, duration, speaker_count, phrase_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(s scanner) (TranscriptRecord, error) {
	var r TranscriptRecord
	err := s.Scan(&r.JobID, &r.RequestName, &r.SourceType, &r.GDriveURL, &r.LocalPath, &r.MarkdownPath,
		&r.CreatedAt, &r.Duration, &r.SpeakerCount, &r.PhraseCount)
	return r, err
}

// GetTranscript retrieves transcript metadata by job ID
func (mdb *MetadataDB) GetTranscript(jobID string) (TranscriptRecord, error) {
	row := mdb.db.QueryRow(`SELECT `+transcriptColumns+` FROM transcripts WHERE job_id = ?`, jobID)
	r, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("transcript %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("failed to get transcript: %w", err)
	}
	return r, nil
}

// ListTranscripts returns the newest transcripts first
func (mdb *MetadataDB) ListTranscripts(limit int) ([]TranscriptRecord, error) {
	rows, err := mdb.db.Query(`SELECT `+transcriptColumns+` FROM transcripts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := []TranscriptRecord{}
	for rows.Next() {
		r, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read transcript row: %w", err)
		}
		transcripts = append(transcripts, r)
	}
	return transcripts, rows.Err()
}

// SaveEvaluation stores the summary of an evaluation run
func (mdb *MetadataDB) SaveEvaluation(r EvaluationRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := mdb.db.Exec(`
	INSERT INTO evaluations (run_id, root, created_at, der, jer, der_no_miss, wer, total_length, recordings)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Root, r.CreatedAt, r.DER, r.JER, r.DERNoMiss, r.WER, r.TotalLength, r.Recordings)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

// ListEvaluations returns the newest evaluation runs first
func (mdb *MetadataDB) ListEvaluations(limit int) ([]EvaluationRecord, error) {
	rows, err := mdb.db.Query(`
	SELECT run_id, root, created_at, der, jer, der_no_miss, wer, total_length, recordings
	FROM evaluations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	runs := []EvaluationRecord{}
	for rows.Next() {
		var r EvaluationRecord
		if err := rows.Scan(&r.RunID, &r.Root, &r.CreatedAt, &r.DER, &r.JER, &r.DERNoMiss, &r.WER,
			&r.TotalLength, &r.Recordings); err != nil {
			return nil, fmt.Errorf("failed to read evaluation row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
