package models

import (
	"encoding/json"
	"path"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted outcome of evaluating one Task.
type Record struct {
	ID         uuid.UUID `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	QuestionID int       `json:"question_id"`
	DBID       string    `json:"db_id"`
	Question   string    `json:"question,omitempty"`
	Difficulty string    `json:"difficulty,omitempty"`
	GoldSQL    string    `json:"gold_sql"`
	PredSQL    string    `json:"pred_sql"`
	Dialect    string    `json:"dialect"`

	GoldIR json.RawMessage `json:"gold_ir"`
	PredIR json.RawMessage `json:"pred_ir"`

	ExactMatch      bool             `json:"exact_match"`
	LowConfidence   bool             `json:"low_confidence"`
	MeanF1          float64          `json:"mean_f1"`
	Components      []ComponentScore `json:"components"`
	GoldDiagnostics int              `json:"gold_diagnostics"`
	PredDiagnostics int              `json:"pred_diagnostics"`
	MissingTables   []string         `json:"missing_tables,omitempty"`

	PGCheck   *PGCheck `json:"pg_check,omitempty"`
	ExecMatch *bool    `json:"exec_match,omitempty"`
	ExecError string   `json:"exec_error,omitempty"`
}

// ObjectKey is the storage key of r under prefix:
// {prefix}/{db_id}/{yyyy-mm-dd}/{id}.json.
func (r *Record) ObjectKey(prefix string) string {
	db := r.DBID
	if db == "" {
		db = "_"
	}
	return path.Join(prefix, db, r.CreatedAt.UTC().Format("2006-01-02"), r.ID.String()+".json")
}

// ComponentScore is the tally of one compared query component.
type ComponentScore struct {
	Name    string  `json:"name"`
	Gold    int     `json:"gold"`
	Pred    int     `json:"pred"`
	Matched int     `json:"matched"`
	Exact   bool    `json:"exact"`
	F1      float64 `json:"f1"`
}

// PGCheck is the PostgreSQL grammar check of both sides.
type PGCheck struct {
	GoldValid        bool   `json:"gold_valid"`
	PredValid        bool   `json:"pred_valid"`
	GoldError        string `json:"gold_error,omitempty"`
	PredError        string `json:"pred_error,omitempty"`
	FingerprintMatch bool   `json:"fingerprint_match"`
}

// Summary aggregates a batch of records.
type Summary struct {
	Total         int            `json:"total"`
	ExactMatches  int            `json:"exact_matches"`
	ExecMatches   int            `json:"exec_matches"`
	ExecUnscored  int            `json:"exec_unscored"` // exec requested but no verdict
	LowConfidence int            `json:"low_confidence"`
	Failed        int            `json:"failed"`
	ByDifficulty  map[string]int `json:"exact_by_difficulty,omitempty"`
}

// Add folds r into s.
func (s *Summary) Add(r *Record) {
	s.Total++
	if r.ExactMatch {
		s.ExactMatches++
		if r.Difficulty != "" {
			if s.ByDifficulty == nil {
				s.ByDifficulty = make(map[string]int)
			}
			s.ByDifficulty[r.Difficulty]++
		}
	}
	if r.ExecMatch != nil && *r.ExecMatch {
		s.ExecMatches++
	}
	if r.ExecMatch == nil && r.ExecError != "" {
		s.ExecUnscored++
	}
	if r.LowConfidence {
		s.LowConfidence++
	}
}

// Accuracy is the exact-match rate.
func (s Summary) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ExactMatches) / float64(s.Total)
}
