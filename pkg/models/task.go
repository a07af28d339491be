package models

// Task is one gold/generated pair to evaluate. Field names follow the
// Spider/BIRD dev-set JSON.
type Task struct {
	QuestionID int    `json:"question_id"`
	DBID       string `json:"db_id"`
	Question   string `json:"question"`
	Evidence   string `json:"evidence,omitempty"`
	GoldSQL    string `json:"SQL"`
	Difficulty string `json:"difficulty,omitempty"`

	// Response is the raw model output; the SQL is extracted from its first
	// ```sql block. AnswerSQL, when set, is used as-is instead.
	Response  string `json:"response,omitempty"`
	AnswerSQL string `json:"answer_sql,omitempty"`
}
