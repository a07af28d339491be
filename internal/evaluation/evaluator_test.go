package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/maraichr/sqlshape/internal/compare"
	"github.com/maraichr/sqlshape/internal/parser"
	"github.com/maraichr/sqlshape/internal/store"
	"github.com/maraichr/sqlshape/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSchema() *parser.Schema {
	return parser.NewSchema(map[string][]string{
		"employees":   {"id", "name", "dept_id", "salary"},
		"departments": {"id", "name"},
	})
}

type memorySink struct {
	mu      sync.Mutex
	records []*models.Record
	err     error
}

func (s *memorySink) SaveRecord(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

type fakeExecutor struct {
	match   bool
	err     error
	ordered bool
	calls   int
}

func (f *fakeExecutor) ExecMatch(_ context.Context, _, _, _ string, ordered bool) (bool, error) {
	f.calls++
	f.ordered = ordered
	return f.match, f.err
}

func TestPredictedSQL(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
		want string
	}{
		{"answer wins", models.Task{AnswerSQL: " SELECT 1 ", Response: "```sql\nSELECT 2\n```"}, "SELECT 1"},
		{"fenced response", models.Task{Response: "Here:\n```sql\nSELECT name\nFROM employees\n```\nDone."}, "SELECT name FROM employees"},
		{"raw response", models.Task{Response: "  SELECT id FROM employees  "}, "SELECT id FROM employees"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PredictedSQL(tt.task); got != tt.want {
				t.Errorf("PredictedSQL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluateExactMatch(t *testing.T) {
	sink := &memorySink{}
	e := New(Options{}, nil, sink, testLogger())

	task := models.Task{
		QuestionID: 3,
		DBID:       "hr",
		Question:   "Who earns more than 100?",
		GoldSQL:    "SELECT name FROM employees WHERE salary > 100",
		Response:   "```sql\nSELECT e.name\nFROM employees AS e\nWHERE e.salary > 100\n```",
		Difficulty: "simple",
	}
	rec, err := e.Evaluate(context.Background(), task, testSchema())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !rec.ExactMatch || rec.LowConfidence {
		t.Errorf("record = %+v", rec)
	}
	if rec.MeanF1 != 1 {
		t.Errorf("mean f1 = %v", rec.MeanF1)
	}
	if rec.PredSQL != "SELECT e.name FROM employees AS e WHERE e.salary > 100" {
		t.Errorf("pred sql = %q", rec.PredSQL)
	}
	if rec.QuestionID != 3 || rec.DBID != "hr" || rec.Difficulty != "simple" {
		t.Errorf("task fields not carried: %+v", rec)
	}
	if len(sink.records) != 1 || sink.records[0] != rec {
		t.Errorf("sink records = %d", len(sink.records))
	}

	var ir map[string]any
	if err := json.Unmarshal(rec.PredIR, &ir); err != nil {
		t.Fatalf("pred ir: %v", err)
	}
	if _, ok := ir["select"]; !ok {
		t.Errorf("pred ir missing select: %s", rec.PredIR)
	}
	if rec.PGCheck != nil {
		t.Error("generic SQL should not be pg checked by default")
	}
}

func TestEvaluateMismatchAndMissingTables(t *testing.T) {
	e := New(Options{}, nil, nil, testLogger())
	task := models.Task{
		GoldSQL:   "SELECT name FROM employees",
		AnswerSQL: "SELECT name FROM staff",
	}
	rec, err := e.Evaluate(context.Background(), task, testSchema())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.ExactMatch {
		t.Error("expected mismatch")
	}
	if !rec.LowConfidence || rec.PredDiagnostics == 0 {
		t.Errorf("unknown table should be diagnosed: %+v", rec)
	}
	if len(rec.MissingTables) != 1 || rec.MissingTables[0] != "staff" {
		t.Errorf("missing tables = %v", rec.MissingTables)
	}
}

func TestEvaluateIgnoreValues(t *testing.T) {
	task := models.Task{
		GoldSQL:   "SELECT name FROM employees WHERE salary > 100",
		AnswerSQL: "SELECT name FROM employees WHERE salary > 250",
	}
	strict := New(Options{}, nil, nil, testLogger())
	loose := New(Options{Compare: compare.Options{IgnoreValues: true}}, nil, nil, testLogger())

	if rec, _ := strict.Evaluate(context.Background(), task, testSchema()); rec.ExactMatch {
		t.Error("literal difference should fail strict comparison")
	}
	if rec, _ := loose.Evaluate(context.Background(), task, testSchema()); !rec.ExactMatch {
		t.Error("IgnoreValues should match")
	}
}

func TestEvaluatePGCheck(t *testing.T) {
	e := New(Options{PGCheck: true}, nil, nil, testLogger())
	task := models.Task{
		GoldSQL:   "SELECT name FROM employees WHERE salary > 100",
		AnswerSQL: "SELECT name FROM employees WHERE salary > 200",
	}
	rec, err := e.Evaluate(context.Background(), task, testSchema())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.PGCheck == nil {
		t.Fatal("expected pg check")
	}
	if !rec.PGCheck.GoldValid || !rec.PGCheck.PredValid {
		t.Errorf("pg check = %+v", rec.PGCheck)
	}
	if !rec.PGCheck.FingerprintMatch {
		t.Error("queries differing only in literals share a fingerprint")
	}
}

func TestEvaluateExecMatch(t *testing.T) {
	exec := &fakeExecutor{match: true}
	e := New(Options{ExecMatch: true}, exec, nil, testLogger())
	task := models.Task{
		DBID:      "hr",
		GoldSQL:   "SELECT name FROM employees ORDER BY salary DESC",
		AnswerSQL: "SELECT name FROM employees ORDER BY salary DESC",
	}
	rec, err := e.Evaluate(context.Background(), task, testSchema())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.ExecMatch == nil || !*rec.ExecMatch {
		t.Errorf("exec match = %v", rec.ExecMatch)
	}
	if !exec.ordered {
		t.Error("ORDER BY in gold should request an ordered comparison")
	}

	tests := []struct {
		name      string
		err       error
		wantScore bool // ExecMatch set to false
	}{
		{"pred fails", &store.ExecError{Side: "pred", Err: errors.New("relation \"bonus\" does not exist")}, true},
		{"gold fails", &store.ExecError{Side: "gold", Err: errors.New("relation \"bonus\" does not exist")}, false},
		{"database fails", errors.New("connection refused: relation lookup"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Options{ExecMatch: true}, &fakeExecutor{err: tt.err}, nil, testLogger())
			rec, err := e.Evaluate(context.Background(), task, testSchema())
			if err != nil {
				t.Fatalf("execution failure should not fail the evaluation: %v", err)
			}
			if !strings.Contains(rec.ExecError, "relation") {
				t.Errorf("exec error = %q", rec.ExecError)
			}
			if tt.wantScore {
				if rec.ExecMatch == nil || *rec.ExecMatch {
					t.Errorf("exec match = %v, want false", rec.ExecMatch)
				}
				return
			}
			if rec.ExecMatch != nil {
				t.Errorf("exec match = %v, want no verdict", *rec.ExecMatch)
			}
			var sum models.Summary
			sum.Add(rec)
			if sum.ExecUnscored != 1 {
				t.Errorf("summary = %+v", sum)
			}
		})
	}

	task.DBID = ""
	exec = &fakeExecutor{}
	e = New(Options{ExecMatch: true}, exec, nil, testLogger())
	if _, err := e.Evaluate(context.Background(), task, testSchema()); err != nil {
		t.Fatal(err)
	}
	if exec.calls != 0 {
		t.Error("no db_id means nothing to execute against")
	}
}

func TestEvaluateSinkError(t *testing.T) {
	e := New(Options{}, nil, &memorySink{err: errors.New("bucket gone")}, testLogger())
	rec, err := e.Evaluate(context.Background(), models.Task{GoldSQL: "SELECT id FROM employees", AnswerSQL: "SELECT id FROM employees"}, testSchema())
	if err == nil {
		t.Fatal("expected sink error")
	}
	if rec == nil || !rec.ExactMatch {
		t.Error("record should still be returned")
	}
}

func TestEvaluateRequiresSchema(t *testing.T) {
	e := New(Options{}, nil, nil, testLogger())
	if _, err := e.Evaluate(context.Background(), models.Task{GoldSQL: "SELECT 1"}, nil); err == nil {
		t.Error("expected error without schema")
	}
}

func TestMissingTables(t *testing.T) {
	got := MissingTables("SELECT * FROM public.Employees JOIN staff ON 1 = 1 JOIN STAFF ON 1 = 1", testSchema())
	if len(got) != 1 || got[0] != "staff" {
		t.Errorf("MissingTables = %v", got)
	}
}
