package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/maraichr/sqlshape/pkg/models"
)

// ReadTasksFile reads a JSON array of tasks.
func ReadTasksFile(path string) ([]models.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tasks file: %w", err)
	}
	defer f.Close()
	return DecodeTasks(f)
}

// DecodeTasks reads a JSON array of tasks. A task without a question_id
// gets its position in the array.
func DecodeTasks(r io.Reader) ([]models.Task, error) {
	var raw []struct {
		models.Task
		QuestionID *int `json:"question_id"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]models.Task, len(raw))
	for i, t := range raw {
		tasks[i] = t.Task
		tasks[i].QuestionID = i
		if t.QuestionID != nil {
			tasks[i].QuestionID = *t.QuestionID
		}
	}
	return tasks, nil
}
