package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type TodoRequest struct {
	Name string `json:"name,omitempty" jsonschema:"description=Name of the todo list"`
	Task string `json:"task,omitempty" jsonschema:"description=Task text"`
}

type TodoTask struct {
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// TodoStore keeps todo lists in a single sqlite table.
type TodoStore struct {
	db *sql.DB
}

func NewTodoStore(path string) (*TodoStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	const schema = `CREATE TABLE IF NOT EXISTS tasks (list_name TEXT, task TEXT, completed INTEGER DEFAULT 0);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize todo store: %w", err)
	}

	return &TodoStore{db: db}, nil
}

func (s *TodoStore) Close() error {
	return s.db.Close()
}

func (s *TodoStore) AddTask(name, task string) (string, error) {
	_, err := s.db.Exec(`INSERT INTO tasks (list_name, task, completed) VALUES (?, ?, 0);`, name, task)
	if err != nil {
		return "", fmt.Errorf("could not create task: %w", err)
	}

	return fmt.Sprintf("Task %q added to list %q", task, name), nil
}

func (s *TodoStore) SetTaskComplete(name, task string, complete bool) (string, error) {
	result, err := s.db.Exec(`UPDATE tasks SET completed = ? WHERE list_name = ? AND task = ?;`, complete, name, task)
	if err != nil {
		return "", err
	}

	changes, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if changes == 0 {
		return "", fmt.Errorf("task list not updated, perhaps the task does not exist?")
	}
	if changes > 1 {
		return "", fmt.Errorf("more than one task was updated, this is not normally a good thing")
	}

	return "Success", nil
}

// DeleteTask removes a task from a list. Only completed tasks may be
// deleted.
func (s *TodoStore) DeleteTask(name, task string) (string, error) {
	result, err := s.db.Exec(`DELETE FROM tasks WHERE list_name = ? AND task = ? AND completed = 1;`, name, task)
	if err != nil {
		return "", err
	}

	changes, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if changes == 0 {
		return "", fmt.Errorf("task list not updated: only completed tasks may be deleted from the todo list")
	}
	if changes > 1 {
		return "", fmt.Errorf("it seems more than one task was deleted, this is not normally a good thing")
	}

	return "Success", nil
}

func (s *TodoStore) Lists() (string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT list_name FROM tasks;`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	lists := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		lists = append(lists, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	encoded, err := json.Marshal(lists)
	return string(encoded), err
}

func (s *TodoStore) Tasks(name string) (string, error) {
	rows, err := s.db.Query(`SELECT task, completed FROM tasks WHERE list_name = ?;`, name)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	tasks := []TodoTask{}
	for rows.Next() {
		var task TodoTask
		if err := rows.Scan(&task.Task, &task.Completed); err != nil {
			return "", err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	encoded, err := json.Marshal(tasks)
	return string(encoded), err
}

// TodoTools exposes the todo store to the model.
func TodoTools(store *TodoStore) []Tool {
	requireListAndTask := func(name string, input TodoRequest) error {
		if input.Name == "" {
			return fmt.Errorf("missing 'name' for %s", name)
		}
		if input.Task == "" {
			return fmt.Errorf("missing 'task' for %s", name)
		}
		return nil
	}

	return []Tool{
		NewTool("add_todo_task", "Add a task to a todo list", func(ctx context.Context, input TodoRequest) (string, error) {
			if err := requireListAndTask("add_todo_task", input); err != nil {
				return "", err
			}
			return store.AddTask(input.Name, input.Task)
		}),
		NewTool("complete_todo_task", "Mark a task on a todo list as completed", func(ctx context.Context, input TodoRequest) (string, error) {
			if err := requireListAndTask("complete_todo_task", input); err != nil {
				return "", err
			}
			return store.SetTaskComplete(input.Name, input.Task, true)
		}),
		NewTool("delete_todo_task", "Delete a completed task from a todo list", func(ctx context.Context, input TodoRequest) (string, error) {
			if err := requireListAndTask("delete_todo_task", input); err != nil {
				return "", err
			}
			return store.DeleteTask(input.Name, input.Task)
		}),
		NewTool("get_todo_lists", "List the names of all todo lists", func(ctx context.Context, input TodoRequest) (string, error) {
			return store.Lists()
		}),
		NewTool("get_todo_tasks", "List the tasks on a todo list", func(ctx context.Context, input TodoRequest) (string, error) {
			if input.Name == "" {
				return "", fmt.Errorf("missing 'name' for get_todo_tasks")
			}
			return store.Tasks(input.Name)
		}),
	}
}
