package client

// Task is a todo item as exchanged with the backend.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type addTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// taskIDRequest is the body of delete and change-status calls.
type taskIDRequest struct {
	ID int64 `json:"id"`
}
