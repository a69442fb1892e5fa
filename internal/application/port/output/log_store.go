package output

// LogStore is the durable, append-only job log boundary.
// Paths are absolute; Append serializes concurrent writers.
type LogStore interface {
	// Append writes one line, creating the file as needed
	Append(path, line string) error

	// ReadAll returns the whole log; missing files read as empty
	ReadAll(path string) (string, error)

	// Tail returns the last n lines
	Tail(path string, n int) ([]string, error)

	// Exists reports whether a log file exists
	Exists(path string) (bool, error)
}
