package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// execInfo is one property of the program run.
type execInfo struct {
	Property string
	Value    string
}

// execRecorder records when and how the program ran.
type execRecorder struct {
	tablename string
	recorder  DataRecorder
	entries   []execInfo
}

// Start notes the start time, the command line, and the working directory.
func (e *execRecorder) Start() {
	startTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.entries = append(e.entries, execInfo{"Start Time", startTime})

	cmd := strings.Join(os.Args, " ")
	e.entries = append(e.entries, execInfo{"Command", cmd})

	if ex, err := os.Executable(); err == nil {
		e.entries = append(e.entries,
			execInfo{"Executable Directory", filepath.Dir(ex)})
	}

	if cwd, err := os.Getwd(); err == nil {
		e.entries = append(e.entries, execInfo{"Working Directory", cwd})
	}
}

// End writes the noted properties along with the end time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(e.tablename, entry)
	}

	endTime := time.Now().Format("2006-01-02 15:04:05.000000000")
	e.recorder.InsertData(e.tablename, execInfo{"End Time", endTime})

	e.entries = nil

	e.recorder.Flush()
}

func newExecRecorder(writer DataRecorder) *execRecorder {
	e := &execRecorder{
		tablename: "exec_info",
		recorder:  writer,
	}

	writer.CreateTable(e.tablename, execInfo{})

	return e
}
