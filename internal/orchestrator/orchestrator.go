package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/promptatlas/promptminer/internal/extractor"
	"github.com/promptatlas/promptminer/internal/gemini"
	"github.com/promptatlas/promptminer/internal/prompt"
)

// Task state machine: pending → processing → success|error. Never backward.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// TaskStatus tracks one source through extraction. Not persisted; destroyed
// only by clearing the queue.
type TaskStatus struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  State  `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s State) terminal() bool {
	return s == StateSuccess || s == StateError
}

// NATS subjects for platform lifecycle events.
const (
	SubjectTaskStarted   = "prompts.task.started"
	SubjectTaskSucceeded = "prompts.task.succeeded"
	SubjectTaskFailed    = "prompts.task.failed"
	SubjectBatchDone     = "prompts.batch.completed"
)

// Analyzer is the extraction capability consumed per task.
type Analyzer interface {
	Analyze(ctx context.Context, src extractor.Source) ([]prompt.Record, error)
}

// Sink receives extracted records as tasks complete, newest first.
type Sink interface {
	Prepend(records []prompt.Record)
}

// Publisher mirrors the events client. Optional; nil disables publishing.
type Publisher interface {
	Publish(subject string, payload any) error
}

type eventKind int

const (
	evStarted eventKind = iota
	evSucceeded
	evFailed
)

// taskEvent is one message in the single ordered event sink. N concurrent
// task goroutines emit; exactly one consumer folds events into state, so
// there is never multi-writer mutation of the task or session lists.
type taskEvent struct {
	taskID  string
	kind    eventKind
	records []prompt.Record
	message string
}

type Orchestrator struct {
	analyzer Analyzer
	sink     Sink
	pub      Publisher
	logger   *slog.Logger

	events chan taskEvent
	tasks  sync.WaitGroup
	folded chan struct{}

	mu        sync.Mutex
	statuses  []*TaskStatus
	remaining int
}

func New(analyzer Analyzer, sink Sink, pub Publisher, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		analyzer: analyzer,
		sink:     sink,
		pub:      pub,
		logger:   logger,
		events:   make(chan taskEvent, 64),
		folded:   make(chan struct{}),
	}
	go o.fold()
	return o
}

// Close waits for in-flight tasks, then stops the event consumer. Every
// submitted task runs to a terminal state first; there is no cancellation.
func (o *Orchestrator) Close() {
	o.tasks.Wait()
	close(o.events)
	<-o.folded
}

// Process fans a batch out into independent concurrent extraction tasks:
// one per file, plus one for the text field when it is non-blank. Returns
// the created task ids immediately; results arrive via the sink.
func (o *Orchestrator) Process(ctx context.Context, files []extractor.FileSource, text string) []string {
	var sources []extractor.Source
	for _, f := range files {
		sources = append(sources, f)
	}
	if strings.TrimSpace(text) != "" {
		sources = append(sources, extractor.TextSource{Text: text})
	}
	if len(sources) == 0 {
		return nil
	}

	created := make([]*TaskStatus, 0, len(sources))
	o.mu.Lock()
	for _, src := range sources {
		st := &TaskStatus{
			ID:     uuid.NewString(),
			Name:   src.Label(),
			Status: StatePending,
		}
		o.statuses = append(o.statuses, st)
		created = append(created, st)
	}
	o.remaining += len(sources)
	o.mu.Unlock()

	ids := make([]string, len(created))
	for i, st := range created {
		ids[i] = st.ID
		o.tasks.Add(1)
		go o.run(ctx, st.ID, sources[i])
	}
	return ids
}

// run executes one task. The channel preserves per-sender order, so the
// started event always folds before the terminal one.
func (o *Orchestrator) run(ctx context.Context, taskID string, src extractor.Source) {
	defer o.tasks.Done()

	o.events <- taskEvent{taskID: taskID, kind: evStarted}

	records, err := o.analyzer.Analyze(ctx, src)
	if err != nil {
		o.logger.Error("extraction failed", "task", taskID, "source", src.Label(), "error", err)
		o.events <- taskEvent{taskID: taskID, kind: evFailed, message: gemini.ClassifyError(err)}
		return
	}

	message := "No prompts found"
	if len(records) > 0 {
		message = fmt.Sprintf("Found %d prompt(s)", len(records))
	}
	o.events <- taskEvent{taskID: taskID, kind: evSucceeded, records: records, message: message}
}

// fold is the single consumer of the event sink.
func (o *Orchestrator) fold() {
	defer close(o.folded)
	for ev := range o.events {
		o.apply(ev)
	}
}

func (o *Orchestrator) apply(ev taskEvent) {
	o.mu.Lock()
	st := o.findLocked(ev.taskID)
	if st == nil {
		o.mu.Unlock()
		return
	}

	var batchDone bool
	switch ev.kind {
	case evStarted:
		st.Status = StateProcessing
	case evSucceeded:
		st.Status = StateSuccess
		st.Message = ev.message
		o.remaining--
		batchDone = o.remaining == 0
	case evFailed:
		st.Status = StateError
		st.Message = ev.message
		o.remaining--
		batchDone = o.remaining == 0
	}
	name := st.Name
	o.mu.Unlock()

	if ev.kind == evSucceeded && len(ev.records) > 0 {
		o.sink.Prepend(ev.records)
	}

	o.publish(ev, name)
	if batchDone {
		o.publishBatchDone()
	}
}

func (o *Orchestrator) publish(ev taskEvent, name string) {
	if o.pub == nil {
		return
	}
	var subject string
	payload := map[string]any{"task_id": ev.taskID, "source": name}
	switch ev.kind {
	case evStarted:
		subject = SubjectTaskStarted
	case evSucceeded:
		subject = SubjectTaskSucceeded
		payload["prompts"] = len(ev.records)
	case evFailed:
		subject = SubjectTaskFailed
		payload["reason"] = ev.message
	}
	if err := o.pub.Publish(subject, payload); err != nil {
		o.logger.Warn("failed to publish task event", "subject", subject, "error", err)
	}
}

func (o *Orchestrator) publishBatchDone() {
	if o.pub == nil {
		return
	}
	if err := o.pub.Publish(SubjectBatchDone, map[string]any{}); err != nil {
		o.logger.Warn("failed to publish batch completion", "error", err)
	}
}

func (o *Orchestrator) findLocked(id string) *TaskStatus {
	for _, st := range o.statuses {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// Busy reports whether any task of the current batch is still non-terminal.
// The submit control stays disabled while true.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remaining > 0
}

// Tasks returns a snapshot of the queue, newest submissions last.
func (o *Orchestrator) Tasks() []TaskStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]TaskStatus, len(o.statuses))
	for i, st := range o.statuses {
		out[i] = *st
	}
	return out
}

// ClearCompleted drops terminal statuses from the queue.
func (o *Orchestrator) ClearCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.statuses[:0]
	for _, st := range o.statuses {
		if !st.Status.terminal() {
			kept = append(kept, st)
		}
	}
	o.statuses = kept
}
