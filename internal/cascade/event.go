package cascade

import (
	"fmt"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// EventKind identifies what happened.
type EventKind uint8

const (
	EventCascadeBegin EventKind = iota + 1
	EventCascadeEnd
	EventVocabAdded
	EventVocabChanged
	EventVocabDeleted
	EventColumnAdded
	EventColumnChanged
	EventColumnDeleted
	EventCellInserted
	EventCellChanged
	EventCellDeleted
)

var eventKindNames = map[EventKind]string{
	EventCascadeBegin:  "cascade_begin",
	EventCascadeEnd:    "cascade_end",
	EventVocabAdded:    "vocab_added",
	EventVocabChanged:  "vocab_changed",
	EventVocabDeleted:  "vocab_deleted",
	EventColumnAdded:   "column_added",
	EventColumnChanged: "column_changed",
	EventColumnDeleted: "column_deleted",
	EventCellInserted:  "cell_inserted",
	EventCellChanged:   "cell_changed",
	EventCellDeleted:   "cell_deleted",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("event_kind(%d)", uint8(k))
}

// ParseEventKind maps an event kind name back to its EventKind.
func ParseEventKind(s string) (EventKind, bool) {
	for k, name := range eventKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Event is one notification. Old and New are private copies: a listener
// may keep or modify them freely. Old is nil for additions, New is nil for
// deletions, both are nil for cascade brackets.
type Event struct {
	Kind      EventKind
	Seq       int64
	Token     string
	ElementID ir.ID
	ColumnID  ir.ID
	Old       ir.Element
	New       ir.Element
}

// Bracket reports whether the event is a cascade begin or end marker.
func (e Event) Bracket() bool {
	return e.Kind == EventCascadeBegin || e.Kind == EventCascadeEnd
}

// Handler consumes events.
type Handler interface {
	HandleEvent(ev Event) error
}

// HandlerFunc adapts a function to Handler. Function values are not
// comparable, so a HandlerFunc can only be deregistered by ListenerID.
type HandlerFunc func(ev Event) error

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev Event) error {
	return f(ev)
}

func (e Event) clone() Event {
	if e.Old != nil {
		e.Old = e.Old.CloneElement()
	}
	if e.New != nil {
		e.New = e.New.CloneElement()
	}
	return e
}
