package propagate

import (
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// Deletion is an argument removed from the list. Pos is its old position.
type Deletion struct {
	FargID ir.ID
	Pos    int
}

// Insertion is an argument new to the list. Pos is its new position.
type Insertion struct {
	Farg ir.FormalArg
	Pos  int
}

// Move is a surviving argument whose relative order changed.
type Move struct {
	FargID   ir.ID
	From, To int
}

// Retype is a surviving argument whose kind or constraint changed. Pos is
// its new position.
type Retype struct {
	Old, New ir.FormalArg
	Pos      int
}

// Rename is a surviving argument whose name changed.
type Rename struct {
	FargID   ir.ID
	From, To string
}

// Script is the edit script between two argument lists of one vocabulary
// element.
type Script struct {
	VocabID    ir.ID
	Old, New   []ir.FormalArg
	Deletions  []Deletion
	Insertions []Insertion
	Moves      []Move
	Retypes    []Retype
	Renames    []Rename

	oldPos map[ir.ID]int
}

// Diff classifies the change from old to new by argument id. Every
// argument must carry an assigned id, unique within its list; inserted
// arguments are allocated ids before diffing.
func Diff(vocabID ir.ID, old, new []ir.FormalArg) (*Script, error) {
	s := &Script{
		VocabID: vocabID,
		Old:     cloneFargs(old),
		New:     cloneFargs(new),
		oldPos:  make(map[ir.ID]int, len(old)),
	}
	for i, f := range old {
		if !f.ID.Valid() {
			return nil, ir.Internalf("propagate: old argument %q at %d has no id", f.Name, i)
		}
		if _, dup := s.oldPos[f.ID]; dup {
			return nil, ir.Internalf("propagate: old argument id %d repeated", f.ID)
		}
		s.oldPos[f.ID] = i
	}
	newPos := make(map[ir.ID]int, len(new))
	for i, f := range new {
		if !f.ID.Valid() {
			return nil, ir.Internalf("propagate: new argument %q at %d has no id", f.Name, i)
		}
		if _, dup := newPos[f.ID]; dup {
			return nil, ir.Internalf("propagate: new argument id %d repeated", f.ID)
		}
		newPos[f.ID] = i
	}

	var oldSurvivors []ir.ID
	for i, f := range old {
		if _, ok := newPos[f.ID]; !ok {
			s.Deletions = append(s.Deletions, Deletion{FargID: f.ID, Pos: i})
			continue
		}
		oldSurvivors = append(oldSurvivors, f.ID)
	}
	rank := make(map[ir.ID]int, len(oldSurvivors))
	for r, id := range oldSurvivors {
		rank[id] = r
	}

	survivorRank := 0
	for i, f := range new {
		from, ok := s.oldPos[f.ID]
		if !ok {
			s.Insertions = append(s.Insertions, Insertion{Farg: f.Clone(), Pos: i})
			continue
		}
		if rank[f.ID] != survivorRank {
			s.Moves = append(s.Moves, Move{FargID: f.ID, From: from, To: i})
		}
		survivorRank++

		prev := old[from]
		if !prev.SameShape(f) {
			s.Retypes = append(s.Retypes, Retype{Old: prev.Clone(), New: f.Clone(), Pos: i})
		}
		if prev.Name != f.Name {
			s.Renames = append(s.Renames, Rename{FargID: f.ID, From: prev.Name, To: f.Name})
		}
	}
	return s, nil
}

// ShapeChanged reports whether values shaped by the element must be
// rewritten. A script of renames only leaves every value as it is.
func (s *Script) ShapeChanged() bool {
	return len(s.Deletions)+len(s.Insertions)+len(s.Moves)+len(s.Retypes) > 0
}

// Empty reports whether old and new lists are identical.
func (s *Script) Empty() bool {
	return !s.ShapeChanged() && len(s.Renames) == 0
}

func cloneFargs(fargs []ir.FormalArg) []ir.FormalArg {
	out := make([]ir.FormalArg, len(fargs))
	for i, f := range fargs {
		out[i] = f.Clone()
	}
	return out
}
