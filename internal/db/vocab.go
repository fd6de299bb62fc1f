package db

import (
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/vocab"
)

// AddPredicate adds a predicate vocabulary element and returns its id.
func (d *Database) AddPredicate(name string, fargs ...ir.FormalArg) (ir.ID, error) {
	var id ir.ID
	err := d.mutate("db.add_predicate", func() error {
		ve := ir.NewPredicateElement(name, cloneFargs(fargs)...)
		var err error
		id, err = d.vocab.Add(ve)
		return err
	})
	return id, err
}

// ReplaceVocabElement substitutes a user-editable vocabulary element. ve
// should start from a copy returned by VocabElement: arguments that keep
// their id are edited in place, arguments with InvalidID are new. Stored
// cells are rewritten to the new argument list before this returns.
//
// Renaming the matrix element of a data column renames the column.
func (d *Database) ReplaceVocabElement(ve *ir.VocabElement) error {
	return d.mutate("db.replace_vocab_element", func() error {
		return d.vocab.Replace(ve.Clone())
	})
}

// RemoveVocabElement deletes a predicate element. Values that referenced
// it become the empty value of their slot.
func (d *Database) RemoveVocabElement(id ir.ID) error {
	return d.mutate("db.remove_vocab_element", func() error {
		return d.vocab.Remove(id)
	})
}

// VocabElement returns a copy of a vocabulary element.
func (d *Database) VocabElement(id ir.ID) (*ir.VocabElement, error) {
	return d.vocab.Get(id)
}

// VocabElementByName returns a copy of the named vocabulary element.
func (d *Database) VocabElementByName(name string) (*ir.VocabElement, error) {
	return d.vocab.GetByName(name)
}

// VocabElements lists vocabulary elements of one kind in creation order.
// Kind 0 lists both kinds.
func (d *Database) VocabElements(kind ir.VocabKind, filter vocab.SystemFilter) ([]*ir.VocabElement, error) {
	return d.vocab.List(kind, filter)
}

// FormalArg returns a copy of a formal argument by id.
func (d *Database) FormalArg(id ir.ID) (ir.FormalArg, error) {
	const op = "db.formal_arg"
	e, ok := d.index.Lookup(id)
	if !ok {
		return ir.FormalArg{}, ir.ErrorfID(ir.CodeNotFound, op, id, "no formal argument")
	}
	f, ok := e.(*ir.FormalArg)
	if !ok {
		return ir.FormalArg{}, ir.ErrorfID(ir.CodeKindMismatch, op, id, "not a formal argument")
	}
	return *f, nil
}

func cloneFargs(fargs []ir.FormalArg) []ir.FormalArg {
	out := make([]ir.FormalArg, len(fargs))
	for i, f := range fargs {
		out[i] = f.Clone()
	}
	return out
}
