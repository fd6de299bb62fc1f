package propagate

import (
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// Apply rewrites one argument sequence shaped by s.Old into one shaped by
// s.New. args is not modified. tps is the rate for freshly constructed
// time stamps.
//
// An argument count that disagrees with s.Old means a stored value was
// already out of shape: that is an internal-consistency failure.
func (s *Script) Apply(args []ir.DataValue, tps int64) ([]ir.DataValue, error) {
	if len(args) != len(s.Old) {
		return nil, ir.Internalf("propagate: vocab %d value has %d args, element had %d", s.VocabID, len(args), len(s.Old))
	}

	// 1. deletions
	deleted := make(map[int]bool, len(s.Deletions))
	for _, d := range s.Deletions {
		deleted[d.Pos] = true
	}
	survivors := make(map[ir.ID]ir.DataValue, len(args)-len(deleted))
	for i, a := range args {
		if !deleted[i] {
			survivors[s.Old[i].ID] = a.Clone()
		}
	}

	out := make([]ir.DataValue, len(s.New))
	placed := make([]bool, len(s.New))

	// 2. insertions
	for _, ins := range s.Insertions {
		out[ins.Pos] = ir.Bind(ins.Farg, ir.DefaultValue(ins.Farg, tps))
		placed[ins.Pos] = true
	}

	// 3. survivors in new relative order; moved ones included
	for i, f := range s.New {
		if placed[i] {
			continue
		}
		v, ok := survivors[f.ID]
		if !ok {
			return nil, ir.Internalf("propagate: vocab %d lost argument %d", s.VocabID, f.ID)
		}
		out[i] = v
	}

	// 4. retypes
	for _, r := range s.Retypes {
		v := out[r.Pos].Value
		kindChanged := r.Old.Kind != r.New.Kind
		if (kindChanged && ir.IsEmpty(v)) || !ir.Legal(r.New, v) {
			out[r.Pos].Value = ir.DefaultValue(r.New, tps)
		}
	}

	for i, f := range s.New {
		out[i].FargID = f.ID
		out[i].FargKind = f.Kind
	}
	return out, nil
}

// RewriteMatrix applies s to m if m is shaped by the edited element, then
// to every nested predicate. changed reports whether anything was
// rewritten.
func (s *Script) RewriteMatrix(m ir.Matrix, tps int64) (out ir.Matrix, changed bool, err error) {
	out = m.Clone()
	if !s.ShapeChanged() {
		return out, false, nil
	}
	if out.VocabID == s.VocabID {
		if out.Args, err = s.Apply(out.Args, tps); err != nil {
			return m, false, err
		}
		changed = true
	}
	nested, err := s.rewriteArgs(out.Args, tps)
	if err != nil {
		return m, false, err
	}
	return out, changed || nested, nil
}

// RewriteValue applies s to v and everything nested inside it.
func (s *Script) RewriteValue(v ir.Value, tps int64) (ir.Value, bool, error) {
	if !s.ShapeChanged() {
		return v, false, nil
	}
	v = v.CloneValue()
	changed, err := s.rewriteInPlace(&v, tps)
	return v, changed, err
}

func (s *Script) rewriteArgs(args []ir.DataValue, tps int64) (bool, error) {
	changed := false
	for i := range args {
		c, err := s.rewriteInPlace(&args[i].Value, tps)
		if err != nil {
			return false, err
		}
		changed = changed || c
	}
	return changed, nil
}

// rewriteInPlace works on values already owned by the caller.
func (s *Script) rewriteInPlace(v *ir.Value, tps int64) (bool, error) {
	switch x := (*v).(type) {
	case ir.Predicate:
		changed := false
		if x.VocabID == s.VocabID && x.VocabID.Valid() {
			args, err := s.Apply(x.Args, tps)
			if err != nil {
				return false, err
			}
			x.Args = args
			changed = true
		}
		nested, err := s.rewriteArgs(x.Args, tps)
		if err != nil {
			return false, err
		}
		*v = x
		return changed || nested, nil
	case ir.ColPredicate:
		if !x.VocabID.Valid() {
			return false, nil
		}
		if len(x.Args) < ir.ColPredicateImplicitArgs {
			return false, ir.Internalf("propagate: column predicate on vocab %d has %d args", x.VocabID, len(x.Args))
		}
		changed := false
		if x.VocabID == s.VocabID {
			tail, err := s.Apply(x.Args[ir.ColPredicateImplicitArgs:], tps)
			if err != nil {
				return false, err
			}
			x.Args = append(x.Args[:ir.ColPredicateImplicitArgs:ir.ColPredicateImplicitArgs], tail...)
			changed = true
		}
		nested, err := s.rewriteArgs(x.Args[ir.ColPredicateImplicitArgs:], tps)
		if err != nil {
			return false, err
		}
		*v = x
		return changed || nested, nil
	case ir.Undefined, ir.Integer, ir.Float, ir.Nominal, ir.Text, ir.QuoteString, ir.TimeStamp, nil:
		return false, nil
	}
	return false, ir.Internalf("propagate: unknown value type %T", *v)
}
