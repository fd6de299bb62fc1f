package propagate

import (
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// RetargetMatrix replaces every reference to the removed vocabulary element
// anywhere inside m with the empty value of the slot holding it: undefined
// under untyped arguments, the empty predicate or column predicate under
// typed ones.
func RetargetMatrix(m ir.Matrix, removed ir.ID) (ir.Matrix, bool) {
	out := m.Clone()
	changed := retargetArgs(out.Args, removed)
	return out, changed
}

func retargetArgs(args []ir.DataValue, removed ir.ID) bool {
	changed := false
	for i := range args {
		if retargetSlot(&args[i], removed) {
			changed = true
		}
	}
	return changed
}

func retargetSlot(dv *ir.DataValue, removed ir.ID) bool {
	switch x := dv.Value.(type) {
	case ir.Predicate:
		if x.VocabID == removed {
			dv.Value = emptyFor(dv.FargKind)
			return true
		}
		changed := retargetArgs(x.Args, removed)
		dv.Value = x
		return changed
	case ir.ColPredicate:
		if x.VocabID == removed {
			dv.Value = emptyFor(dv.FargKind)
			return true
		}
		changed := retargetArgs(x.Args, removed)
		dv.Value = x
		return changed
	}
	return false
}

func emptyFor(kind ir.FargKind) ir.Value {
	switch kind {
	case ir.FargPredicate:
		return ir.Predicate{}
	case ir.FargColPredicate:
		return ir.ColPredicate{}
	}
	return ir.Undefined{}
}

// References reports whether m mentions vocabulary element id at any depth.
func References(m ir.Matrix, id ir.ID) bool {
	return argsReference(m.Args, id)
}

func argsReference(args []ir.DataValue, id ir.ID) bool {
	for _, a := range args {
		switch x := a.Value.(type) {
		case ir.Predicate:
			if x.VocabID == id || argsReference(x.Args, id) {
				return true
			}
		case ir.ColPredicate:
			if x.VocabID == id || argsReference(x.Args, id) {
				return true
			}
		}
	}
	return false
}
