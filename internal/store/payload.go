package store

import (
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// eventPayload builds the canonical payload of a change event: the old
// and new element images, each omitted when absent.
func eventPayload(ev cascade.Event) ([]byte, error) {
	obj := map[string]any{}
	if ev.Old != nil {
		old, err := elementTree(ev.Old)
		if err != nil {
			return nil, errors.Wrap(err, "old")
		}
		obj["old"] = old
	}
	if ev.New != nil {
		nw, err := elementTree(ev.New)
		if err != nil {
			return nil, errors.Wrap(err, "new")
		}
		obj["new"] = nw
	}
	return marshalCanonical(obj)
}

func elementTree(e ir.Element) (map[string]any, error) {
	switch el := e.(type) {
	case *ir.VocabElement:
		fargs := make([]any, len(el.Fargs))
		for i, f := range el.Fargs {
			fargs[i] = fargTree(f)
		}
		obj := map[string]any{
			"type":   "vocab",
			"id":     int64(el.ID),
			"name":   el.Name,
			"kind":   el.Kind.String(),
			"system": el.System,
			"fargs":  fargs,
		}
		if el.ColumnID.Valid() {
			obj["column_id"] = int64(el.ColumnID)
			obj["matrix_type"] = el.MatrixType.String()
		}
		return obj, nil
	case *ir.FormalArg:
		return fargTree(*el), nil
	case *ir.Column:
		obj := map[string]any{
			"type":   "column",
			"id":     int64(el.ID),
			"name":   el.Name,
			"kind":   el.Kind.String(),
			"hidden": el.Hidden,
		}
		if el.VocabID.Valid() {
			obj["vocab_id"] = int64(el.VocabID)
			obj["matrix_type"] = el.MatrixType.String()
		}
		return obj, nil
	case *ir.Cell:
		args, err := argsTree(el.Value.Args)
		if err != nil {
			return nil, err
		}
		obj := map[string]any{
			"type":      "cell",
			"id":        int64(el.ID),
			"column_id": int64(el.ColumnID),
			"kind":      el.Kind.String(),
			"ord":       int64(el.Ord),
			"onset":     timeTree(el.Onset),
			"offset":    timeTree(el.Offset),
			"vocab_id":  int64(el.Value.VocabID),
			"args":      args,
		}
		if el.Comment != "" {
			obj["comment"] = el.Comment
		}
		if el.TargetID.Valid() {
			obj["target_id"] = int64(el.TargetID)
		}
		return obj, nil
	default:
		return nil, errors.AssertionFailedf("unexpected element type %T", e)
	}
}

func fargTree(f ir.FormalArg) map[string]any {
	obj := map[string]any{
		"type":     "farg",
		"id":       int64(f.ID),
		"vocab_id": int64(f.VocabID),
		"name":     f.Name,
		"kind":     f.Kind.String(),
	}
	if f.Constraint != nil {
		obj["constraint"] = f.Constraint.String()
	}
	return obj
}

func argsTree(args []ir.DataValue) ([]any, error) {
	out := make([]any, len(args))
	for i, dv := range args {
		v, err := valueTree(dv.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "arg %d", i)
		}
		out[i] = map[string]any{
			"farg_id":   int64(dv.FargID),
			"farg_kind": dv.FargKind.String(),
			"value":     v,
		}
	}
	return out, nil
}

func valueTree(v ir.Value) (map[string]any, error) {
	if v == nil {
		return map[string]any{"kind": ir.ValueUndefined.String()}, nil
	}
	obj := map[string]any{"kind": v.Kind().String()}
	switch val := v.(type) {
	case ir.Undefined:
	case ir.Integer:
		obj["value"] = int64(val)
	case ir.Float:
		obj["value"] = strconv.FormatFloat(float64(val), 'g', -1, 64)
	case ir.Nominal:
		obj["value"] = string(val)
	case ir.Text:
		obj["value"] = string(val)
	case ir.QuoteString:
		obj["value"] = string(val)
	case ir.TimeStamp:
		obj["value"] = timeTree(val)
	case ir.Predicate:
		args, err := argsTree(val.Args)
		if err != nil {
			return nil, err
		}
		obj["vocab_id"] = int64(val.VocabID)
		obj["args"] = args
	case ir.ColPredicate:
		args, err := argsTree(val.Args)
		if err != nil {
			return nil, err
		}
		obj["vocab_id"] = int64(val.VocabID)
		obj["args"] = args
	default:
		return nil, errors.AssertionFailedf("unexpected value type %T", v)
	}
	return obj, nil
}

func timeTree(ts ir.TimeStamp) map[string]any {
	return map[string]any{"ticks": ts.Ticks, "tps": ts.TPS}
}
