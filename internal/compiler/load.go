package compiler

import (
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/cockroachdb/errors"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// LoadValue builds the CUE value at path: a single .cue file, or every
// .cue file of a directory unified into one instance.
func LoadValue(path string) (cue.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, errors.Wrapf(err, "load %s", path)
	}

	cfg := &load.Config{}
	args := []string{"."}
	if info.IsDir() {
		cfg.Dir = path
	} else {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return cue.Value{}, errors.Newf("load %s: no CUE instances", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, formatCUEError(inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// LoadVocab loads, compiles and validates the vocabulary at path.
// Validation failures come back combined into one error.
func LoadVocab(path string) (*ir.VocabSpec, error) {
	v, err := LoadValue(path)
	if err != nil {
		return nil, err
	}
	spec, err := CompileVocab(v)
	if err != nil {
		return nil, err
	}
	if err := Combine(Validate(spec)); err != nil {
		return nil, errors.Wrapf(err, "validate %s", path)
	}
	return spec, nil
}
