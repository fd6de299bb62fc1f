package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"
	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/compiler"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// LoadResult contains the vocabulary loaded from a spec path.
type LoadResult struct {
	Spec      *ir.VocabSpec
	FileCount int // number of CUE files found
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs compiles and validates the vocabulary declared at path, a
// .cue file or a directory of them. All validation errors are returned;
// the result is nil whenever the vocabulary could not be compiled.
func LoadSpecs(path string) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs path: %v", err)}}
	}

	count := 1
	if info.IsDir() {
		files, err := FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
		count = len(files)
	}

	v, err := compiler.LoadValue(path)
	if err != nil {
		return nil, []error{convertCompileError(err, ErrCodeLoadFailed)}
	}
	spec, err := compiler.CompileVocab(v)
	if err != nil {
		return nil, []error{convertCompileError(err, ErrCodeBuildFailed)}
	}

	result := &LoadResult{Spec: spec, FileCount: count}
	var errs []error
	for _, ve := range compiler.Validate(spec) {
		errs = append(errs, &LoadError{Code: ve.Code, Message: ve.Field + ": " + ve.Message})
	}
	return result, errs
}

// loadSpec is LoadSpecs for commands that stop at the first problem.
func loadSpec(path string) (*ir.VocabSpec, error) {
	result, errs := LoadSpecs(path)
	if len(errs) > 0 {
		return nil, multierr.Combine(errs...)
	}
	return result.Spec, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with
// position info.
func convertCompileError(err error, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field, fallback),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: fallback, Message: err.Error()}
}

// Error code constants for load and command failures. Validation failures
// carry the compiler's E1xx codes; database errors their caller codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE value does not compile to a vocabulary
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeJournal     = "E008" // Journal unreadable
)

// MapFieldToErrorCode maps a compiler error field to an error code. CUE
// syntax and evaluation errors are load failures; anything else keeps
// fallback.
func MapFieldToErrorCode(field, fallback string) string {
	if field == "cue" {
		return ErrCodeLoadFailed
	}
	return fallback
}
