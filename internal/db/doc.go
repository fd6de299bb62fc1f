// Package db is the composition root of a database image.
//
// A Database owns one index, one cascade dispatcher, one vocabulary
// registry and one column registry, and exposes the public vocabulary,
// column and cell operations. It is also the registries' collaborator for
// everything that spans them: value validation against the vocabulary,
// rewriting stored cells when a vocabulary element's arguments change,
// retargeting references to removed elements, and keeping a data column's
// name in lockstep with its matrix element.
//
// ERROR TIERS:
//
// Caller errors (*ir.Error) are reported before anything is mutated.
// Internal-consistency failures (ir.IsInternal) mean an invariant broke
// mid-edit. There is no rollback: the image is marked broken and every
// later mutating call fails with ErrImageBroken.
//
// A Database is single-writer. It must be driven from one goroutine, and
// listeners run synchronously on that goroutine.
package db
