package ir

import "strconv"

// ID identifies a stored element for the lifetime of one database image.
// IDs are minted by the index only and are never reused.
type ID int64

// InvalidID is the unassigned sentinel. New elements carry it until the
// index registers them.
const InvalidID ID = 0

// Valid reports whether id has been assigned.
func (id ID) Valid() bool {
	return id > InvalidID
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Element is a sealed interface over everything the index can own:
// *VocabElement, *FormalArg, *Column and *Cell.
type Element interface {
	ElementID() ID
	SetElementID(id ID)
	// CloneElement returns a deep copy sharing no mutable state.
	CloneElement() Element
	element()
}
