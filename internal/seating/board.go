package seating

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"wedding/internal/guest"
)

// GroupID names a seating group: a table number, or Unassigned.
type GroupID int

// Unassigned holds every guest without both a table and a seat.
const Unassigned GroupID = 0

const unassignedText = "unassigned"

var errBadGroup = errors.New(`group must be "unassigned" or a positive table number`)

// ParseGroupID accepts "unassigned" or a positive integer.
func ParseGroupID(s string) (GroupID, error) {
	if s == unassignedText {
		return Unassigned, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", errBadGroup, s)
	}
	return GroupID(n), nil
}

func (g GroupID) String() string {
	if g == Unassigned {
		return unassignedText
	}
	return strconv.Itoa(int(g))
}

// Table returns the table number, or nil for Unassigned.
func (g GroupID) Table() *int {
	if g == Unassigned {
		return nil
	}
	n := int(g)
	return &n
}

func (g GroupID) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

// UnmarshalJSON accepts a quoted group name or a bare table number.
func (g *GroupID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("%w: %s", errBadGroup, b)
		}
		s = strconv.Itoa(n)
	}
	return g.UnmarshalText([]byte(s))
}

func (g *GroupID) UnmarshalText(b []byte) error {
	id, err := ParseGroupID(string(b))
	if err != nil {
		return err
	}
	*g = id
	return nil
}

// Board is the grouped view of every guest. Each guest is in exactly one group.
type Board map[GroupID][]guest.Record

// GroupByTable derives a board from the full guest list and the seated list.
// Seated guests are grouped by table in seat order, tables 1..tableCount always
// exist, and every other guest lands in Unassigned in the order of all.
func GroupByTable(all, seated []guest.Record, tableCount int) Board {
	b := make(Board, tableCount+1)
	for t := 1; t <= tableCount; t++ {
		b[GroupID(t)] = []guest.Record{}
	}

	placed := make(map[int64]struct{}, len(seated))
	for _, rec := range seated {
		if !rec.Seated() || *rec.Table <= 0 {
			continue
		}
		g := GroupID(*rec.Table)
		b[g] = append(b[g], rec)
		placed[rec.ID] = struct{}{}
	}
	for g, recs := range b {
		if g == Unassigned {
			continue
		}
		sort.SliceStable(recs, func(i, j int) bool { return *recs[i].Seat < *recs[j].Seat })
	}

	unassigned := []guest.Record{}
	for _, rec := range all {
		if _, ok := placed[rec.ID]; ok {
			continue
		}
		unassigned = append(unassigned, rec)
	}
	b[Unassigned] = unassigned
	return b
}

// Groups returns group ids with tables ascending and Unassigned last.
func (b Board) Groups() []GroupID {
	ids := make([]GroupID, 0, len(b))
	for g := range b {
		ids = append(ids, g)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i] == Unassigned || ids[j] == Unassigned {
			return ids[j] == Unassigned && ids[i] != Unassigned
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Clone copies the board so the copy's groups can be reordered freely.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	for g, recs := range b {
		cp := make([]guest.Record, len(recs))
		copy(cp, recs)
		out[g] = cp
	}
	return out
}

// Len is the number of guests on the board.
func (b Board) Len() int {
	n := 0
	for _, recs := range b {
		n += len(recs)
	}
	return n
}
