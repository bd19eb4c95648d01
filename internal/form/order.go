// Package form implements the ticket form engine: dense ordering of fields
// and sections, visibility resolution, the rendered layout, and the
// structural edits driven by the admin editor.
package form

import (
	"slices"
	"sort"
)

// Orderable is implemented by pointers to items the order maintainer can
// rank. Items sharing a Partition key are numbered 0..n-1 together.
type Orderable[T any] interface {
	*T
	ItemID() string
	Partition() string
	Rank() int
	SetRank(int)
	SetPartition(string)
}

// Partition returns copies of the items in the given partition sorted by rank.
func Partition[T any, PT Orderable[T]](items []T, key string) []T {
	idx := partitionIndices[T, PT](items, key)
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

// Insert adds item to its partition at position and renumbers the
// partition. Positions outside [0, n] append.
func Insert[T any, PT Orderable[T]](items []T, item T, position int) []T {
	idx := partitionIndices[T, PT](items, PT(&item).Partition())
	if position < 0 || position > len(idx) {
		position = len(idx)
	}
	for rank, i := range idx {
		if rank >= position {
			rank++
		}
		PT(&items[i]).SetRank(rank)
	}
	PT(&item).SetRank(position)
	return append(items, item)
}

// Remove deletes the item with the given id and closes the gap it left.
// Unknown ids are a no-op.
func Remove[T any, PT Orderable[T]](items []T, id string) []T {
	i := indexOf[T, PT](items, id)
	if i < 0 {
		return items
	}
	key := PT(&items[i]).Partition()
	items = slices.Delete(items, i, i+1)
	renumber[T, PT](items, key)
	return items
}

// Reorder moves the item at index from to index to within a partition's
// rank sequence. Out-of-range indices are a no-op.
func Reorder[T any, PT Orderable[T]](items []T, key string, from, to int) {
	idx := partitionIndices[T, PT](items, key)
	if from < 0 || from >= len(idx) || to < 0 || to >= len(idx) {
		return
	}
	moved := idx[from]
	idx = slices.Delete(idx, from, from+1)
	idx = slices.Insert(idx, to, moved)
	for rank, i := range idx {
		PT(&items[i]).SetRank(rank)
	}
}

// MoveAcross detaches the item from partition fromKey, assigns toKey, and
// inserts it at target (nil or out of range appends). Both partitions are
// renumbered. Unknown ids and items not currently in fromKey are a no-op.
func MoveAcross[T any, PT Orderable[T]](items []T, id, fromKey, toKey string, target *int) {
	i := indexOf[T, PT](items, id)
	if i < 0 || PT(&items[i]).Partition() != fromKey {
		return
	}
	var dest []int
	for _, j := range partitionIndices[T, PT](items, toKey) {
		if j != i {
			dest = append(dest, j)
		}
	}
	pos := len(dest)
	if target != nil && *target >= 0 && *target <= len(dest) {
		pos = *target
	}
	PT(&items[i]).SetPartition(toKey)
	dest = slices.Insert(dest, pos, i)
	for rank, j := range dest {
		PT(&items[j]).SetRank(rank)
	}
	if fromKey != toKey {
		renumber[T, PT](items, fromKey)
	}
}

// Normalize renumbers every partition densely, keeping the existing
// relative order. Ties keep their slice order.
func Normalize[T any, PT Orderable[T]](items []T) {
	seen := make(map[string]bool)
	for i := range items {
		key := PT(&items[i]).Partition()
		if !seen[key] {
			seen[key] = true
			renumber[T, PT](items, key)
		}
	}
}

// IsDense reports whether every partition is numbered exactly 0..n-1.
func IsDense[T any, PT Orderable[T]](items []T) bool {
	ranks := make(map[string][]int)
	for i := range items {
		p := PT(&items[i])
		ranks[p.Partition()] = append(ranks[p.Partition()], p.Rank())
	}
	for _, rs := range ranks {
		sort.Ints(rs)
		for want, got := range rs {
			if got != want {
				return false
			}
		}
	}
	return true
}

func renumber[T any, PT Orderable[T]](items []T, key string) {
	for rank, i := range partitionIndices[T, PT](items, key) {
		PT(&items[i]).SetRank(rank)
	}
}

// partitionIndices returns the slice indices of the partition's members
// sorted by rank.
func partitionIndices[T any, PT Orderable[T]](items []T, key string) []int {
	var idx []int
	for i := range items {
		if PT(&items[i]).Partition() == key {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return PT(&items[idx[a]]).Rank() < PT(&items[idx[b]]).Rank()
	})
	return idx
}

func indexOf[T any, PT Orderable[T]](items []T, id string) int {
	for i := range items {
		if PT(&items[i]).ItemID() == id {
			return i
		}
	}
	return -1
}
