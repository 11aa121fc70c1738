// Package transfer records moves between storage locations and rebuilds the
// multi-size batches they were entered as.
package transfer

import (
	"sort"

	"fishfarm-backend/internal/models"
)

// Key identifies a batch: records created together share every field. Two
// unrelated single-size transfers entered in the same microsecond with equal
// notes are indistinguishable and merge.
type Key struct {
	From      string
	To        string
	CreatedAt int64 // unix microseconds
	Notes     string
}

func KeyOf(t models.TransferRecord) Key {
	return Key{
		From:      t.FromStorageID,
		To:        t.ToStorageID,
		CreatedAt: t.CreatedAt.UnixMicro(),
		Notes:     t.Notes,
	}
}

// View is a single transfer or a batch. For a batch the embedded record is the
// representative (first member) with Quantity and WeightKg replaced by totals.
type View struct {
	models.TransferRecord

	IsBatch            bool                    `json:"is_batch"`
	BatchSizes         []int                   `json:"batch_sizes,omitempty"`
	TotalBatchQuantity int                     `json:"total_batch_quantity,omitempty"`
	TotalBatchWeightKg float64                 `json:"total_batch_weight_kg,omitempty"`
	BatchTransfers     []models.TransferRecord `json:"batch_transfers,omitempty"`
}

// Members returns the records behind v.
func (v View) Members() []models.TransferRecord {
	if v.IsBatch {
		return v.BatchTransfers
	}
	return []models.TransferRecord{v.TransferRecord}
}

// Group collapses records sharing a Key into batch views. Members are ordered
// by size class then id, and the output by creation time, newest first.
func Group(records []models.TransferRecord) []View {
	index := make(map[Key][]models.TransferRecord)
	order := make([]Key, 0)
	for _, r := range records {
		k := KeyOf(r)
		if _, ok := index[k]; !ok {
			order = append(order, k)
		}
		index[k] = append(index[k], r)
	}

	views := make([]View, 0, len(order))
	for _, k := range order {
		members := index[k]
		sortMembers(members)
		if len(members) == 1 {
			views = append(views, View{TransferRecord: members[0]})
			continue
		}
		views = append(views, batchView(members))
	}

	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].CreatedAt, views[j].CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return views[i].ID < views[j].ID
	})
	return views
}

func sortMembers(ms []models.TransferRecord) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].SizeClass != ms[j].SizeClass {
			return ms[i].SizeClass < ms[j].SizeClass
		}
		return ms[i].ID < ms[j].ID
	})
}

func batchView(members []models.TransferRecord) View {
	v := View{
		TransferRecord: members[0],
		IsBatch:        true,
		BatchTransfers: members,
	}
	seen := make(map[int]bool)
	for _, m := range members {
		v.TotalBatchQuantity += m.Quantity
		v.TotalBatchWeightKg += m.WeightKg
		if !seen[m.SizeClass] {
			seen[m.SizeClass] = true
			v.BatchSizes = append(v.BatchSizes, m.SizeClass)
		}
	}
	sort.Ints(v.BatchSizes)
	v.Quantity = v.TotalBatchQuantity
	v.WeightKg = v.TotalBatchWeightKg
	return v
}

// Flatten is the inverse of Group: every underlying record, batches expanded.
func Flatten(views []View) []models.TransferRecord {
	out := make([]models.TransferRecord, 0, len(views))
	for _, v := range views {
		out = append(out, v.Members()...)
	}
	return out
}
