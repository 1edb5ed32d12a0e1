// Package reconcile computes record-level diffs between two identity-keyed
// datasets. Reports list only the differing leaf paths, so their size is
// proportional to the actual change volume rather than to the dataset.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/nhomyk/AgenticQA-sub001/internal/dataset"
)

// FieldDiff is one differing leaf path within a changed record.
// Before/After hold rendered values; a nil side means the path is absent
// on that side.
type FieldDiff struct {
	Path   string `json:"path"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// RecordDiff is one changed record with its differing leaf paths.
type RecordDiff struct {
	Identity   string      `json:"identity"`
	FieldDiffs []FieldDiff `json:"field_diffs,omitempty"`
}

// Report is the added/removed/changed outcome of a reconciliation.
// Identity lists are sorted; Changed is sorted by identity.
type Report struct {
	Added   []string     `json:"added"`
	Removed []string     `json:"removed"`
	Changed []RecordDiff `json:"changed"`
}

// Empty reports whether the two sides were identical.
func (r Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// Records reconciles two identity-keyed record sets. Identities only in
// after are added, only in before are removed; identities in both are
// deep-compared field by field and only differing leaf paths are kept.
func Records(before, after map[string]dataset.Record) Report {
	report := Report{Added: []string{}, Removed: []string{}, Changed: []RecordDiff{}}

	for id := range after {
		if _, ok := before[id]; !ok {
			report.Added = append(report.Added, id)
		}
	}
	for id, prev := range before {
		next, ok := after[id]
		if !ok {
			report.Removed = append(report.Removed, id)
			continue
		}
		diffs := diffValue("", prev.Fields, next.Fields)
		if len(diffs) > 0 {
			report.Changed = append(report.Changed, RecordDiff{Identity: id, FieldDiffs: diffs})
		}
	}

	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	sort.Slice(report.Changed, func(i, j int) bool {
		return report.Changed[i].Identity < report.Changed[j].Identity
	})
	return report
}

// Checksums reconciles two leaf-checksum maps. Used for baseline
// comparison, where the reference holds checksums but not record content,
// so changed records carry no field diffs.
func Checksums(before, after map[string]string) Report {
	report := Report{Added: []string{}, Removed: []string{}, Changed: []RecordDiff{}}

	for id := range after {
		if _, ok := before[id]; !ok {
			report.Added = append(report.Added, id)
		}
	}
	for id, prev := range before {
		next, ok := after[id]
		switch {
		case !ok:
			report.Removed = append(report.Removed, id)
		case prev != next:
			report.Changed = append(report.Changed, RecordDiff{Identity: id})
		}
	}

	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	sort.Slice(report.Changed, func(i, j int) bool {
		return report.Changed[i].Identity < report.Changed[j].Identity
	})
	return report
}

// diffValue walks two values in parallel and collects differing leaf
// paths. Composite values recurse; a type mismatch or scalar inequality
// is a leaf diff at the current path.
func diffValue(path string, before, after dataset.Value) []FieldDiff {
	beforeObj, beforeIsObj := before.(dataset.Object)
	afterObj, afterIsObj := after.(dataset.Object)
	if beforeIsObj && afterIsObj {
		return diffObject(path, beforeObj, afterObj)
	}

	beforeArr, beforeIsArr := before.(dataset.Array)
	afterArr, afterIsArr := after.(dataset.Array)
	if beforeIsArr && afterIsArr {
		return diffArray(path, beforeArr, afterArr)
	}

	if dataset.Equal(before, after) {
		return nil
	}
	return []FieldDiff{{Path: path, Before: dataset.ToAny(before), After: dataset.ToAny(after)}}
}

func diffObject(path string, before, after dataset.Object) []FieldDiff {
	var diffs []FieldDiff

	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		childPath := k
		if path != "" {
			childPath = path + "." + k
		}
		prev, inBefore := before[k]
		next, inAfter := after[k]
		switch {
		case !inBefore:
			diffs = append(diffs, FieldDiff{Path: childPath, Before: nil, After: dataset.ToAny(next)})
		case !inAfter:
			diffs = append(diffs, FieldDiff{Path: childPath, Before: dataset.ToAny(prev), After: nil})
		default:
			diffs = append(diffs, diffValue(childPath, prev, next)...)
		}
	}
	return diffs
}

func diffArray(path string, before, after dataset.Array) []FieldDiff {
	var diffs []FieldDiff
	n := len(before)
	if len(after) > n {
		n = len(after)
	}
	for i := 0; i < n; i++ {
		childPath := fmt.Sprintf("%s[%d]", path, i)
		switch {
		case i >= len(before):
			diffs = append(diffs, FieldDiff{Path: childPath, Before: nil, After: dataset.ToAny(after[i])})
		case i >= len(after):
			diffs = append(diffs, FieldDiff{Path: childPath, Before: dataset.ToAny(before[i]), After: nil})
		default:
			diffs = append(diffs, diffValue(childPath, before[i], after[i])...)
		}
	}
	return diffs
}
