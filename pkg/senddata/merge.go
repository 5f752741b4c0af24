package senddata

import "github.com/backkem/zwave/pkg/commandclass"

// Merge folds partials into target when target supports merging. partials
// must be in the order they were classified. Commands without merge
// support are left untouched.
func Merge(target commandclass.Command, partials []commandclass.Command) error {
	m, ok := target.(commandclass.PartialMerger)
	if !ok {
		return nil
	}
	return m.MergePartials(partials)
}
