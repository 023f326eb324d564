package grading

import (
	"sort"

	"github.com/pavelanni/examgrader/internal/model"
)

// Diff returns the question numbers whose verdict or score differs between
// two results of the same submission, in ascending order.
func Diff(before, after model.GradedResult) []int {
	prev := make(map[int]model.ItemResult, len(before.Items))
	for _, it := range before.Items {
		prev[it.QuestionNumber] = it
	}

	var changed []int
	seen := make(map[int]bool, len(after.Items))
	for _, it := range after.Items {
		seen[it.QuestionNumber] = true
		old, ok := prev[it.QuestionNumber]
		if !ok || old.Score != it.Score || !sameVerdict(old.Correct, it.Correct) {
			changed = append(changed, it.QuestionNumber)
		}
	}
	for n := range prev {
		if !seen[n] {
			changed = append(changed, n)
		}
	}
	sort.Ints(changed)
	return changed
}

func sameVerdict(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
