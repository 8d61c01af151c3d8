package common

// ContiguousRuns partitions sorted indices into maximal runs in which each
// element equals the previous one plus step. Concatenating the runs in order
// reproduces the input.
func ContiguousRuns(indices []int, step int) [][]int {
	if len(indices) == 0 {
		return [][]int{}
	}

	runs := [][]int{}
	current := []int{indices[0]}
	prev := indices[0]

	for _, n := range indices[1:] {
		if n == prev+step {
			current = append(current, n)
		} else {
			runs = append(runs, current)
			current = []int{n}
		}
		prev = n
	}

	return append(runs, current)
}
