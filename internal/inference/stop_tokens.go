package inference

import "slices"

// BuildStopTokens collects the ids that end generation: the model's eos id,
// a forced eos id and any extra ids. Ids <= 0 are ignored and duplicates are
// dropped.
func BuildStopTokens(eosID, forcedEOSID int, extra ...int) []int {
	stop := make([]int, 0, 2+len(extra))
	for _, id := range append([]int{eosID, forcedEOSID}, extra...) {
		if id <= 0 || slices.Contains(stop, id) {
			continue
		}
		stop = append(stop, id)
	}
	return stop
}
