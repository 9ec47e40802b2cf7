package service

import "github.com/tintun2602/eduwallet-sub000/pkg/models/record"

// ProgramGroup is the results of one program, in the order they appear in the record.
type ProgramGroup struct {
	ProgramName  string          `json:"programName"`
	Results      []record.Result `json:"results"`
	TotalCredits float64         `json:"totalCredits"`
}

// CounterpartyGroup is the results issued by one counterparty, split by program.
type CounterpartyGroup struct {
	Counterparty string         `json:"counterparty"`
	Programs     []ProgramGroup `json:"programs"`
	TotalCredits float64        `json:"totalCredits"`
}

// GroupByProgram keeps the results issued by the counterparty and buckets them by program name.
// Within a bucket, results keep their relative order.
//
// Parameters:
//
//	the results of a holder
//	the counterparty address to filter on
//
// Returns:
//
//	the results keyed by program name
func GroupByProgram(results []record.Result, counterparty string) map[string][]record.Result {
	grouped := make(map[string][]record.Result)
	for _, r := range results {
		if r.Counterparty != counterparty {
			continue
		}
		grouped[r.ProgramName] = append(grouped[r.ProgramName], r)
	}

	return grouped
}

// OrderedGroupByProgram is `GroupByProgram` with the buckets listed in order of the first appearance of each program.
func OrderedGroupByProgram(results []record.Result, counterparty string) []ProgramGroup {
	groups := []ProgramGroup{}
	index := make(map[string]int)

	for _, r := range results {
		if r.Counterparty != counterparty {
			continue
		}

		i, ok := index[r.ProgramName]
		if !ok {
			i = len(groups)
			index[r.ProgramName] = i
			groups = append(groups, ProgramGroup{ProgramName: r.ProgramName})
		}
		groups[i].Results = append(groups[i].Results, r)
		groups[i].TotalCredits += r.Credits
	}

	return groups
}

// GroupByCounterparty buckets results by issuing counterparty and then by program. Counterparties and programs are
// listed in order of first appearance.
func GroupByCounterparty(results []record.Result) []CounterpartyGroup {
	groups := []CounterpartyGroup{}
	seen := make(map[string]bool)

	for _, r := range results {
		if seen[r.Counterparty] {
			continue
		}
		seen[r.Counterparty] = true

		group := CounterpartyGroup{
			Counterparty: r.Counterparty,
			Programs:     OrderedGroupByProgram(results, r.Counterparty),
		}
		for _, p := range group.Programs {
			group.TotalCredits += p.TotalCredits
		}
		groups = append(groups, group)
	}

	return groups
}

// EvaluatedCredits sums the credits of evaluated results only.
func EvaluatedCredits(results []record.Result) float64 {
	total := 0.0
	for i := range results {
		if results[i].IsEvaluated() {
			total += results[i].Credits
		}
	}

	return total
}
