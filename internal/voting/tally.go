package voting

import (
	"sort"
	"strings"
)

type Entry struct {
	CostumeID  uint   `json:"costume_id"`
	Name       string `json:"name"`
	WearerName string `json:"wearer_name"`
	PhotoKey   string `json:"-"`
}

type Result struct {
	Entry
	Votes  int  `json:"votes"`
	Rank   int  `json:"rank"`
	Winner bool `json:"winner"`
}

// Tally counts one vote per costume ID. Votes for unknown costumes are
// ignored. Tied costumes share a rank; rank 1 wins only with votes > 0.
func Tally(entries []Entry, costumeVotes []uint) []Result {
	counts := make(map[uint]int, len(entries))
	for _, id := range costumeVotes {
		counts[id]++
	}
	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		results = append(results, Result{Entry: entry, Votes: counts[entry.CostumeID]})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return strings.ToLower(results[i].Name) < strings.ToLower(results[j].Name)
	})
	for i := range results {
		if i > 0 && results[i].Votes == results[i-1].Votes {
			results[i].Rank = results[i-1].Rank
		} else {
			results[i].Rank = i + 1
		}
		results[i].Winner = results[i].Rank == 1 && results[i].Votes > 0
	}
	return results
}

func TotalVotes(results []Result) int {
	total := 0
	for _, r := range results {
		total += r.Votes
	}
	return total
}
