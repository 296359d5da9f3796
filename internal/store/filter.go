package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Search returns the names containing query, ignoring case and the query's
// surrounding space. An empty query matches everything. Order is kept.
func Search(names []string, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), q) {
			out = append(out, n)
		}
	}
	return out
}

var initAlgo sync.Once

// Rank returns the names fuzzy-matching query, best match first. Names with
// equal scores keep their input order. An empty query matches everything.
func Rank(names []string, query string) []string {
	q := strings.TrimSpace(query)
	if q == "" {
		return append([]string(nil), names...)
	}
	// Entry names are paths; score path-segment starts higher.
	initAlgo.Do(func() { algo.Init("path") })

	pattern := []rune(strings.ToLower(q))
	slab := util.MakeSlab(100*1024, 2048)
	type hit struct {
		name  string
		score int
	}
	hits := make([]hit, 0, len(names))
	for _, n := range names {
		chars := util.ToChars([]byte(n))
		res, _ := algo.FuzzyMatchV2(false, false, true, &chars, pattern, false, slab)
		if res.Start < 0 {
			continue
		}
		hits = append(hits, hit{name: n, score: res.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]string, len(hits))
	for i := range hits {
		out[i] = hits[i].name
	}
	return out
}
