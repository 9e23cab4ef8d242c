package tacttoml

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"sort"
	"sync"

	"github.com/jonchang/tact/bd"
	"github.com/jonchang/tact/sampler"
	"github.com/jonchang/tact/tree"
)

var genusSplit = regexp.MustCompile(`[_ ]+`)

func genusOf(tip string) string {
	parts := genusSplit.Split(tip, 2)
	return parts[0]
}

func sameTips(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa, sb := slices.Clone(a), slices.Clone(b)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// ensureMRCA finds the MRCA of tips, reporting which tips (if any) are
// absent from t.
func ensureMRCA(t *tree.Tree, tips []string) (*tree.Node, error) {
	n := t.MRCA(tips...)
	if n != nil {
		return n, nil
	}
	present := make(map[string]bool)
	for _, tn := range t.TermNames() {
		present[tn] = true
	}
	var missing []string
	for _, tp := range tips {
		if !present[tp] {
			missing = append(missing, tp)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: tips not present in tree: %v", ErrConfig, missing)
	}
	return nil, fmt.Errorf("%w: could not find MRCA for %v", ErrConfig, tips)
}

// DoTact applies one config item to t in place, graft in its missing
// species. Ported from cli_add_toml.py's do_tact.
func DoTact(t *tree.Tree, item Item, rng *rand.Rand) error {
	var included []string
	for _, inc := range item.Include {
		included = append(included, inc.MRCA...)
	}
	mrca, err := ensureMRCA(t, included)
	if err != nil {
		return err
	}

	extant := len(t.LeafLabels(mrca))
	sf := float64(extant) / float64(extant+item.Missing)

	p, err := bd.OptimBD(t.InternalAges(mrca), sf, rng)
	if err != nil {
		return fmt.Errorf("%s: %w", item.Name, err)
	}

	t.Lock(mrca, true)

	for _, inc := range item.Include {
		inner, err := ensureMRCA(t, inc.MRCA)
		if err != nil {
			return err
		}
		t.Unlock(inner, inc.Stem)

		if item.PreserveGenericMonophyly {
			genera := make(map[string][]string)
			for _, tip := range t.LeafLabels(inner) {
				g := genusOf(tip)
				genera[g] = append(genera[g], tip)
			}
			if len(genera) > 1 {
				for _, species := range genera {
					node := t.MRCA(species...)
					if node != nil && sameTips(t.LeafLabels(node), species) {
						t.Lock(node, len(species) == 1)
					}
				}
			}
		}
	}

	for _, exc := range item.Exclude {
		node, err := ensureMRCA(t, exc.MRCA)
		if err != nil {
			return err
		}
		t.Lock(node, exc.Stem)
	}

	ages := t.InternalAges(mrca)
	told := ages[0]
	tyoung, err := t.MinGraftableAge(mrca)
	if err != nil {
		return fmt.Errorf("%s: %w", item.Name, err)
	}
	times, err := sampler.GetNewTimes(ages, p.Birth, p.Death, item.Missing, &told, &tyoung, rng)
	if err != nil {
		return fmt.Errorf("%s: %w", item.Name, err)
	}

	for i, tm := range times {
		name := fmt.Sprintf("%s tact %d", item.Name, i)
		leaf := tree.NewDetachedNode(0, name)
		stub := tree.NewDetachedNode(tm, "")
		stub.AddChildNode(leaf)
		if _, err := t.Graft(mrca, stub, true, rng); err != nil {
			return fmt.Errorf("%s: %w", item.Name, err)
		}
	}
	return nil
}

// DoReplicate clones backbone, applies every item in order, and
// returns the completed, ladderized tree. Ported from
// cli_add_toml.py's do_replicate.
func DoReplicate(backbone *tree.Tree, items []Item, rng *rand.Rand) (*tree.Tree, error) {
	t := backbone.Clone()
	for _, item := range items {
		if err := DoTact(t, item, rng); err != nil {
			return nil, err
		}
	}
	if !t.IsBinary() {
		return nil, fmt.Errorf("%w: replicate tree is not binary", tree.ErrInvariant)
	}
	t.Ladderize()
	return t, nil
}

// Run drives `replicates` independent calls to DoReplicate across up
// to `cores` goroutines, returning one completed tree per replicate in
// replicate order. Items are sorted by the divergence time of their
// include MRCA, matching the teacher's ordering rule (so that nested
// items are always processed after their containing clade).
func Run(backbone *tree.Tree, items []Item, replicates, cores int, rng *rand.Rand) ([]*tree.Tree, error) {
	sorted := slices.Clone(items)
	ages := make(map[string]float64, len(sorted))
	for _, it := range sorted {
		var included []string
		for _, inc := range it.Include {
			included = append(included, inc.MRCA...)
		}
		n, err := ensureMRCA(backbone, included)
		if err != nil {
			return nil, err
		}
		ages[it.Name] = n.Age()
	}
	sort.SliceStable(sorted, func(i, j int) bool { return ages[sorted[i].Name] > ages[sorted[j].Name] })

	results := make([]*tree.Tree, replicates)
	errs := make([]error, replicates)

	sem := make(chan struct{}, cores)
	var wg sync.WaitGroup
	for i := 0; i < replicates; i++ {
		wg.Add(1)
		sem <- struct{}{}
		replicateRNG := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
		go func(idx int, rng *rand.Rand) {
			defer wg.Done()
			defer func() { <-sem }()
			t, err := DoReplicate(backbone, sorted, rng)
			results[idx] = t
			errs[idx] = err
		}(i, replicateRNG)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("replicate %d: %w", i, err)
		}
	}
	return results, nil
}
