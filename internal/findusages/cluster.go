package findusages

// Bucket is one group of a result view. Group is nil for the ungrouped
// bucket.
type Bucket struct {
	Group  *UsageGroup
	Usages []Usage
}

// Cluster places each usage under the first rule that yields a group.
// Buckets appear in order of their first usage; the ungrouped bucket, if
// any, comes last.
func Cluster(usages []Usage, targets []Target, rules ...GroupingRule) []Bucket {
	var buckets []Bucket
	var ungrouped []Usage
	pos := make(map[groupKey]int)

	for _, u := range usages {
		g := parentGroup(u, targets, rules)
		if g == nil {
			ungrouped = append(ungrouped, u)
			continue
		}
		k := g.key()
		i, ok := pos[k]
		if !ok {
			i = len(buckets)
			pos[k] = i
			buckets = append(buckets, Bucket{Group: g})
		}
		buckets[i].Usages = append(buckets[i].Usages, u)
	}
	if len(ungrouped) > 0 {
		buckets = append(buckets, Bucket{Usages: ungrouped})
	}
	return buckets
}

func parentGroup(u Usage, targets []Target, rules []GroupingRule) *UsageGroup {
	for _, r := range rules {
		if g := r.ParentGroupFor(u, targets); g != nil {
			return g
		}
	}
	return nil
}
