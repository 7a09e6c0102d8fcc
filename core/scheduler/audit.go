package scheduler

import lru "github.com/hashicorp/golang-lru"

// completionAudit keeps a bounded, recency-ordered trail of completed
// instructions for diagnostics. It has no bearing on scheduling decisions;
// it exists so a caller debugging a stuck pipeline can ask "what did this
// queue just finish" without the scheduler paying for unbounded history.
type completionAudit struct {
	cache *lru.Cache
}

func newCompletionAudit(size int) *completionAudit {
	if size <= 0 {
		return nil
	}
	cache, err := lru.New(size)
	if err != nil {
		// a non-positive size is the only failure mode New reports, and it
		// is ruled out above; unreachable here.
		return nil
	}
	return &completionAudit{cache: cache}
}

func (a *completionAudit) record(id instructionID, priority int) {
	if a == nil {
		return
	}
	a.cache.Add(id, priority)
}

// recent returns the instruction IDs still held in the audit cache, newest
// first.
func (a *completionAudit) recent() []int {
	if a == nil {
		return nil
	}
	keys := a.cache.Keys()
	out := make([]int, len(keys))
	for i, k := range keys {
		out[len(keys)-1-i] = int(k.(instructionID))
	}
	return out
}
