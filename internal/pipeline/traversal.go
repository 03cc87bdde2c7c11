package pipeline

import (
	"github.com/dgallion1/doctran/internal/doctree"
)

// CompleteProcessor starts work on every eligible node in depth-first
// pre-order without waiting for any of it. A node's own operation comes
// before its descendants' in the returned slice.
type CompleteProcessor struct{}

func (CompleteProcessor) Process(s *Scope, st *Stages, n *doctree.Node) []*Pending {
	var pending []*Pending
	if st.FilterWork.Eligible(n) {
		pending = append(pending, s.Start(n, st.Work))
	}
	if len(n.Children) > 0 && st.FilterProcess.Descend(n) {
		for _, c := range n.Children {
			pending = append(pending, st.Process.Process(s, st, c)...)
		}
	}
	return pending
}

// SequentialProcessor walks in the same order as CompleteProcessor but lets
// each operation settle before the next one starts. The returned handles are
// all settled.
type SequentialProcessor struct{}

func (SequentialProcessor) Process(s *Scope, st *Stages, n *doctree.Node) []*Pending {
	var pending []*Pending
	if st.FilterWork.Eligible(n) {
		p := s.Start(n, st.Work)
		<-p.Done()
		pending = append(pending, p)
	}
	if len(n.Children) > 0 && st.FilterProcess.Descend(n) {
		for _, c := range n.Children {
			pending = append(pending, st.Process.Process(s, st, c)...)
		}
	}
	return pending
}
