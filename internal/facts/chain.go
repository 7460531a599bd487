package facts

// ChainMembers returns the non-PHI statements whose only block is b, in id
// order.
func (ix *Index) ChainMembers(b Block) []Stmt {
	var out []Stmt
	for _, s := range ix.BlockStmts[b] {
		if ix.PHI[s] {
			continue
		}
		if only, ok := ix.BlockOf(s); !ok || only != b {
			continue
		}
		out = append(out, s)
	}
	return out
}

// BlockChain orders the members of b along the same-block restriction of
// Statement_Next, head first. ok is false when the members fork, cycle, or
// fall apart into more than one piece. A block with no members yields an
// empty chain and ok true.
func (ix *Index) BlockChain(b Block) (chain []Stmt, ok bool) {
	return ix.linkChain(ix.ChainMembers(b))
}

func (ix *Index) linkChain(members []Stmt) ([]Stmt, bool) {
	if len(members) == 0 {
		return nil, true
	}
	in := make(map[Stmt]bool, len(members))
	for _, s := range members {
		in[s] = true
	}
	succ := make(map[Stmt]Stmt, len(members))
	hasPred := make(map[Stmt]bool, len(members))
	for _, s := range members {
		n := 0
		for _, next := range ix.Next[s] {
			if !in[next] {
				continue
			}
			n++
			if n > 1 || hasPred[next] {
				return nil, false
			}
			succ[s] = next
			hasPred[next] = true
		}
	}

	var head Stmt
	heads := 0
	for _, s := range members {
		if !hasPred[s] {
			head = s
			heads++
		}
	}
	if heads != 1 {
		return nil, false
	}

	chain := make([]Stmt, 0, len(members))
	for cur, ok := head, true; ok; cur, ok = succ[cur] {
		chain = append(chain, cur)
		if len(chain) > len(members) {
			return nil, false
		}
	}
	if len(chain) != len(members) {
		return nil, false
	}
	return chain, true
}
