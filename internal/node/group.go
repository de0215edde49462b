package node

import (
	"sort"

	"github.com/arya-analytics/grove/internal/address"
)

type Group map[ID]Node

func (n Group) WhereState(state State) Group {
	return n.Where(func(_ ID, n Node) bool { return n.State == state })
}

func (n Group) WhereNot(ids ...ID) Group {
	return n.Where(func(id ID, _ Node) bool {
		for _, ex := range ids {
			if ex == id {
				return false
			}
		}
		return true
	})
}

func (n Group) WhereActive() Group {
	return n.Where(func(_ ID, n Node) bool { return n.State != StateLeft })
}

func (n Group) WhereReachable() Group {
	return n.Where(func(_ ID, n Node) bool { return n.Reachable() })
}

func (n Group) Where(cond func(ID, Node) bool) Group {
	res := make(Group, len(n))
	for id, nd := range n {
		if cond(id, nd) {
			res[id] = nd
		}
	}
	return res
}

// IDs returns the IDs of the nodes in the group in ascending order.
func (n Group) IDs() []ID {
	ids := make([]ID, 0, len(n))
	for id := range n {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Addresses returns the addresses of the nodes in the group, ordered by ID.
func (n Group) Addresses() []address.Address {
	addresses := make([]address.Address, 0, len(n))
	for _, id := range n.IDs() {
		addresses = append(addresses, n[id].Address)
	}
	return addresses
}

func (n Group) Copy() Group { return n.Where(func(ID, Node) bool { return true }) }
