package watchout

// MaxConditions is the number of layer conditions a show can use.
const MaxConditions = 30

// LayerMask is the enableLayerCond argument: bit i enables condition i.
type LayerMask uint32

// ConditionMask packs the condition flags into a bitmask.
func ConditionMask(flags [MaxConditions]bool) LayerMask {
	var m LayerMask
	for i, on := range flags {
		if on {
			m |= 1 << i
		}
	}
	return m
}

func (m LayerMask) Has(i int) bool {
	if i < 0 || i >= MaxConditions {
		return false
	}
	return m&(1<<i) != 0
}

// Set returns m with condition i switched on or off. Indexes outside
// 0..MaxConditions-1 are ignored.
func (m LayerMask) Set(i int, on bool) LayerMask {
	if i < 0 || i >= MaxConditions {
		return m
	}
	if on {
		return m | 1<<i
	}
	return m &^ (1 << i)
}

// Flags unpacks the mask into per-condition flags.
func (m LayerMask) Flags() [MaxConditions]bool {
	var flags [MaxConditions]bool
	for i := range flags {
		flags[i] = m.Has(i)
	}
	return flags
}
