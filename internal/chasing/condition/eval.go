package condition

// absent is the distinguished value for missing fields and metadata paths.
// It never equality-matches (in either direction) and never satisfies
// membership, so a condition over a missing path is simply false.
type absentValue struct{}

var absent = absentValue{}

// Evaluate runs the compiled program against a customer view.
func (p *Program) Evaluate(view map[string]any) bool {
	if p == nil || p.root == nil {
		return false
	}
	return p.root.eval(view)
}

func (n andNode) eval(view map[string]any) bool {
	return n.left.eval(view) && n.right.eval(view)
}

func (n orNode) eval(view map[string]any) bool {
	return n.left.eval(view) || n.right.eval(view)
}

func (n compareNode) eval(view map[string]any) bool {
	value := resolve(view, n.path)
	if _, missing := value.(absentValue); missing {
		return false
	}
	equal := n.value.matches(value)
	if n.negate {
		return !equal
	}
	return equal
}

func (n memberNode) eval(view map[string]any) bool {
	value := resolve(view, n.path)
	if _, missing := value.(absentValue); missing {
		return false
	}
	for _, candidate := range n.values {
		if candidate.matches(value) {
			return true
		}
	}
	return false
}

func resolve(view map[string]any, path []string) any {
	var current any = view
	for _, segment := range path {
		mapped, ok := current.(map[string]any)
		if !ok {
			return absent
		}
		next, ok := mapped[segment]
		if !ok {
			return absent
		}
		current = next
	}
	if current == nil {
		return absent
	}
	return current
}

// matches compares a literal against a runtime value. Mismatched types never
// match; numeric values are compared as float64 regardless of source width.
func (l literal) matches(value any) bool {
	switch l.kind {
	case literalString:
		str, ok := value.(string)
		return ok && str == l.str
	case literalBool:
		boolean, ok := value.(bool)
		return ok && boolean == l.boolean
	case literalNumber:
		num, ok := asFloat(value)
		return ok && num == l.num
	default:
		return false
	}
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	default:
		return 0, false
	}
}
