package odrl

// Action is an ODRL core action term (the local name, without namespace).
type Action string

// Core actions recognized by the generator. Grouped the way the ODRL 2.2
// common vocabulary groups them.
const (
	// Access actions.
	ActionRead  Action = "read"
	ActionUse   Action = "use"
	ActionIndex Action = "index"

	// Modification actions.
	ActionModify    Action = "modify"
	ActionDerive    Action = "derive"
	ActionAdapt     Action = "adapt"
	ActionReproduce Action = "reproduce"

	// Distribution actions.
	ActionDistribute Action = "distribute"
	ActionShare      Action = "share"
	ActionSell       Action = "sell"

	// Management actions.
	ActionArchive Action = "archive"
	ActionDelete  Action = "delete"
)

// actionParents maps each action to its direct parent in the ODRL action
// hierarchy. "use" is the root and has no parent.
//
//	use
//	├── read
//	├── index
//	├── reproduce
//	├── modify ── adapt
//	├── derive
//	├── distribute ── share, sell
//	├── archive
//	└── delete
var actionParents = map[Action]Action{
	ActionRead:       ActionUse,
	ActionIndex:      ActionUse,
	ActionReproduce:  ActionUse,
	ActionModify:     ActionUse,
	ActionAdapt:      ActionModify,
	ActionDerive:     ActionUse,
	ActionDistribute: ActionUse,
	ActionShare:      ActionDistribute,
	ActionSell:       ActionDistribute,
	ActionArchive:    ActionUse,
	ActionDelete:     ActionUse,
}

// IsValid reports whether the action is a known core action.
func (a Action) IsValid() bool {
	if a == ActionUse {
		return true
	}
	_, ok := actionParents[a]
	return ok
}

// IRI returns the full IRI for the action.
func (a Action) IRI() string {
	return Namespace + string(a)
}

// Parent returns the direct parent action and whether one exists.
func (a Action) Parent() (Action, bool) {
	p, ok := actionParents[a]
	return p, ok
}

// Subsumes reports whether action a subsumes b: b == a or b sits below a in
// the action hierarchy. Permitting a while prohibiting a subsumed b (or the
// reverse) on the same target and party is an action-hierarchy conflict.
func (a Action) Subsumes(b Action) bool {
	for {
		if a == b {
			return true
		}
		parent, ok := b.Parent()
		if !ok {
			return false
		}
		b = parent
	}
}

// Actions returns all core actions in a stable order.
func Actions() []Action {
	return []Action{
		ActionUse, ActionRead, ActionIndex,
		ActionModify, ActionAdapt, ActionDerive, ActionReproduce,
		ActionDistribute, ActionShare, ActionSell,
		ActionArchive, ActionDelete,
	}
}

// ParseAction validates a string as a core action. Returns false when the
// term is not part of the fixed action vocabulary.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	return a, a.IsValid()
}
