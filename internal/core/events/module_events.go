package events

const TopicModuleChanged = "module.changed"

// ModuleChangedEvent is published after any committed write to a module or
// one of its submodules. Names holds every name the module was reachable by
// before and after the write.
type ModuleChangedEvent struct {
	Header
	ModuleID int64    `json:"module_id"`
	Names    []string `json:"names"`
}

func NewModuleChangedEvent(moduleID int64, names ...string) *ModuleChangedEvent {
	return &ModuleChangedEvent{
		Header:   NewHeader(TopicModuleChanged),
		ModuleID: moduleID,
		Names:    names,
	}
}
