package core

// NewDefaultRulesEngine returns an engine with the built-in plan rules
// registered. Stores evaluate it over the proposed state of every
// transaction before committing.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(TaskLifecycleRule())
	engine.Register(PlanConsistencyRule())
	return engine
}
