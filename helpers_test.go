package desim

// funcEntity adapts a DispatchTable into an Entity for tests that don't
// need a dedicated named type.
type funcEntity struct {
	dt *DispatchTable
}

func newFuncEntity() *funcEntity {
	return &funcEntity{dt: NewDispatchTable()}
}

func (e *funcEntity) on(signature string, m Method) int {
	return e.dt.Add(signature, m)
}

func (e *funcEntity) Invoke(ec *EventContext, ordinal int, args []any) (any, error) {
	return e.dt.Invoke(ec, ordinal, args)
}

func (e *funcEntity) SignatureFor(ordinal int) string {
	return e.dt.SignatureFor(ordinal)
}
