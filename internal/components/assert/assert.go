package assert

// NotNil panics when value is a nil interface, it guards constructors
// against missing dependencies.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}
