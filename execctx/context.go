// Package execctx implements the execution context handed to every action
// and policy: user data plus a service locator. Data is `any` rather than
// a type parameter, so callers that need a concrete type assert it
// themselves.
package execctx

// Context is the shared, read-only handle passed into every run/on_success
// /on_fail call and every policy wrapper. A Context is cheap to copy: it
// holds a reference to user data and a reference to the locator, never the
// data itself.
type Context struct {
	Data     any
	Services *Services
}

// New builds a Context over the given user data and service locator.
func New(data any, services *Services) *Context {
	return &Context{Data: data, Services: services}
}
