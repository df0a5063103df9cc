package renderer

// Unwind collects cleanups and runs them in reverse order.
type Unwind []func()

func (u *Unwind) Add(cleanup func()) {
	*u = append(*u, cleanup)
}

func (u *Unwind) Unwind() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
	*u = (*u)[:0]
}

// Discard drops the cleanups without running them, for when the guarded
// operation succeeded and owns the resources.
func (u *Unwind) Discard() {
	*u = (*u)[:0]
}
