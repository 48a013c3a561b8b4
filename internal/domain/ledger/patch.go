package ledger

// Optional distinguishes "leave unchanged" (Set=false) from "set to Value", where a nil Value clears.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

func Clear[T any]() Optional[T] { return Optional[T]{Set: true} }

// Apply returns the patched value given the current one.
func (o Optional[T]) Apply(cur *T) *T {
	if !o.Set {
		return cur
	}
	if o.Value == nil {
		return nil
	}
	v := *o.Value
	return &v
}
