package eval

// ContextKind tags the structural construct that opened a context.
type ContextKind uint8

const (
	KindProgram ContextKind = iota
	KindBlock
	KindIf
	KindConditional
	KindWhile
	KindDoWhile
	KindFor
	KindFuncCtx
	KindLabel
	KindCatch
	KindSwitch
)

func (k ContextKind) isLoop() bool {
	return k == KindWhile || k == KindDoWhile || k == KindFor
}

// ExecutionContext binds an environment to the construct that created
// it. Function contexts also park the pending return value.
type ExecutionContext struct {
	Env   *Environment
	Kind  ContextKind
	Label string

	RetVal *Carrier

	// Continued flags a concrete continue aimed at this loop context;
	// statement lists under it stop collecting and the loop resets the
	// flag before the next iteration.
	Continued bool
}

// Callstack is the ordered context stack. The top is the current
// context; return and break pop entries to implement non-local control.
type Callstack struct {
	frames []*ExecutionContext
}

// NewCallstack returns an empty stack.
func NewCallstack() *Callstack {
	return &Callstack{}
}

// Push makes ctx the current context.
func (s *Callstack) Push(ctx *ExecutionContext) {
	s.frames = append(s.frames, ctx)
}

// Pop removes and returns the current context.
func (s *Callstack) Pop() (*ExecutionContext, error) {
	if len(s.frames) == 0 {
		return nil, internalInvariant("pop on empty callstack")
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top, nil
}

// Top returns the current context, nil when empty.
func (s *Callstack) Top() *ExecutionContext {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of live contexts.
func (s *Callstack) Depth() int { return len(s.frames) }

// Contains reports whether ctx is still on the stack.
func (s *Callstack) Contains(ctx *ExecutionContext) bool {
	for _, f := range s.frames {
		if f == ctx {
			return true
		}
	}
	return false
}

// FindFunction returns the innermost function context, nil when the
// stack holds none.
func (s *Callstack) FindFunction() *ExecutionContext {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Kind == KindFuncCtx {
			return s.frames[i]
		}
	}
	return nil
}

// FindBreakTarget returns the innermost loop or switch context, or the
// label context matching label when one is given.
func (s *Callstack) FindBreakTarget(label string) *ExecutionContext {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if label != "" {
			if f.Kind == KindLabel && f.Label == label {
				return f
			}
			continue
		}
		if f.Kind.isLoop() || f.Kind == KindSwitch {
			return f
		}
	}
	return nil
}

// FindContinueTarget returns the innermost loop context, or the label
// context matching label when one is given.
func (s *Callstack) FindContinueTarget(label string) *ExecutionContext {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if label != "" {
			if f.Kind == KindLabel && f.Label == label {
				return f
			}
			continue
		}
		if f.Kind.isLoop() {
			return f
		}
	}
	return nil
}

// PopPast removes contexts up to and including target.
func (s *Callstack) PopPast(target *ExecutionContext) error {
	for len(s.frames) > 0 {
		top, err := s.Pop()
		if err != nil {
			return err
		}
		if top == target {
			return nil
		}
	}
	return internalInvariant("unwind past a context not on the callstack")
}

// PopUntilTop removes contexts until target is the current context.
func (s *Callstack) PopUntilTop(target *ExecutionContext) error {
	for {
		top := s.Top()
		if top == nil {
			return internalInvariant("unwind toward a context not on the callstack")
		}
		if top == target {
			return nil
		}
		if _, err := s.Pop(); err != nil {
			return err
		}
	}
}

// PopWhileUntainted removes contexts from the top while their
// environments do not taint parent writes, stopping before target.
func (s *Callstack) PopWhileUntainted(target *ExecutionContext) error {
	for {
		top := s.Top()
		if top == nil {
			return internalInvariant("tainted unwind ran off the callstack")
		}
		if top == target || top.Env.TaintParentWrites {
			return nil
		}
		if _, err := s.Pop(); err != nil {
			return err
		}
	}
}
