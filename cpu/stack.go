package cpu

// Stack is a LIFO of machine integers. A Limit of zero is unbounded.
type Stack struct {
	Limit int
	Data  []int
}

// Push appends a value. It returns false, and leaves the stack unchanged,
// if the stack is full.
func (s *Stack) Push(value int) (ok bool) {
	if s.Full() {
		return false
	}
	s.Data = append(s.Data, value)
	return true
}

func (s *Stack) Pop() (value int, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Data = s.Data[:len(s.Data)-1]
	}
	return
}

func (s *Stack) Empty() bool {
	return len(s.Data) == 0
}

func (s *Stack) Full() bool {
	return s.Limit > 0 && len(s.Data) >= s.Limit
}

func (s *Stack) Peek() (value int, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[len(s.Data)-1], true
}

func (s *Stack) Len() int {
	return len(s.Data)
}

func (s *Stack) Reset() {
	if len(s.Data) > 0 {
		s.Data = s.Data[:0]
	}
}
