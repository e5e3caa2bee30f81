package machine

// A String is an immutable, interned string. All strings created by a
// machine — literals when the program is loaded, concatenation results at
// run time — go through the interning table, so two strings with equal
// content are the same *String and equality is pointer identity.
type String struct {
	s string
}

var _ Value = (*String)(nil)

func (s *String) String() string { return s.s }
func (s *String) Type() string   { return "string" }
