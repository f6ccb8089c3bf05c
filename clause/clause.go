package clause

// Expression expression interface
type Expression interface {
	Build(builder Builder)
}

// Writer write interface
type Writer interface {
	WriteByte(byte) error
	WriteString(string) (int, error)
}

// Builder builder interface
type Builder interface {
	Writer
	WriteQuoted(field interface{})
	AddVar(Writer, ...interface{})
}
