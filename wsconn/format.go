package wsconn

// InputFormat converts an application-level intermediate value into a
// wire Message, per spec.md §6. Convert returning false drops the item
// without terminating the shuttle — the codec's own choice, not an
// error.
//
// JSON/byte codecs are explicitly out of core scope (spec.md §1); this
// interface is what a codec author implements to plug into
// shuttleInput.
type InputFormat[Intermediate any] interface {
	Convert(Intermediate) (Message, bool)
}

// OutputFormat converts a wire payload into an application-level
// external value, per spec.md §6. Either Convert method returning false
// is a soft, recoverable codec error (spec.md §7): logged, the frame is
// dropped, and the shuttle keeps running.
type OutputFormat[External any] interface {
	ConvertText(text []byte) (External, bool)
	ConvertBinary(data []byte) (External, bool)
}

// InputFormatFunc adapts a plain function to InputFormat.
type InputFormatFunc[Intermediate any] func(Intermediate) (Message, bool)

func (f InputFormatFunc[Intermediate]) Convert(v Intermediate) (Message, bool) { return f(v) }

// OutputFormatFunc adapts a pair of plain functions to OutputFormat.
type OutputFormatFunc[External any] struct {
	Text   func([]byte) (External, bool)
	Binary func([]byte) (External, bool)
}

func (f OutputFormatFunc[External]) ConvertText(text []byte) (External, bool) {
	return f.Text(text)
}

func (f OutputFormatFunc[External]) ConvertBinary(data []byte) (External, bool) {
	return f.Binary(data)
}
