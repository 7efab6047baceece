package naming

// Style describes how one target spells identifiers.
type Style struct {
	Type     Casing
	Function Casing
	Method   Casing
	Field    Casing
	Param    Casing
	Constant Casing
	Variant  Casing

	// VariantPrefix qualifies enum variants with their enum name, for
	// targets where variants share the global scope.
	VariantPrefix bool
	// FunctionsScoped places raw function bindings in the library handle's
	// scope instead of the global one.
	FunctionsScoped bool

	// Reserved words are escaped with EscapePrefix/EscapeSuffix.
	Reserved     map[string]struct{}
	EscapePrefix string
	EscapeSuffix string
	// Taken holds names the emitted support code defines itself. A clash
	// gets a trailing underscore, since an escape prefix such as C#'s @
	// does not make a non-keyword distinct.
	Taken map[string]struct{}
}

// Escape applies the escape rule when s is reserved.
func (s Style) Escape(id string) string {
	if _, ok := s.Reserved[id]; !ok {
		if _, taken := s.Taken[id]; taken {
			return id + "_"
		}
		return id
	}
	if s.EscapePrefix == "" && s.EscapeSuffix == "" {
		return id + "_"
	}
	return s.EscapePrefix + id + s.EscapeSuffix
}

// IsReserved reports whether id is a reserved word or a taken name of the
// style.
func (s Style) IsReserved(id string) bool {
	_, ok := s.Reserved[id]
	_, taken := s.Taken[id]
	return ok || taken
}

// Reserved builds a reserved-word set from lists.
func Reserved(lists ...[]string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, l := range lists {
		for _, w := range l {
			out[w] = struct{}{}
		}
	}
	return out
}

var (
	CKeywords = []string{
		"auto", "break", "case", "char", "const", "continue", "default", "do",
		"double", "else", "enum", "extern", "float", "for", "goto", "if", "inline",
		"int", "long", "register", "restrict", "return", "short", "signed",
		"sizeof", "static", "struct", "switch", "typedef", "union", "unsigned",
		"void", "volatile", "while", "bool", "true", "false",
		"_Alignas", "_Alignof", "_Atomic", "_Bool", "_Complex", "_Generic",
		"_Imaginary", "_Noreturn", "_Static_assert", "_Thread_local",
	}

	PythonKeywords = []string{
		"False", "None", "True", "and", "as", "assert", "async", "await", "break",
		"class", "continue", "def", "del", "elif", "else", "except", "finally",
		"for", "from", "global", "if", "import", "in", "is", "lambda", "nonlocal",
		"not", "or", "pass", "raise", "return", "try", "while", "with", "yield",
		"match", "case", "type",
	}

	CSharpKeywords = []string{
		"abstract", "as", "base", "bool", "break", "byte", "case", "catch", "char",
		"checked", "class", "const", "continue", "decimal", "default", "delegate",
		"do", "double", "else", "enum", "event", "explicit", "extern", "false",
		"finally", "fixed", "float", "for", "foreach", "goto", "if", "implicit",
		"in", "int", "interface", "internal", "is", "lock", "long", "namespace",
		"new", "null", "object", "operator", "out", "override", "params",
		"private", "protected", "public", "readonly", "ref", "return", "sbyte",
		"sealed", "short", "sizeof", "stackalloc", "static", "string", "struct",
		"switch", "this", "throw", "true", "try", "typeof", "uint", "ulong",
		"unchecked", "unsafe", "ushort", "using", "virtual", "void", "volatile",
		"while",
	}

	GoKeywords = []string{
		"break", "case", "chan", "const", "continue", "default", "defer", "else",
		"fallthrough", "for", "func", "go", "goto", "if", "import", "interface",
		"map", "package", "range", "return", "select", "struct", "switch", "type",
		"var",
	}

	// GoPredeclared are identifiers that compile but shadow builtins the
	// generated code relies on.
	GoPredeclared = []string{
		"bool", "byte", "error", "float32", "float64", "int", "int8", "int16",
		"int32", "int64", "rune", "string", "uint", "uint8", "uint16", "uint32",
		"uint64", "uintptr", "len", "cap", "make", "new", "nil", "true", "false",
		"append", "copy", "panic", "recover", "iota", "any", "unsafe", "C",
	}
)
