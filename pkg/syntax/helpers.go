package syntax

// IsIdentifierName reports whether s can appear as a non-computed
// property name or identifier.
func IsIdentifierName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return !isReservedWord(s)
}

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true,
	"export": true, "extends": true, "false": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true,
	"throw": true, "true": true, "try": true, "typeof": true,
	"var": true, "void": true, "while": true, "with": true,
}

func isReservedWord(s string) bool {
	return reservedWords[s]
}

// Member builds a property access, preferring the dot form when key is
// a valid identifier name and falling back to a computed string key.
func Member(object Expression, key string) Expression {
	if IsIdentifierName(key) {
		return &MemberExpression{Object: object, Property: &Identifier{Name: key}}
	}
	return &MemberExpression{Object: object, Property: &StringLiteral{Value: key}, Computed: true}
}

// IndexMember builds a computed numeric property access.
func IndexMember(object Expression, index float64) Expression {
	return &MemberExpression{Object: object, Property: &NumericLiteral{Value: index}, Computed: true}
}

// Block wraps statements in a BlockStatement.
func Block(stmts []Statement) *BlockStatement {
	return &BlockStatement{Body: stmts}
}
