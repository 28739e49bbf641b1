package syntax

import "encoding/json"

// MarshalProgram renders a residual statement list as an indented JSON
// tree in the dialect's conventional shape, with a "type" tag on every
// node.
func MarshalProgram(stmts []Statement) ([]byte, error) {
	body := make([]interface{}, len(stmts))
	for i, s := range stmts {
		body[i] = nodeMap(s)
	}
	return json.MarshalIndent(map[string]interface{}{
		"type": "Program",
		"body": body,
	}, "", "  ")
}

func nodeMaps[T Node](list []T) []interface{} {
	out := make([]interface{}, len(list))
	for i, n := range list {
		out[i] = nodeMap(n)
	}
	return out
}

func nodeMap(n Node) interface{} {
	switch n := n.(type) {
	case nil:
		return nil
	case *Program:
		return map[string]interface{}{"type": "Program", "body": nodeMaps(n.Body)}
	case *ExpressionStatement:
		return map[string]interface{}{"type": "ExpressionStatement", "expression": nodeMap(n.Expression)}
	case *BlockStatement:
		if n == nil {
			return nil
		}
		return map[string]interface{}{"type": "BlockStatement", "body": nodeMaps(n.Body)}
	case *EmptyStatement:
		return map[string]interface{}{"type": "EmptyStatement"}
	case *VariableDeclaration:
		return map[string]interface{}{"type": "VariableDeclaration", "kind": n.Kind, "declarations": nodeMaps(n.Declarations)}
	case *VariableDeclarator:
		return map[string]interface{}{"type": "VariableDeclarator", "id": nodeMap(n.ID), "init": nodeMap(n.Init)}
	case *Identifier:
		if n == nil {
			return nil
		}
		return map[string]interface{}{"type": "Identifier", "name": n.Name}
	case *StringLiteral:
		return map[string]interface{}{"type": "StringLiteral", "value": n.Value}
	case *NumericLiteral:
		return map[string]interface{}{"type": "NumericLiteral", "value": n.Value}
	case *BooleanLiteral:
		return map[string]interface{}{"type": "BooleanLiteral", "value": n.Value}
	case *NullLiteral:
		return map[string]interface{}{"type": "NullLiteral"}
	case *RegExpLiteral:
		return map[string]interface{}{"type": "RegExpLiteral", "pattern": n.Pattern, "flags": n.Flags}
	case *BigIntLiteral:
		return map[string]interface{}{"type": "BigIntLiteral", "value": n.Value}
	case *BinaryExpression:
		return map[string]interface{}{"type": "BinaryExpression", "operator": n.Operator, "left": nodeMap(n.Left), "right": nodeMap(n.Right)}
	case *LogicalExpression:
		return map[string]interface{}{"type": "LogicalExpression", "operator": n.Operator, "left": nodeMap(n.Left), "right": nodeMap(n.Right)}
	case *UnaryExpression:
		return map[string]interface{}{"type": "UnaryExpression", "operator": n.Operator, "prefix": n.Prefix, "argument": nodeMap(n.Argument)}
	case *UpdateExpression:
		return map[string]interface{}{"type": "UpdateExpression", "operator": n.Operator, "prefix": n.Prefix, "argument": nodeMap(n.Argument)}
	case *SequenceExpression:
		return map[string]interface{}{"type": "SequenceExpression", "expressions": nodeMaps(n.Expressions)}
	case *AssignmentExpression:
		return map[string]interface{}{"type": "AssignmentExpression", "operator": n.Operator, "left": nodeMap(n.Left), "right": nodeMap(n.Right)}
	case *MemberExpression:
		return map[string]interface{}{"type": "MemberExpression", "object": nodeMap(n.Object), "property": nodeMap(n.Property), "computed": n.Computed}
	case *OptionalMemberExpression:
		return map[string]interface{}{"type": "OptionalMemberExpression", "object": nodeMap(n.Object), "property": nodeMap(n.Property), "computed": n.Computed}
	case *ConditionalExpression:
		return map[string]interface{}{"type": "ConditionalExpression", "test": nodeMap(n.Test), "consequent": nodeMap(n.Consequent), "alternate": nodeMap(n.Alternate)}
	case *IfStatement:
		return map[string]interface{}{"type": "IfStatement", "test": nodeMap(n.Test), "consequent": nodeMap(n.Consequent), "alternate": nodeMap(n.Alternate)}
	case *WhileStatement:
		return map[string]interface{}{"type": "WhileStatement", "test": nodeMap(n.Test), "body": nodeMap(n.Body)}
	case *DoWhileStatement:
		return map[string]interface{}{"type": "DoWhileStatement", "body": nodeMap(n.Body), "test": nodeMap(n.Test)}
	case *ForStatement:
		return map[string]interface{}{"type": "ForStatement", "init": nodeMap(n.Init), "test": nodeMap(n.Test), "update": nodeMap(n.Update), "body": nodeMap(n.Body)}
	case *ArrayExpression:
		return map[string]interface{}{"type": "ArrayExpression", "elements": nodeMaps(n.Elements)}
	case *FunctionDeclaration:
		return map[string]interface{}{"type": "FunctionDeclaration", "id": nodeMap(n.ID), "params": nodeMaps(n.Params), "body": nodeMap(n.Body)}
	case *FunctionExpression:
		return map[string]interface{}{"type": "FunctionExpression", "id": nodeMap(n.ID), "params": nodeMaps(n.Params), "body": nodeMap(n.Body)}
	case *CallExpression:
		return map[string]interface{}{"type": "CallExpression", "callee": nodeMap(n.Callee), "arguments": nodeMaps(n.Arguments)}
	case *ReturnStatement:
		return map[string]interface{}{"type": "ReturnStatement", "argument": nodeMap(n.Argument)}
	case *TryStatement:
		return map[string]interface{}{"type": "TryStatement", "block": nodeMap(n.Block), "handler": nodeMap(n.Handler), "finalizer": nodeMap(n.Finalizer)}
	case *CatchClause:
		if n == nil {
			return nil
		}
		return map[string]interface{}{"type": "CatchClause", "param": nodeMap(n.Param), "body": nodeMap(n.Body)}
	case *LabeledStatement:
		return map[string]interface{}{"type": "LabeledStatement", "label": nodeMap(n.Label), "body": nodeMap(n.Body)}
	case *BreakStatement:
		return map[string]interface{}{"type": "BreakStatement", "label": nodeMap(n.Label)}
	case *ContinueStatement:
		return map[string]interface{}{"type": "ContinueStatement", "label": nodeMap(n.Label)}
	}
	return map[string]interface{}{"type": "Unknown"}
}
