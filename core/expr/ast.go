/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Gridmodel Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package expr

// Node is the interface for all AST nodes
type Node interface {
	node()
}

// Literal is a constant: float64, string, bool or nil.
type Literal struct {
	Value any
}

// Field references a record field, or a filter argument of the same name
// when the record lacks the field.
type Field struct {
	Name string
}

// BinaryOp is a binary operation.
type BinaryOp struct {
	Op    TokenType
	Left  Node
	Right Node
}

// UnaryOp is a unary operation (-x, not x).
type UnaryOp struct {
	Op   TokenType
	Expr Node
}

// Call is a builtin function call, e.g. lower(name).
type Call struct {
	Func string
	Args []Node
}

// MethodCall is a string method call, e.g. name.startswith("a").
type MethodCall struct {
	Obj    Node
	Method string
	Args   []Node
}

// List is a bracketed list literal, used on the right of 'in'.
type List struct {
	Items []Node
}

func (*Literal) node()    {}
func (*Field) node()      {}
func (*BinaryOp) node()   {}
func (*UnaryOp) node()    {}
func (*Call) node()       {}
func (*MethodCall) node() {}
func (*List) node()       {}

// Fields returns the distinct field names referenced by n, in first-use order.
func Fields(n Node) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Field:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *BinaryOp:
			walk(n.Left)
			walk(n.Right)
		case *UnaryOp:
			walk(n.Expr)
		case *Call:
			for _, a := range n.Args {
				walk(a)
			}
		case *MethodCall:
			walk(n.Obj)
			for _, a := range n.Args {
				walk(a)
			}
		case *List:
			for _, a := range n.Items {
				walk(a)
			}
		}
	}
	walk(n)
	return names
}
