// Package model implements the immutable document tree of the editing engine.
//
// A document is a tree of Nodes whose types come from a Schema. Block nodes
// hold child nodes; textblocks hold a flat run of inline nodes and text, each
// carrying a set of Marks. Every node's children must satisfy the content
// expression of its type, and construction fails otherwise.
//
// Positions are integers counting tokens in a depth-first walk: one per
// character of text, one per leaf node, and one each for the start and end of
// every other node. A position is resolved against a specific document with
// Node.Resolve, yielding a ResolvedPos that exposes the ancestor chain.
//
// Nodes, Fragments and Slices are never mutated. Operations such as
// Node.Replace return a new tree that shares every untouched subtree with
// the original.
package model
