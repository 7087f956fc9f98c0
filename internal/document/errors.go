package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

var (
	ErrMissingValue = errors.New("missing value")
	ErrWrongType    = errors.New("wrong type")
	ErrQuerySyntax  = errors.New("invalid query")
	ErrNoMatch      = errors.New("query matched nothing")
	ErrInvalidValue = errors.New("invalid value")
)

// Error locates a parse failure inside a document.
type Error struct {
	Kind   error
	Node   string
	Line   int
	Index  int
	Key    string
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString(e.Kind.Error())
	if e.Node != "" {
		fmt.Fprintf(&builder, " in node %q", e.Node)
	}
	if e.Line > 0 {
		fmt.Fprintf(&builder, " (line %d)", e.Line)
	}
	switch {
	case e.Key != "":
		fmt.Fprintf(&builder, " at key %q", e.Key)
	case e.Index >= 0:
		fmt.Fprintf(&builder, " at index %d", e.Index)
	}
	if e.Detail != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Detail)
	}
	if e.Cause != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Cause.Error())
	}
	return builder.String()
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// As presents a document error as an errbuilder error coded
// CodeInvalidArgument, so errbuilder.CodeOf classifies it without a wrap.
func (e *Error) As(target any) bool {
	coded, ok := target.(**errbuilder.ErrBuilder)
	if !ok {
		return false
	}
	*coded = errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(e.Error())
	return true
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind error, node *Node, index int, key string, detail string) *Error {
	err := &Error{Kind: kind, Index: index, Key: key, Detail: detail}
	if node != nil {
		err.Node = node.Name
		err.Line = node.Line
	}
	return err
}
