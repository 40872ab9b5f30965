package http

import "strings"

type Expression struct {
	Expr string `json:"expression"`
	Pid  int    `json:"pid"`
}

func newExpression(expr string, pid int) *Expression {
	return &Expression{Expr: expr, Pid: pid}
}

func (e *Expression) resolve() (string, []string) {
	fields := strings.Fields(e.Expr)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
