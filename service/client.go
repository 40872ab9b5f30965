package service

type CmdType int

const (
	Get CmdType = iota
	Set
	List
	Toggle
	Status
	Inject
	Disasm
)

var cmdNames = [...]string{"get", "set", "list", "toggle", "status", "inject", "disasm"}

func (c CmdType) String() string {
	if int(c) < len(cmdNames) {
		return cmdNames[c]
	}
	return "unknown"
}

type Client interface {
	SendExpr(exprType CmdType, args string) (string, error)
	IsEmupatchServer() bool
}
