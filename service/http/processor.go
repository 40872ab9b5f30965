package http

import (
	"bytes"
	e "emupatch/error"
	"emupatch/pkg/customcode"
	"emupatch/pkg/mips"
	"emupatch/pkg/offset"
	"emupatch/pkg/ram"
	"emupatch/pkg/session"
	"emupatch/utils"
	"errors"
	"fmt"
	"github.com/derekparker/trie"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
)

const maxDisasmWords = 256

type Router struct {
	method string
	path   string
	fn     func(ctx *Context)
}

type processor struct {
	session *session.Session
	router  []*Router
	trie    *trie.Trie
}

func (p *processor) route(method, path string) func(ctx *Context) {
	node, found := p.trie.Find(utils.MD5(methodPath(method, path)))
	if found {
		fn := node.Meta().(func(ctx *Context))
		return fn
	}

	return nil
}

func (p *processor) worker(ctx *Context) {
	req := ctx.request
	fn := p.route(req.method, req.path)
	if fn == nil {
		ctx.respFailed(http.StatusNotFound, http.StatusText(http.StatusNotFound))
		return
	}

	fn(ctx)
}

func newProcessor(s *session.Session) *processor {
	proc := &processor{
		session: s,
	}

	register(proc)
	return proc
}

// statusOf maps core errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case e.IsTransient(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, e.FeatureNotFound), errors.Is(err, e.FieldNotFound):
		return http.StatusNotFound
	case errors.Is(err, e.NoTrampoline):
		return http.StatusNotImplemented
	}
	return http.StatusBadRequest
}

// args checks the command word of the expression and the number of
// arguments. It responds itself when they are wrong.
func args(ctx *Context, name string, least, most int) ([]string, bool) {
	if ctx.expr == nil {
		ctx.respFailed(http.StatusBadRequest, "missing expression")
		return nil, false
	}

	cmd, args := ctx.expr.resolve()
	cmdStr := strings.ToLower(cmd)
	if cmdStr != name {
		ctx.respFailed(http.StatusBadRequest, fmt.Sprintf("invalid command: %s", cmdStr))
		return nil, false
	}

	if len(args) < least || (most >= 0 && len(args) > most) {
		ctx.respFailed(http.StatusBadRequest, fmt.Sprintf("invalid number of arguments: %d", len(args)))
		return nil, false
	}
	return args, true
}

func (p *processor) get(ctx *Context) {
	a, ok := args(ctx, "get", 1, 2)
	if !ok {
		return
	}

	kind := ""
	if len(a) == 2 {
		kind = a[1]
	}

	var out string
	err := p.session.Do(func(r *ram.Ram, t *offset.Table) error {
		addr, err := t.Expr(a[0])
		if err != nil {
			return err
		}
		v, err := utils.ReadValue(r, addr, kind)
		if err != nil {
			return err
		}
		out = fmt.Sprintf("%s @ 0x%08x: %s", a[0], addr, v)
		return nil
	})
	if err != nil {
		ctx.respFailed(statusOf(err), err.Error())
		return
	}

	ctx.respSuccess(out)
}

func (p *processor) set(ctx *Context) {
	a, ok := args(ctx, "set", 2, 3)
	if !ok {
		return
	}

	kind, value := "", a[1]
	if len(a) == 3 {
		kind, value = a[1], a[2]
	}

	var out string
	err := p.session.Do(func(r *ram.Ram, t *offset.Table) error {
		addr, err := t.Expr(a[0])
		if err != nil {
			return err
		}
		if err := utils.WriteValue(r, addr, kind, value); err != nil {
			return err
		}
		v, err := utils.ReadValue(r, addr, kind)
		if err != nil {
			return err
		}
		out = fmt.Sprintf("%s @ 0x%08x: %s", a[0], addr, v)
		return nil
	})
	if err != nil {
		ctx.respFailed(statusOf(err), err.Error())
		return
	}

	ctx.respSuccess(out)
}

func (p *processor) list(ctx *Context) {
	prefixes, ok := args(ctx, "list", 0, -1)
	if !ok {
		return
	}

	t := p.session.Table()
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s base 0x%08x\n", t.Version(), t.Base())
	for _, name := range t.Names() {
		if !utils.PrefixIn(name, prefixes) {
			continue
		}
		fmt.Fprintf(&buf, "%-16s 0x%08x\n", name, t.MustGet(name))
	}

	ctx.respSuccess(buf.String())
}

func (p *processor) toggle(ctx *Context) {
	a, ok := args(ctx, "toggle", 2, 2)
	if !ok {
		return
	}

	on, err := utils.ParseBool(a[1])
	if err != nil {
		ctx.respFailed(http.StatusBadRequest, err.Error())
		return
	}

	if err := p.session.Toggle(a[0], on); err != nil {
		ctx.respFailed(statusOf(err), err.Error())
		return
	}

	ctx.respSuccess(fmt.Sprintf("%s: %s", a[0], utils.OnOff(on)))
}

func (p *processor) status(ctx *Context) {
	if _, ok := args(ctx, "status", 0, 0); !ok {
		return
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "FEATURE\tWANTED\tAPPLIED\tERROR")
	for _, st := range p.session.Status() {
		fmt.Fprintf(w, "%s\t%v\t%v\t%s\n", st.Name, st.Wanted, st.Applied, st.Error)
	}
	w.Flush()

	ctx.respSuccess(buf.String())
}

func (p *processor) inject(ctx *Context) {
	if _, ok := args(ctx, "inject", 0, 0); !ok {
		return
	}

	var out string
	err := p.session.Do(func(r *ram.Ram, t *offset.Table) error {
		tr, err := customcode.FromVersion(t)
		if err != nil {
			return err
		}
		data, installed, err := tr.Ensure(r)
		if err != nil {
			return err
		}
		out = fmt.Sprintf("trampoline at 0x%08x (%d bytes), data at 0x%08x, installed now: %v",
			tr.Site(), tr.Len(), data, installed)
		return nil
	})
	if err != nil {
		ctx.respFailed(statusOf(err), err.Error())
		return
	}

	ctx.respSuccess(out)
}

func (p *processor) disasm(ctx *Context) {
	a, ok := args(ctx, "disasm", 1, 2)
	if !ok {
		return
	}

	n := 8
	if len(a) == 2 {
		v, err := strconv.Atoi(a[1])
		if err != nil || v <= 0 || v > maxDisasmWords {
			ctx.respFailed(http.StatusBadRequest, fmt.Sprintf("word count must be 1..%d", maxDisasmWords))
			return
		}
		n = v
	}

	var out string
	err := p.session.Do(func(r *ram.Ram, t *offset.Table) error {
		addr, err := t.Expr(a[0])
		if err != nil {
			return err
		}
		words, err := r.ReadWords(addr, n)
		if err != nil {
			return err
		}
		out = strings.Join(mips.Disassemble(addr, words), "\n")
		return nil
	})
	if err != nil {
		ctx.respFailed(statusOf(err), err.Error())
		return
	}

	ctx.respSuccess(out)
}

func register(p *processor) {
	r := []*Router{
		{
			method: http.MethodGet,
			path:   "/emupatch",
			fn: func(ctx *Context) {
				ctx.respSuccess(nil)
			},
		},
		{method: http.MethodGet, path: "/get", fn: p.get},
		{method: http.MethodPost, path: "/set", fn: p.set},
		{method: http.MethodGet, path: "/list", fn: p.list},
		{method: http.MethodPost, path: "/toggle", fn: p.toggle},
		{method: http.MethodGet, path: "/status", fn: p.status},
		{method: http.MethodPost, path: "/inject", fn: p.inject},
		{method: http.MethodGet, path: "/disasm", fn: p.disasm},
	}

	p.router = r

	t := trie.New()
	for _, router := range p.router {
		md5 := utils.MD5(methodPath(router.method, router.path))
		t.Add(md5, router.fn)
	}

	p.trie = t
}

func methodPath(method, path string) string {
	return fmt.Sprintf("%s:%s", method, path)
}
