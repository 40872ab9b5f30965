package cmd

import (
	"context"
	e "emupatch/error"
	"emupatch/pkg/customcode"
	"emupatch/pkg/games"
	"emupatch/pkg/offset"
	"emupatch/pkg/ram"
	"emupatch/pkg/session"
	"emupatch/pkg/terminal"
	"emupatch/service"
	"emupatch/service/grpc"
	"emupatch/service/http"
	"emupatch/utils"
	"errors"
	"fmt"
	"github.com/urfave/cli"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"
)

type ExecType int

const (
	Versions ExecType = iota
	Resolve
	Scan
	Get
	Disasm
	Set
	Toggle
	Inject
	Attach
	Conn
)

const (
	defaultAddr = "127.0.0.1:0"
)

type executor struct {
	et   ExecType
	pid  int
	args []string
	ctx  *cli.Context
}

func newExecutor(et ExecType, pid int, args []string, ctx *cli.Context) *executor {
	return &executor{
		et:   et,
		pid:  pid,
		args: args,
		ctx:  ctx,
	}
}

func (ex *executor) run() error {
	switch ex.et {
	case Versions:
		return ex.versions()
	case Resolve:
		return ex.resolve()
	case Scan:
		return ex.scan()
	case Get:
		return ex.get()
	case Disasm:
		return ex.disasm()
	case Set:
		return ex.set()
	case Toggle:
		return ex.toggle()
	case Inject:
		return ex.inject()
	case Attach:
		return ex.attach()
	case Conn:
		return ex.connect(ex.args[0])
	}

	return nil
}

// exec runs a command and turns resolution failures into the message
// users are meant to see.
func exec(et ExecType, pid int, args []string, ctx *cli.Context) error {
	ex := newExecutor(et, pid, args, ctx)
	err := ex.run()
	if err != nil && e.IsResolution(err) {
		utils.PrintError(os.Stderr, err)
		return cli.NewExitError(e.UserMessage(err), 2)
	}
	return err
}

func (ex *executor) versions() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tBASE\tTRAMPOLINE")
	for _, v := range games.Registry().Versions() {
		fmt.Fprintf(w, "%s\t%s\t0x%08x\t%v\n", v.ID, v.Title, v.Base, v.Trampoline != nil)
	}
	return w.Flush()
}

func (ex *executor) resolve() error {
	t, err := openTarget(ex.ctx, ex.pid)
	if err != nil {
		return err
	}
	table, err := t.resolve(ex.ctx)
	if err != nil {
		return err
	}

	utils.PrintHeader(os.Stdout, "%s: %s, base 0x%08x", t.desc, table.Version(), table.Base())
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for _, name := range table.Names() {
		fmt.Fprintf(w, "%s\t0x%08x\n", name, table.MustGet(name))
	}
	return w.Flush()
}

func (ex *executor) scan() error {
	v, err := games.Registry().Lookup(ex.args[0])
	if err != nil {
		return err
	}

	t, err := openTarget(ex.ctx, ex.pid)
	if err != nil {
		return err
	}

	from, to := uint32(ex.ctx.Uint("from")), uint32(ex.ctx.Uint("to"))
	hits, err := offset.Locate(t.ram, v.Signature, from, to)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Printf("%s: signature not found in 0x%08x-0x%08x\n", v.ID, from, to)
		return nil
	}
	for _, addr := range hits {
		mark := ""
		if addr == v.Base {
			mark = " (table base)"
		}
		fmt.Printf("%s: candidate base 0x%08x%s\n", v.ID, addr, mark)
	}
	return nil
}

// withSession runs fn against the resolved build. No features are loaded.
func (ex *executor) withSession(fn func(r *ram.Ram, t *offset.Table) error) error {
	tgt, table, err := openBuild(ex.ctx, ex.pid)
	if err != nil {
		return err
	}
	s, err := session.New(tgt.ram, table)
	if err != nil {
		return err
	}
	return s.Do(fn)
}

func (ex *executor) get() error {
	r := rArgs(ex.args)
	return ex.withSession(func(mem *ram.Ram, t *offset.Table) error {
		addr, err := t.Expr(r.addr)
		if err != nil {
			return err
		}
		v, err := utils.ReadValue(mem, addr, r.kind)
		if err != nil {
			return err
		}
		fmt.Printf("%s @ 0x%08x: %s\n", r.addr, addr, v)
		return nil
	})
}

func (ex *executor) disasm() error {
	n := 8
	if len(ex.args) > 1 {
		v, err := strconv.Atoi(ex.args[1])
		if err != nil || v <= 0 {
			return fmt.Errorf("bad word count %q", ex.args[1])
		}
		n = v
	}

	return ex.withSession(func(mem *ram.Ram, t *offset.Table) error {
		addr, err := t.Expr(ex.args[0])
		if err != nil {
			return err
		}
		words, err := mem.ReadWords(addr, n)
		if err != nil {
			return err
		}
		utils.PrintWords(os.Stdout, addr, words)
		return nil
	})
}

func (ex *executor) set() error {
	w := wArgs(ex.args)
	return ex.withSession(func(mem *ram.Ram, t *offset.Table) error {
		addr, err := t.Expr(w.addr)
		if err != nil {
			return err
		}
		if err := utils.WriteValue(mem, addr, w.kind, w.value); err != nil {
			return err
		}
		v, err := utils.ReadValue(mem, addr, w.kind)
		if err != nil {
			return err
		}
		fmt.Printf("%s @ 0x%08x: %s\n", w.addr, addr, v)
		return nil
	})
}

func (ex *executor) toggle() error {
	on, err := utils.ParseBool(ex.args[1])
	if err != nil {
		return err
	}

	_, s, err := newSession(ex.ctx, ex.pid)
	if err != nil {
		return err
	}
	if err := s.Toggle(ex.args[0], on); err != nil {
		return err
	}
	// Other features keep whatever state earlier runs left them in.
	if err := s.UpdateOne(ex.args[0]); err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", ex.args[0], utils.OnOff(on))
	return nil
}

func (ex *executor) inject() error {
	return ex.withSession(func(mem *ram.Ram, t *offset.Table) error {
		tr, err := customcode.FromVersion(t)
		if err != nil {
			return err
		}
		data, installed, err := tr.Ensure(mem)
		if err != nil {
			return err
		}
		if !installed {
			fmt.Printf("trampoline already in place at 0x%08x\n", tr.Site())
		}
		utils.PrintWords(os.Stdout, tr.Site(), tr.Words())
		fmt.Printf("data area at 0x%08x (%d bytes)\n", data, tr.DataSize())
		return nil
	})
}

func (ex *executor) attach() error {
	tgt, s, err := newSession(ex.ctx, ex.pid)
	if err != nil {
		return err
	}
	fmt.Printf("attached to %s, build %s\n", tgt.desc, s.Table().Version())

	if err := s.Adopt(); err != nil {
		utils.PrintError(os.Stderr, err)
	}

	for _, name := range ex.ctx.StringSlice("enable") {
		if err := s.Toggle(name, true); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interval := ex.ctx.Duration("interval")
	go func() {
		if err := s.Run(runCtx, interval); err != nil && !errors.Is(err, context.Canceled) {
			utils.PrintError(os.Stderr, fmt.Errorf("update loop stopped: %w", err))
		}
	}()
	if tgt.prowler != nil {
		go watchTarget(runCtx, cancel, tgt)
	}

	listener, err := net.Listen("tcp", ex.ctx.String("listen"))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	var servers []service.Server
	servers = append(servers, http.NewServer(listener, s))

	if addr := ex.ctx.String("grpc"); addr != "" {
		gl, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		servers = append(servers, grpc.NewServer(gl, s, ex.ctx.Duration("health-interval")))
		fmt.Printf("health service on %s\n", gl.Addr())
	}

	for _, srv := range servers {
		defer srv.Stop()
		if err := srv.Run(); err != nil {
			return err
		}
	}

	if ex.ctx.Bool("headless") {
		fmt.Printf("serving on %s\n", listener.Addr())
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
		case <-runCtx.Done():
		}
		return nil
	}

	return ex.connect(listener.Addr().String())
}

// watchTarget stops the update loop once the emulator process exits.
func watchTarget(ctx context.Context, cancel context.CancelFunc, tgt *target) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !tgt.prowler.Alive() {
				utils.PrintError(os.Stderr, fmt.Errorf("%s exited", tgt.desc))
				cancel()
				return
			}
		}
	}
}

func (ex *executor) connect(addr string) (err error) {
	var client service.Client
	srv := ex.ctx.String("srv")
	switch srv {
	case "http":
		fallthrough
	default:
		client, err = http.NewClient(addr)
		if err != nil {
			return
		}
	}

	term := terminal.New(client)
	return term.Run()
}
