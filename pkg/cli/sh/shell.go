// Package sh is an interactive shell driving a simulated headband.
package sh

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"text/tabwriter"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/openeeg/headband.go/pkg/env"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	BootTimeout time.Duration

	Shell   *ishell.Shell
	Config  *env.Config
	Session *Session
}

const (
	shellKey      = "$shell"
	offPrompt     = "[off] > "
	runningPrompt = "headband > "
)

var (
	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&BootCmd,
		&StatusCmd,
		&ResetCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		BootTimeout: 2 * time.Second,
		Shell:       ishell.New(),
		Config:      conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(offPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeBooted wraps a command func requiring a running board.
func MustBeBooted(fn func(c *ishell.Context, s *Session)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c).Session
		if s == nil {
			c.Err(fmt.Errorf("not booted"))
			return
		}
		fn(c, s)
	}
}

// Output prints v as JSON, or in text form via fn.
func Output(c *ishell.Context, v interface{}, fn func()) {
	if !ShellFrom(c).OutputJSON {
		fn()
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Boot starts a new session, stopping the current one.
func (s *Shell) Boot() error {
	s.Shutdown()
	l, err := s.Config.Layout()
	if err != nil {
		return err
	}
	session, err := StartSession(l, s.BootTimeout)
	if err != nil {
		return err
	}
	s.Session = session
	s.Shell.SetPrompt(runningPrompt)
	return nil
}

// Shutdown stops the current session.
func (s *Shell) Shutdown() {
	if s.Session != nil {
		s.Session.Close()
		s.Session = nil
		s.Shell.SetPrompt(offPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Shutdown()
	if len(args) > 0 {
		if err := s.Boot(); err != nil {
			log.Fatalf("boot failed: %v", err)
		}
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// BootCmd powers the board on and boots both cores.
	BootCmd = ishell.Cmd{
		Name:    "boot",
		Aliases: []string{"b"},
		Help:    "power on and boot both cores",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Boot(); err != nil {
				c.Err(err)
				return
			}
			Output(c, s.Session.Status(), func() {
				c.Printf("operational, cycle %s\n", s.Session.Status().Cycle)
			})
		},
	}

	// StatusCmd prints the status of both cores.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: MustBeBooted(func(c *ishell.Context, s *Session) {
			st := s.Status()
			Output(c, st, func() {
				var buf bytes.Buffer
				w := tabwriter.NewWriter(&buf, 0, 4, 1, ' ', 0)
				fmt.Fprintf(w, "primary\t%s\t(%s, net core %s)\n", st.Primary, st.Cycle, st.Boot)
				fmt.Fprintf(w, "peer\t%s\n", st.Peer)
				fmt.Fprintf(w, "queue\t%d queued, %d pending delivery\n", st.Queued, st.Pending)
				fmt.Fprintf(w, "records\t%d sent, %d dropped, %d received\n", st.Sent, st.Dropped, st.Received)
				if st.NetFault != "" {
					fmt.Fprintf(w, "net fault\t%s\n", st.NetFault)
				}
				if st.AppResult != "" {
					fmt.Fprintf(w, "app stopped\t%s\n", st.AppResult)
				}
				w.Flush()
				c.Print(buf.String())
			})
		}),
	}

	// ResetCmd performs a full device reset.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "full device reset",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			s.Shutdown()
			if err := s.Boot(); err != nil {
				c.Err(err)
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).Run(flag.Args()...)
}
