package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/raphaelgruber/docforge/internal/agent"
	"github.com/raphaelgruber/docforge/internal/project"
	"github.com/spf13/cobra"
)

var chatWatch bool

const chatHelp = `Commands:
  /add <name> <type> [model]   register an agent (text, prototype or a diagram kind)
  /list                        list agents
  /gen <name> [count]          generate the next artifact(s)
  /edit <name> <instruction>   rework the agent's last artifact
  /show <name>                 show the agent's last artifact
  /remove <name>               unregister an agent
  /clear                       unregister every agent
  /reload                      re-read the project directory
  /usage                       show timing and token statistics
  /quit                        leave the session`

var chatCmd = &cobra.Command{
	Use:   "chat <project-dir>",
	Short: "Interactive session with named agents",
	Long: `Start an interactive session on the project in <project-dir>.

Agents keep their conversation for the whole session, so a document can be
generated, inspected and refined step by step.

` + chatHelp + `

Examples:
  docforge chat ./shop
  docforge chat ./shop --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVarP(&chatWatch, "watch", "w", false, "reload the project when its files change")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := openSession(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			logger.Warn("failed to close stores", "error", err)
		}
	}()

	r := newREPL(sess, os.Stdin, os.Stdout)

	if chatWatch {
		w, err := project.NewWatcher(args[0], logger)
		if err != nil {
			return fmt.Errorf("watch project: %w", err)
		}
		defer w.Close()
		go r.follow(w.Watch(ctx))
	}

	fmt.Fprintf(os.Stdout, "Session on %s. Type /help for commands.\n", sess.orch.Project().ProjectName)
	return r.run(ctx)
}

// errQuit ends the session.
var errQuit = errors.New("quit")

// repl reads one command per line and runs it against the session.
type repl struct {
	sess *session
	in   io.Reader
	out  io.Writer
	mu   sync.Mutex // serializes writes to out
}

func newREPL(sess *session, in io.Reader, out io.Writer) *repl {
	return &repl{sess: sess, in: in, out: out}
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// run processes lines until EOF, /quit or ctx is cancelled.
func (r *repl) run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	r.printf("> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := r.exec(ctx, strings.TrimSpace(scanner.Text()))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			r.printError(err)
		}
		r.printf("> ")
	}
	return scanner.Err()
}

func (r *repl) printError(err error) {
	kind := agent.KindOf(err)
	if kind == agent.KindUnknown {
		r.printf("error: %v\n", err)
		return
	}
	r.printf("error [%s]: %v\n", kind, err)
}

// follow reloads the project for every change reported on changes.
func (r *repl) follow(changes <-chan string) {
	for path := range changes {
		framed, err := r.sess.reload()
		if err != nil {
			r.printf("\nreload after change to %s failed: %v\n> ", path, err)
			continue
		}
		r.printf("\nproject reloaded (%d agents framed)\n> ", len(framed))
	}
}

func (r *repl) exec(ctx context.Context, line string) error {
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return fmt.Errorf("commands start with /, try /help")
	}
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	orch := r.sess.orch

	switch cmd {
	case "/quit", "/exit":
		return errQuit

	case "/help":
		r.printf("%s\n", chatHelp)
		return nil

	case "/add":
		if len(args) < 2 {
			return fmt.Errorf("usage: /add <name> <type> [model]")
		}
		variant, kind, err := parseAgentType(args[1])
		if err != nil {
			return err
		}
		model := ""
		if len(args) > 2 {
			model = args[2]
		}
		a, err := orch.Register(args[0], variant, kind, model)
		if err != nil {
			return err
		}
		r.printf("registered %s (%s, %s)\n", a.Name(), a.Variant(), a.State())
		return nil

	case "/list":
		infos := orch.List()
		if len(infos) == 0 {
			r.printf("no agents, add one with /add\n")
			return nil
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTYPE\tMODEL\tSTATE\tTURNS")
		for _, info := range infos {
			typ := string(info.Variant)
			if info.DiagramKind != "" {
				typ = string(info.DiagramKind)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", info.Name, typ, info.Model, info.State, info.Turns)
		}
		return tw.Flush()

	case "/gen":
		if len(args) < 1 {
			return fmt.Errorf("usage: /gen <name> [count]")
		}
		count := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("count must be a positive number")
			}
			count = n
		}
		for i := 0; i < count; i++ {
			art, err := orch.Generate(ctx, args[0])
			if err != nil {
				return err
			}
			r.printf("generated %q\n", art.Title)
		}
		return nil

	case "/edit":
		if len(args) < 2 {
			return fmt.Errorf("usage: /edit <name> <instruction>")
		}
		art, err := orch.Edit(ctx, args[0], strings.Join(args[1:], " "), "")
		if err != nil {
			return err
		}
		r.printf("edited %q\n", art.Title)
		return nil

	case "/show":
		if len(args) != 1 {
			return fmt.Errorf("usage: /show <name>")
		}
		art, ok, err := orch.Last(args[0])
		if err != nil {
			return err
		}
		if !ok {
			r.printf("%s has not produced anything yet\n", args[0])
			return nil
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		return printArtifact(r.out, art)

	case "/remove":
		if len(args) != 1 {
			return fmt.Errorf("usage: /remove <name>")
		}
		if err := orch.Unregister(args[0]); err != nil {
			return err
		}
		r.printf("removed %s\n", args[0])
		return nil

	case "/clear":
		orch.ClearAll()
		r.printf("all agents removed\n")
		return nil

	case "/reload":
		framed, err := r.sess.reload()
		if err != nil {
			return err
		}
		r.printf("project reloaded (%d agents framed)\n", len(framed))
		return nil

	case "/usage":
		r.mu.Lock()
		defer r.mu.Unlock()
		printUsage(r.out, collector.Snapshot())
		return nil
	}
	return fmt.Errorf("unknown command %s, try /help", cmd)
}
