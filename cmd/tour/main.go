// Command tour runs the typetour walkthrough: value combining, shouting,
// order portion checks and the first post of the posts endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/peterh/liner"

	"github.com/liamcoop/typetour/dessert"
	"github.com/liamcoop/typetour/internal/config"
	"github.com/liamcoop/typetour/internal/logger"
	"github.com/liamcoop/typetour/posts"
	"github.com/liamcoop/typetour/union"
)

const (
	historyFile = ".typetour_history"
	prompt      = "tour> "

	// textExpected is printed when Shout gets a number
	textExpected = "Error - A string was expected here."
)

const help = `commands:
  combine a b        add two numbers or join two strings ("quoted" forces text)
  scoops n [flavor]  rate an ice cream order
  shout v            upper-case a string
  post               show the first post
  :help              show this help
  :quit              leave`

// tour holds what the walkthrough and the REPL share
type tour struct {
	evaluator *dessert.Evaluator
	posts     *posts.Client
	dump      io.Writer // nil disables post dumps
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	url := flag.String("url", "", "Posts endpoint, overrides the config")
	offline := flag.Bool("offline", false, "Skip the posts section")
	dump := flag.Bool("dump", false, "Dump the fetched post to stderr")
	repl := flag.Bool("repl", false, "Start an interactive session after the walkthrough")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}
	if level, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if *url != "" {
		cfg.Posts.URL = *url
	}

	evaluator, err := dessert.Default()
	if err != nil {
		logger.Fatal("failed to load portion rules", "error", err)
	}

	t := &tour{
		evaluator: evaluator,
		posts:     posts.NewClient(cfg.Posts.URL),
	}
	if *dump {
		t.dump = os.Stderr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := t.walkthrough(ctx, os.Stdout, *offline); err != nil {
		fmt.Fprintf(os.Stderr, "tour: %v\n", err)
		code = 1
	}
	if *repl {
		t.runREPL(ctx)
	}

	if err := logger.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
	os.Exit(code)
}

// walkthrough prints every demonstration in order.
// Only the posts section can fail the run.
func (t *tour) walkthrough(ctx context.Context, w io.Writer, offline bool) error {
	for _, pair := range [][2]union.Value{
		{union.Text("one"), union.Text("two")},
		{union.Number(1), union.Number(2)},
		{union.Text("one"), union.Number(2)},
	} {
		printCombine(w, pair[0], pair[1])
	}

	printShout(w, union.Text("Mateo"))
	printShout(w, union.Number(10))

	myIceCream := dessert.IceCream{Flavor: "vanilla", Scoops: 5}
	fmt.Fprintln(w, myIceCream.Flavor)

	for _, order := range []dessert.Dessert{
		myIceCream,
		dessert.Sundae{IceCream: myIceCream, Sauce: dessert.Caramel},
	} {
		if err := t.printOrder(w, order); err != nil {
			return err
		}
	}

	flavors := []string{"chocolate", "vanilla", "strawberry"}
	fmt.Fprintln(w, flavors[0])

	if offline {
		return nil
	}
	return t.showPost(ctx, w)
}

func printCombine(w io.Writer, x, y union.Value) {
	v, err := union.Combine(x, y)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, v)
}

func printShout(w io.Writer, v union.Value) {
	s, err := union.Shout(v)
	if errors.Is(err, union.ErrTextExpected) {
		fmt.Fprintln(w, textExpected)
		return
	}
	fmt.Fprintln(w, s)
}

func (t *tour) printOrder(w io.Writer, order dessert.Dessert) error {
	msg, err := t.evaluator.Evaluate(order)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, msg)
	return nil
}

func (t *tour) showPost(ctx context.Context, w io.Writer) error {
	post, err := t.posts.FirstPost(ctx)
	if err != nil {
		return err
	}
	if t.dump != nil {
		spew.Fdump(t.dump, post)
	}
	for _, line := range post.Lines() {
		fmt.Fprintln(w, line)
	}
	return nil
}

// exec runs one REPL line. It reports false once the session should end.
func (t *tour) exec(ctx context.Context, w io.Writer, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true, nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case ":quit", ":q":
		return false, nil
	case ":help":
		fmt.Fprintln(w, help)
	case "combine":
		if len(args) != 2 {
			return true, fmt.Errorf("usage: combine a b")
		}
		printCombine(w, union.Parse(args[0]), union.Parse(args[1]))
	case "shout":
		if len(args) != 1 {
			return true, fmt.Errorf("usage: shout v")
		}
		printShout(w, union.Parse(args[0]))
	case "scoops":
		if len(args) < 1 || len(args) > 2 {
			return true, fmt.Errorf("usage: scoops n [flavor]")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return true, fmt.Errorf("scoops: %w", err)
		}
		order := dessert.IceCream{Flavor: "vanilla", Scoops: n}
		if len(args) == 2 {
			order.Flavor = args[1]
		}
		return true, t.printOrder(w, order)
	case "post":
		return true, t.showPost(ctx, w)
	default:
		return true, fmt.Errorf("unknown command %q, type :help", cmd)
	}
	return true, nil
}

func (t *tour) runREPL(ctx context.Context) {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) []string {
		var out []string
		for _, c := range []string{"combine ", "scoops ", "shout ", "post", ":help", ":quit"} {
			if strings.HasPrefix(c, strings.ToLower(line)) {
				out = append(out, c)
			}
		}
		return out
	})

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println("typetour repl, :help for commands")
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return
		}
		if err != nil {
			logger.Error("failed to read input", "error", err)
			return
		}

		more, err := t.exec(ctx, os.Stdout, line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if !more {
			return
		}
	}
}
