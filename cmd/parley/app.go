package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/goldmark"
	pjson "github.com/fwojciec/parley/json"
)

const (
	previewWidth = 60
	renderWidth  = 100
)

// App is the interactive chat front end. All conversation state is owned by
// the goroutine running Run; dispatcher callbacks reach it through loop.
type App struct {
	pipeline *parley.Pipeline
	registry *parley.Registry
	loop     *mainLoop
	out      io.Writer
	theme    parley.Theme
	styles   Styles
	logger   *slog.Logger

	conv    parley.Conversation
	model   string
	gen     parley.Generation
	logDir  string
	pending bool
}

// AppConfig holds the initial App state.
type AppConfig struct {
	Model        string
	Generation   parley.Generation
	SystemPrompt string
	LogDir       string
	Conversation *parley.Conversation
}

// NewApp creates an App.
func NewApp(pipeline *parley.Pipeline, registry *parley.Registry, loop *mainLoop, out io.Writer, cfg AppConfig, logger *slog.Logger) *App {
	a := &App{
		pipeline: pipeline,
		registry: registry,
		loop:     loop,
		out:      out,
		theme:    parley.DefaultTheme(),
		styles:   NewStyles(parley.DefaultTheme()),
		logger:   logger,
		model:    cfg.Model,
		gen:      cfg.Generation,
		logDir:   cfg.LogDir,
	}
	if cfg.Conversation != nil {
		a.conv = *cfg.Conversation
	} else {
		a.conv = parley.Conversation{SystemMessage: cfg.SystemPrompt}
	}
	return a
}

// Conversation returns the current transcript.
func (a *App) Conversation() parley.Conversation { return a.conv }

// Model returns the selected model id.
func (a *App) Model() string { return a.model }

// Run reads lines from in until EOF, /quit, or an interrupt while idle.
// Input is not consumed while a request is in flight; an interrupt during a
// request cancels it. On EOF the in-flight request, if any, is allowed to
// settle before Run returns.
func (a *App) Run(ctx context.Context, in io.Reader, interrupts <-chan os.Signal) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	eof := false
	for {
		if eof && !a.pending {
			return nil
		}
		input := lines
		if a.pending {
			input = nil
		}
		select {
		case <-ctx.Done():
			a.pipeline.Cancel()
			return ctx.Err()
		case fn := <-a.loop.queue:
			fn()
		case <-interrupts:
			if !a.pending {
				return nil
			}
			a.pipeline.Cancel()
		case line, ok := <-input:
			if !ok {
				eof = true
				lines = nil
				continue
			}
			if quit := a.handle(ctx, line); quit {
				a.pipeline.Cancel()
				return nil
			}
		}
	}
}

func (a *App) handle(ctx context.Context, line string) bool {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		a.send(ctx, line)
		return false
	}
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		a.printHelp()
	case "models":
		a.listModels()
	case "show":
		a.show()
	case "print":
		if err := a.print(arg); err != nil {
			a.errorf("%s", describe(err))
		}
	case "cost":
		a.cost(ctx)
	case "logs":
		a.listLogs()
	default:
		if err := a.mutate(ctx, cmd, arg); err != nil {
			a.errorf("%s", describe(err))
		}
	}
	return false
}

func (a *App) mutate(ctx context.Context, cmd, arg string) error {
	switch cmd {
	case "model":
		if arg == "" {
			a.println(a.styles.Muted.Render("model: " + a.model))
			return nil
		}
		if _, err := a.pipeline.Resolve(arg); err != nil {
			return err
		}
		a.model = arg
		a.println(a.styles.Muted.Render("model: " + a.model))
	case "system":
		a.conv.SystemMessage = arg
	case "role", "important", "delete":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("/%s needs a message index: %w", cmd, parley.ErrValidation)
		}
		switch cmd {
		case "role":
			return a.conv.ToggleRole(i)
		case "important":
			return a.conv.ToggleImportant(i)
		default:
			return a.conv.Delete(i)
		}
	case "clear":
		a.conv.Clear()
	case "save":
		return a.save(ctx, arg)
	case "load":
		return a.load(arg)
	case "import":
		return a.importLegacy(arg)
	case "temp":
		t, err := strconv.ParseFloat(arg, 64)
		if err != nil || t < 0 || t > 2 {
			return fmt.Errorf("temperature must be a number in [0, 2]: %w", parley.ErrValidation)
		}
		a.gen.Temperature = &t
	case "max":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return fmt.Errorf("max tokens must be a non-negative integer: %w", parley.ErrValidation)
		}
		a.gen.MaxTokens = n
	case "detail":
		d := parley.ImageDetail(arg)
		if d != parley.ImageDetailLow && d != parley.ImageDetailHigh {
			return fmt.Errorf("image detail must be low or high: %w", parley.ErrValidation)
		}
		a.gen.ImageDetail = d
	default:
		return fmt.Errorf("unknown command /%s, try /help", cmd)
	}
	return nil
}

// send records text as the user turn and submits the conversation.
func (a *App) send(ctx context.Context, text string) {
	if n := len(a.conv.History); n > 0 && a.conv.History[n-1].Role == parley.RoleUser && a.conv.History[n-1].Content == "" {
		a.conv.History[n-1].Content = text
	} else {
		a.conv.Append(parley.RoleUser, text)
	}

	if _, err := a.pipeline.Submit(ctx, a.model, a.conv.Messages(), a.gen, a.sink()); err != nil {
		a.errorf("%s", describe(err))
		return
	}
	a.pending = true
	fmt.Fprint(a.out, a.styles.Role(parley.RoleAssistant).Render("assistant")+" ")
}

// sink returns the callbacks for one request. They run on the Run goroutine.
func (a *App) sink() parley.Sink {
	return &replSink{app: a}
}

type replSink struct {
	app *App
}

func (s *replSink) OnTextDelta(text string) {
	s.app.conv.AppendToLast(text)
	fmt.Fprint(s.app.out, text)
}

func (s *replSink) OnDone() {
	s.app.pending = false
	s.app.conv.AppendEmptyUserTurn()
	s.app.println("")
}

func (s *replSink) OnCancelled() {
	s.app.pending = false
	s.app.println("")
	s.app.println(s.app.styles.Muted.Render("cancelled"))
}

func (s *replSink) OnError(kind parley.ErrorKind, message string) {
	s.app.pending = false
	s.app.println("")
	s.app.logger.Debug("request failed", "kind", kind, "message", message)
	s.app.errorf("%s", message)
}

func (a *App) save(ctx context.Context, name string) error {
	if name == "" {
		suggested, err := a.pipeline.SuggestFileName(ctx, a.conv.Messages())
		if err != nil {
			a.logger.Warn("suggest file name", "error", err)
		}
		name = suggested
	}
	path := filepath.Join(a.logDir, pjson.FileName(name))
	if err := pjson.Save(path, a.conv); err != nil {
		return err
	}
	a.println(a.styles.Muted.Render("saved " + path))
	return nil
}

func (a *App) load(name string) error {
	if name == "" {
		return fmt.Errorf("/load needs a chat log name: %w", parley.ErrValidation)
	}
	c, err := pjson.Load(a.logPath(name))
	if err != nil {
		return err
	}
	a.conv = c
	a.show()
	return nil
}

func (a *App) importLegacy(path string) error {
	if path == "" {
		return fmt.Errorf("/import needs a file path: %w", parley.ErrValidation)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	c, err := pjson.DecodeLegacy(f)
	if err != nil {
		return err
	}
	a.conv = c
	a.show()
	return nil
}

func (a *App) logPath(name string) string {
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(a.logDir, pjson.FileName(name))
}

func (a *App) listLogs() {
	names, err := pjson.List(a.logDir)
	if err != nil {
		a.errorf("%v", err)
		return
	}
	if len(names) == 0 {
		a.println(a.styles.Muted.Render("no chat logs in " + a.logDir))
		return
	}
	for _, n := range names {
		a.println(strings.TrimSuffix(n, pjson.Ext))
	}
}

func (a *App) listModels() {
	for _, id := range a.registry.Models() {
		if id == a.model {
			a.println(a.styles.Accent.Render("* " + id))
			continue
		}
		a.println("  " + id)
	}
}

func (a *App) show() {
	a.println(a.styles.Role(parley.RoleSystem).Render("system") + " " + preview(a.conv.SystemMessage, previewWidth))
	for i, m := range a.conv.History {
		mark := " "
		if m.Important {
			mark = "!"
		}
		a.println(fmt.Sprintf("%3d%s %s %s", i, mark, a.styles.Role(m.Role).Render(string(m.Role)), preview(m.Content, previewWidth)))
	}
}

// print renders message i in full, or the last non-empty message when no
// index is given.
func (a *App) print(arg string) error {
	i := len(a.conv.History) - 1
	for i >= 0 && a.conv.History[i].Content == "" {
		i--
	}
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("/print needs a message index: %w", parley.ErrValidation)
		}
		i = n
	}
	if i < 0 || i >= len(a.conv.History) {
		return fmt.Errorf("print: index %d out of range [0, %d): %w", i, len(a.conv.History), parley.ErrValidation)
	}
	a.println(goldmark.RenderMessage(a.conv.History[i], renderWidth, a.theme))
	return nil
}

func (a *App) cost(ctx context.Context) {
	est, err := a.pipeline.Estimate(ctx, a.model, a.conv.Messages(), a.gen)
	if err != nil {
		a.errorf("%s", describe(err))
		return
	}
	a.println(fmt.Sprintf("input %d tokens ($%.4f), output up to %d tokens ($%.4f)",
		est.InputTokens, est.InputCost, est.OutputTokens, est.OutputCost))
	if est.Images > 0 {
		a.println(fmt.Sprintf("%d images ($%.4f)", est.Images, est.VisionCost))
	}
	a.println(a.styles.Accent.Render(fmt.Sprintf("total %d tokens, $%.4f", est.TotalTokens(), est.TotalCost())))
}

func (a *App) printHelp() {
	a.println(`Type a message to send it. Commands:
  /model [id]        show or select the model
  /models            list known models
  /system text       set the system message
  /show              list the conversation
  /print [i]         render message i, or the last message
  /role i            cycle the role of message i
  /important i       toggle the important flag of message i
  /delete i          delete message i
  /clear             clear the conversation
  /save [name]       save the chat log (name suggested when omitted)
  /load name         load a chat log
  /import path       import a legacy text chat log
  /logs              list saved chat logs
  /cost              estimate the price of the next request
  /temp t            set the temperature
  /max n             set max tokens
  /detail low|high   set the image detail
  /quit              exit
Ctrl-C cancels a request in progress.`)
}

// describe returns the user-facing text for err. Classified provider errors
// carry their own message; everything else is shown as is.
func describe(err error) string {
	var e *parley.Error
	if errors.As(err, &e) {
		return parley.MessageOf(err)
	}
	return err.Error()
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

func (a *App) errorf(format string, args ...any) {
	a.println(a.styles.Error.Render(fmt.Sprintf(format, args...)))
}
