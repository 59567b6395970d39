package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"archcanvas/internal/confirm"
	"archcanvas/internal/domain"
	"archcanvas/internal/notify"
	"archcanvas/internal/selection"
	"archcanvas/internal/workflow"
)

var shellResume string

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Build an architecture interactively",
	Long: `Opens an interactive canvas. Drops and connections ask for subtypes, names
and link types on the terminal; answer with the option number or id, or type
` + confirm.CancelInput + ` to abandon the gesture. Type "help" for the command list.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().StringVar(&shellResume, "resume", "", `Resume a saved session by id, or the latest with "latest"`)
	shellCmd.Flags().Lookup("resume").NoOptDefVal = resumeLatest
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if !verboseFlag {
		// notifications are printed on the terminal; keep the log for problems
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	term := confirm.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
	terminalSurface := func(string, notify.Publisher) confirm.Surface { return term }
	ws, err := openWorkspace(ctx, shellResume, terminalSurface, notify.SinkFunc(func(n notify.Notification) {
		term.Printf("%s\n", notificationLine(n))
	}))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.autosave(ctx)
	}()

	sh := newShell(term, ws.engine)
	sh.extra["save"] = shellCommand{"save", "Save the canvas to the database", func(ctx context.Context, _ []string) error {
		if err := ws.save(ctx); err != nil {
			return err
		}
		term.Printf("saved session %s\n", ws.sessionID())
		return nil
	}}
	sh.extra["history"] = shellCommand{"history [N]", "Show the last N notifications of this session", func(ctx context.Context, args []string) error {
		limit := 20
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return usageErrorf("history: %q is not a positive count", args[0])
			}
			limit = n
		}
		all, err := ws.repo.Notifications(ctx, ws.sessionID(), limit)
		if err != nil {
			return err
		}
		for _, n := range all {
			term.Printf("%s [%s] %s\n", n.Time.Local().Format("15:04:05"), n.Level, n.Message)
		}
		return nil
	}}

	term.Printf("archcanvas %s, session %s\n", Version, ws.sessionID())
	term.Printf("Type \"help\" for commands.\n")
	runErr := sh.run(ctx)

	cancel()
	<-done
	if err := ws.close(); err != nil {
		logger.Warn("final save failed", "error", err)
	}
	return runErr
}

var levelColors = map[notify.Level]*color.Color{
	notify.LevelSuccess: color.New(color.FgGreen),
	notify.LevelInfo:    color.New(color.FgCyan),
	notify.LevelWarning: color.New(color.FgYellow),
	notify.LevelError:   color.New(color.FgRed, color.Bold),
}

// notificationLine renders n for the terminal, coloured by level when the
// output is a terminal
func notificationLine(n notify.Notification) string {
	tag := "[" + string(n.Level) + "]"
	if c, ok := levelColors[n.Level]; ok {
		tag = c.Sprint(tag)
	}
	return tag + " " + n.Message
}

// usageError is a mistake in a shell command line. Engine failures are
// reported through notifications instead.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type shellCommand struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// shell is the command loop of the interactive canvas
type shell struct {
	term   *confirm.Terminal
	engine *workflow.Engine
	extra  map[string]shellCommand
}

func newShell(term *confirm.Terminal, engine *workflow.Engine) *shell {
	return &shell{term: term, engine: engine, extra: make(map[string]shellCommand)}
}

func (s *shell) commands() map[string]shellCommand {
	cmds := map[string]shellCommand{
		"palette":  {"palette", "List component types", s.palette},
		"subtypes": {"subtypes TYPE", "List the subtypes of a component type", s.subtypes},
		"drop":     {"drop TYPE [SUBTYPE] [X Y]", "Add a component, asking for anything not given", s.drop},
		"drag":     {"drag TYPE [X Y]", "Add a component with the pinned or first subtype", s.drag},
		"connect":  {"connect SOURCE TARGET", "Link two components", s.connect},
		"delete":   {"delete COMPONENT", "Delete a component and its links", s.deleteComponent},
		"unlink":   {"unlink LINK", "Delete a link", s.unlink},
		"rename":   {"rename COMPONENT NAME...", "Rename a component", s.rename},
		"move":     {"move COMPONENT X Y", "Move a component", s.move},
		"select":   {"select COMPONENT|LINK", "Select a component or link", s.selectEntity},
		"clear":    {"clear", "Clear the selection", s.clearSelection},
		"hover":    {"hover TYPE [SUBTYPE]", "Preview a palette entry", s.hover},
		"pin":      {"pin TYPE SUBTYPE", "Preview a palette entry until replaced", s.pin},
		"unhover":  {"unhover", "Drop an unpinned preview", s.unhover},
		"show":     {"show", "Print the canvas and the selection", s.show},
		"pending":  {"pending", "List workflows in progress", s.pendingOps},
		"validate": {"validate", "Validate the architecture", s.validate},
		"evaluate": {"evaluate", "Evaluate the architecture", s.evaluate},
		"reset":    {"reset", "Clear the canvas and start a new architecture", s.reset},
	}
	for name, c := range s.extra {
		cmds[name] = c
	}
	return cmds
}

// run reads commands until quit or end of input
func (s *shell) run(ctx context.Context) error {
	cmds := s.commands()
	for {
		s.term.Printf("> ")
		line, err := s.term.ReadLine(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			s.term.Printf("\n")
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name, args := strings.ToLower(fields[0]), fields[1:]
		switch name {
		case "quit", "exit":
			return nil
		case "help", "?":
			s.help(cmds)
			continue
		}

		c, ok := cmds[name]
		if !ok {
			s.term.Printf("unknown command %q, type \"help\"\n", name)
			continue
		}
		if err := c.run(ctx, args); err != nil {
			var ue *usageError
			if errors.As(err, &ue) {
				s.term.Printf("%s\nusage: %s\n", ue.msg, c.usage)
			} else if workflow.Classify(err) == workflow.KindInternal {
				s.term.Printf("error: %v\n", err)
			}
		}
	}
}

func (s *shell) help(cmds map[string]shellCommand) {
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.term.Printf("  %-28s %s\n", cmds[name].usage, cmds[name].help)
	}
	s.term.Printf("  %-28s %s\n", "quit", "Save and leave the shell")
}

func (s *shell) palette(ctx context.Context, args []string) error {
	for _, t := range domain.ComponentTypes {
		if s.engine.HasSubtypes(t) {
			s.term.Printf("  %-18s %s (subtypes)\n", t, t.Words())
		} else {
			s.term.Printf("  %-18s %s\n", t, t.Words())
		}
	}
	return nil
}

func (s *shell) subtypes(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErrorf("subtypes: expected a component type")
	}
	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	if !s.engine.HasSubtypes(t) {
		s.term.Printf("%s has no subtypes\n", t.Words())
		return nil
	}
	opts, err := s.engine.SubtypeOptions(ctx, t)
	if err != nil {
		s.term.Printf("subtypes unavailable: %v\n", err)
		return nil
	}
	for _, o := range opts {
		s.term.Printf("  %-18s %s\n", o.ID, o.DisplayName())
	}
	return nil
}

func (s *shell) drop(ctx context.Context, args []string) error {
	payload, pos, err := parseDrop(args)
	if err != nil {
		return err
	}
	_, err = s.engine.Drop(ctx, payload, pos)
	return err
}

func (s *shell) drag(ctx context.Context, args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return usageErrorf("drag: expected a component type and an optional position")
	}
	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	var pos domain.Position
	if len(args) == 3 {
		if pos, err = parsePosition(args[1:]); err != nil {
			return err
		}
	}
	payload := s.engine.Selection().DragStart(ctx, t)
	if payload.Subtype != "" {
		s.term.Printf("dragging %s (%s)\n", t.Words(), payload.Subtype)
	}
	_, err = s.engine.Drop(ctx, payload, pos)
	return err
}

func (s *shell) connect(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageErrorf("connect: expected a source and a target component")
	}
	nodes := s.engine.Canvas().Nodes()
	source, err := resolveNode(nodes, args[0])
	if err != nil {
		return err
	}
	target, err := resolveNode(nodes, args[1])
	if err != nil {
		return err
	}
	_, err = s.engine.Connect(ctx, domain.ConnectionParams{Source: source, Target: target})
	return err
}

func (s *shell) deleteComponent(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErrorf("delete: expected a component")
	}
	id, err := resolveNode(s.engine.Canvas().Nodes(), args[0])
	if err != nil {
		return err
	}
	return s.engine.DeleteComponent(ctx, id)
}

func (s *shell) unlink(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErrorf("unlink: expected a link")
	}
	id, err := resolveEdge(s.engine.Canvas().Edges(), args[0])
	if err != nil {
		return err
	}
	return s.engine.DeleteLink(ctx, id)
}

func (s *shell) rename(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageErrorf("rename: expected a component and a name")
	}
	id, err := resolveNode(s.engine.Canvas().Nodes(), args[0])
	if err != nil {
		return err
	}
	_, err = s.engine.RenameComponent(ctx, id, strings.Join(args[1:], " "))
	return err
}

func (s *shell) move(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usageErrorf("move: expected a component and a position")
	}
	id, err := resolveNode(s.engine.Canvas().Nodes(), args[0])
	if err != nil {
		return err
	}
	pos, err := parsePosition(args[1:])
	if err != nil {
		return err
	}
	_, err = s.engine.MoveComponent(id, pos)
	return err
}

func (s *shell) selectEntity(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErrorf("select: expected a component or a link")
	}
	canvas := s.engine.Canvas()
	if id, err := resolveNode(canvas.Nodes(), args[0]); err == nil {
		return s.engine.SelectNode(id)
	}
	id, err := resolveEdge(canvas.Edges(), args[0])
	if err != nil {
		return usageErrorf("select: nothing matches %q", args[0])
	}
	return s.engine.SelectEdge(id)
}

func (s *shell) clearSelection(ctx context.Context, args []string) error {
	s.engine.Selection().Clear()
	return nil
}

func (s *shell) hover(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageErrorf("hover: expected a component type and an optional subtype")
	}
	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	subtype := ""
	if len(args) == 2 {
		subtype = args[1]
	}
	s.printSelection(s.engine.Selection().Hover(ctx, t, subtype))
	return nil
}

func (s *shell) pin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageErrorf("pin: expected a component type and a subtype")
	}
	t, err := parseType(args[0])
	if err != nil {
		return err
	}
	s.printSelection(s.engine.Selection().Pin(ctx, t, args[1]))
	return nil
}

func (s *shell) unhover(ctx context.Context, args []string) error {
	s.engine.Selection().Unhover()
	return nil
}

func (s *shell) show(ctx context.Context, args []string) error {
	canvas := s.engine.Canvas()
	if arch, ok := s.engine.Session().Architecture(); ok {
		s.term.Printf("architecture %s (%s)\n", arch.Name, arch.ID)
	} else {
		s.term.Printf("no architecture\n")
	}

	nodes := canvas.Nodes()
	s.term.Printf("%d components\n", len(nodes))
	for _, n := range nodes {
		kind := n.Type.Words()
		if n.Subtype != "" {
			kind += "/" + n.Subtype
		}
		s.term.Printf("  %s  %-24s %-28s (%g, %g)\n", shortID(n.LocalID), n.Label(), kind, n.Position.X, n.Position.Y)
	}

	edges := canvas.Edges()
	s.term.Printf("%d links\n", len(edges))
	for _, e := range edges {
		src, dst := e.SourceLocalID, e.TargetLocalID
		if n, ok := canvas.Node(src); ok {
			src = n.Label()
		}
		if n, ok := canvas.Node(dst); ok {
			dst = n.Label()
		}
		label := e.Label
		if e.Optimistic {
			label += " (pending)"
		}
		s.term.Printf("  %s  %s -> %s  %s\n", shortID(e.LocalID), src, dst, label)
	}

	s.printSelection(s.engine.Selection().Current())
	return nil
}

func (s *shell) pendingOps(ctx context.Context, args []string) error {
	ops := s.engine.Pending()
	if len(ops) == 0 {
		s.term.Printf("nothing pending\n")
		return nil
	}
	for _, op := range ops {
		data, err := json.Marshal(op)
		if err != nil {
			return err
		}
		s.term.Printf("  %s %s\n", op.Kind(), data)
	}
	return nil
}

func (s *shell) validate(ctx context.Context, args []string) error {
	report, err := s.engine.ValidateArchitecture(ctx)
	if err != nil {
		return err
	}
	for _, v := range report.Violations {
		s.term.Printf("  - %s\n", v)
	}
	return nil
}

func (s *shell) evaluate(ctx context.Context, args []string) error {
	report, err := s.engine.EvaluateArchitecture(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(report.Raw, "", "  ")
	if err != nil {
		out = report.Raw
	}
	s.term.Printf("%s\n", out)
	return nil
}

func (s *shell) reset(ctx context.Context, args []string) error {
	return s.engine.ResetCanvas(ctx)
}

func (s *shell) printSelection(sel selection.Selection) {
	switch v := sel.(type) {
	case selection.Node:
		if n, ok := s.engine.Canvas().Node(v.LocalID); ok {
			s.term.Printf("selected component %s (%s)\n", n.Label(), shortID(n.LocalID))
		}
	case selection.Edge:
		if e, ok := s.engine.Canvas().Edge(v.LocalID); ok {
			s.term.Printf("selected link %s (%s)\n", e.Label, shortID(e.LocalID))
		}
	case selection.Preview:
		state := "preview"
		if v.Pinned {
			state = "pinned preview"
		}
		s.term.Printf("%s of %s %s\n", state, v.Type.Words(), v.Subtype)
		if len(v.Heuristics) > 0 {
			s.term.Printf("  heuristics: %s\n", v.Heuristics)
		}
	default:
		s.term.Printf("nothing selected\n")
	}
}

// --- argument parsing ---

func parseType(s string) (domain.ComponentType, error) {
	t, err := domain.ParseComponentType(s)
	if err != nil {
		return "", usageErrorf("unknown component type %q, see \"palette\"", s)
	}
	return t, nil
}

func parsePosition(args []string) (domain.Position, error) {
	if len(args) != 2 {
		return domain.Position{}, usageErrorf("a position is two numbers")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return domain.Position{}, usageErrorf("bad x coordinate %q", args[0])
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return domain.Position{}, usageErrorf("bad y coordinate %q", args[1])
	}
	return domain.Position{X: x, Y: y}, nil
}

// parseDrop reads TYPE [SUBTYPE] [X Y]
func parseDrop(args []string) (selection.DragPayload, domain.Position, error) {
	var payload selection.DragPayload
	if len(args) == 0 {
		return payload, domain.Position{}, usageErrorf("drop: expected a component type")
	}
	t, err := parseType(args[0])
	if err != nil {
		return payload, domain.Position{}, err
	}
	payload.Type = t

	rest := args[1:]
	if len(rest) == 1 || len(rest) == 3 {
		payload.Subtype = rest[0]
		rest = rest[1:]
	}
	switch len(rest) {
	case 0:
		return payload, domain.Position{}, nil
	case 2:
		pos, err := parsePosition(rest)
		return payload, pos, err
	}
	return payload, domain.Position{}, usageErrorf("drop: too many arguments")
}

// resolveNode finds a component by local id, unique id prefix or label
func resolveNode(nodes []*domain.ComponentNode, ref string) (string, error) {
	var byPrefix, byLabel []string
	for _, n := range nodes {
		if n.LocalID == ref {
			return n.LocalID, nil
		}
		if strings.HasPrefix(n.LocalID, ref) {
			byPrefix = append(byPrefix, n.LocalID)
		}
		if strings.EqualFold(n.Label(), ref) {
			byLabel = append(byLabel, n.LocalID)
		}
	}
	return pickOne("component", ref, byPrefix, byLabel)
}

// resolveEdge finds a confirmed link by local id or unique id prefix
func resolveEdge(edges []*domain.LinkEdge, ref string) (string, error) {
	var byPrefix []string
	for _, e := range edges {
		if e.LocalID == ref {
			return e.LocalID, nil
		}
		if strings.HasPrefix(e.LocalID, ref) {
			byPrefix = append(byPrefix, e.LocalID)
		}
	}
	return pickOne("link", ref, byPrefix, nil)
}

func pickOne(what, ref string, byPrefix, byLabel []string) (string, error) {
	switch {
	case len(byLabel) == 1:
		return byLabel[0], nil
	case len(byPrefix) == 1:
		return byPrefix[0], nil
	case len(byLabel) > 1 || len(byPrefix) > 1:
		return "", usageErrorf("%s %q is ambiguous", what, ref)
	}
	return "", usageErrorf("no %s matches %q", what, ref)
}

// shortID truncates an id for display
func shortID(s string) string {
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}
