package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/badgemaker/badgemaker/internal/db"
	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/engine"
	"github.com/badgemaker/badgemaker/internal/render"
	"github.com/badgemaker/badgemaker/internal/store"
	"github.com/badgemaker/badgemaker/internal/typeid"
)

var errUsage = errors.New("bad arguments")

var directions = map[string]store.Direction{
	"up":    store.DirUp,
	"down":  store.DirDown,
	"left":  store.DirLeft,
	"right": store.DirRight,
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "sample":
		a.store.ReplaceObjects(document.NewSampleDocument(document.NewIDGenerator().Next()))
		return a.list(os.Stdout)
	case "list":
		return a.list(os.Stdout)
	case "add":
		if len(args) < 1 {
			return fmt.Errorf("%w: add needs a type", errUsage)
		}
		seed, err := parseProps(args[1:])
		if err != nil {
			return err
		}
		sh, err := a.store.AddShape(document.Type(args[0]), seed)
		if err != nil {
			return err
		}
		fmt.Println(sh.ID)
		return nil
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("%w: set needs an id and properties", errUsage)
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		patch, err := parseProps(args[1:])
		if err != nil {
			return err
		}
		return a.store.UpdateProps(id, patch)
	case "remove":
		return a.withID(args, a.store.RemoveObject)
	case "clear":
		a.store.ClearObjects()
		return nil
	case "front":
		return a.withID(args, a.store.MoveToFront)
	case "back":
		return a.withID(args, a.store.MoveToBack)
	case "move":
		return a.move(args)
	case "align":
		if len(args) < 2 {
			return fmt.Errorf("%w: align needs a mode and ids", errUsage)
		}
		if err := a.selectIDs(args[1:]); err != nil {
			return err
		}
		return a.store.AlignSelectedObjects(args[0])
	case "copy":
		if err := a.selectIDs(args); err != nil {
			return err
		}
		n, err := a.store.CopySelectedObjects()
		if err != nil {
			return err
		}
		fmt.Printf("copied %d shapes\n", n)
		return nil
	case "paste":
		text, err := a.clip.Read()
		if err != nil {
			return err
		}
		if _, err := a.store.LoadCopyBuffer(text); err != nil {
			return err
		}
		pasted, err := a.store.PasteCopiedObjects()
		if err != nil {
			return err
		}
		for _, sh := range pasted {
			fmt.Println(sh.ID)
		}
		return nil
	case "import":
		if len(args) != 1 {
			return fmt.Errorf("%w: import needs a file", errUsage)
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return a.store.Import(data)
	case "export":
		return a.export(args)
	case "render":
		if len(args) != 1 {
			return fmt.Errorf("%w: render needs an output file", errUsage)
		}
		return a.render(args[0])
	case "history":
		return a.history(os.Stdout)
	case "documents":
		if a.pool == nil {
			return fmt.Errorf("%w: documents needs the postgres backend", errUsage)
		}
		ids, err := db.Documents(ctx, a.pool)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (a *app) withID(args []string, fn func(int64) error) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected one shape id", errUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return fn(id)
}

func (a *app) move(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: move needs an id and a direction", errUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	dir, ok := directions[args[1]]
	if !ok {
		return fmt.Errorf("%w: unknown direction %q", errUsage, args[1])
	}
	if err := a.store.SetActiveObject(id, 0, 0); err != nil {
		return err
	}
	return a.store.MoveActiveObject(dir, len(args) > 2 && args[2] == "fine")
}

func (a *app) selectIDs(args []string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		if _, ok := a.store.Object(id); !ok {
			return fmt.Errorf("shape %d: %w", id, store.ErrNotFound)
		}
		ids = append(ids, id)
	}
	a.store.SelectObjects(ids)
	return nil
}

func (a *app) list(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tX\tY\tCOLOR")
	for _, sh := range a.store.Snapshot().Objects {
		fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%s\n", sh.ID, sh.Type,
			sh.Props.Float(document.KeyX), sh.Props.Float(document.KeyY), sh.Props.String(document.KeyColor))
	}
	return tw.Flush()
}

// history prints the latest entries, newest last, marking the current one.
func (a *app) history(w io.Writer) error {
	current := a.store.Snapshot().HistoryIndex
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tINDEX\tACTION\tSHAPES\tAT")
	for _, e := range a.store.HistoryWindow(a.cfg.HistoryDisplayLimit) {
		mark := ""
		if e.Index == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", mark, e.Index, e.Action, len(e.Objects), e.At.Format(time.TimeOnly))
	}
	return tw.Flush()
}

func (a *app) export(args []string) error {
	data, err := a.store.Export()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	slog.Info("export written", "export", typeid.NewExportID(), "file", args[0])
	return nil
}

func (a *app) render(path string) error {
	// Images decode in the background; draw only once they have settled.
	a.images.Wait()
	shapes := a.store.Snapshot().Objects
	reg := a.shaper.Registry()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w, h := a.cfg.CanvasWidth, a.cfg.CanvasHeight
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		surf := render.NewPNG(w, h, "white", a.fonts)
		defer surf.Close()
		engine.RenderDocument(reg, surf, shapes)
		err = surf.Encode(f)
	case ".pdf":
		surf := render.NewPDF(float64(w), float64(h), a.fonts)
		engine.RenderDocument(reg, surf, shapes)
		err = surf.Output(f)
	default:
		return fmt.Errorf("%w: render writes .png or .pdf, not %q", errUsage, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: shape id %q", errUsage, s)
	}
	return id, nil
}

// parseProps reads key=value pairs. Numbers and booleans are typed, anything
// else is kept as a string.
func parseProps(args []string) (document.Properties, error) {
	props := document.Properties{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: property %q is not key=value", errUsage, arg)
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			props[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			props[key] = b
		} else {
			props[key] = value
		}
	}
	return props, nil
}
