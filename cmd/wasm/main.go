//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/badgemaker/badgemaker/internal/config"
	"github.com/badgemaker/badgemaker/internal/document"
	"github.com/badgemaker/badgemaker/internal/engine"
	"github.com/badgemaker/badgemaker/internal/fonts"
	"github.com/badgemaker/badgemaker/internal/imagecache"
	"github.com/badgemaker/badgemaker/internal/persist"
	"github.com/badgemaker/badgemaker/internal/shape"
	"github.com/badgemaker/badgemaker/internal/store"
)

var (
	cfg   config.Config
	queue *persist.Queue
	st    *store.Store
	eng   *engine.Engine
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg = config.Default()
	images := imagecache.New("")
	shaper := engine.NewShaper(shape.NewRegistry(fonts.NewLibrary(""), images, cfg.Layout.Layout))
	mem := persist.NewMemory()
	queue = persist.NewQueue(mem, cfg.PersistTimeout)
	go queue.Run(context.Background())
	st = store.New(store.Options{
		Persister:   queue,
		Loader:      mem,
		Aligner:     shaper,
		Images:      images,
		NotifyDelay: cfg.NotifyDelay,
		CopyNudge:   cfg.Layout.CopyNudge,
		MoveStep:    cfg.Layout.MoveStep,
		FineStep:    cfg.Layout.FineStep,
	})
	images.OnLoad(func(string, imagecache.State) { st.Touch() })
	if err := st.Open(context.Background()); err != nil {
		slog.Error("open document", "error", err)
	}
	eng = engine.NewEngine(st, shaper, engine.Config{})

	api := js.Global().Get("Object").New()

	// --- Commands (page → editor) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("reloadDocument", js.FuncOf(reloadDocument))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("click", js.FuncOf(click))
	api.Set("keyDown", js.FuncOf(keyDown))
	api.Set("cancel", js.FuncOf(cancel))
	api.Set("armTool", js.FuncOf(armTool))
	api.Set("disarmTool", js.FuncOf(disarmTool))
	api.Set("setColor", js.FuncOf(setColor))
	api.Set("setZoom", js.FuncOf(setZoom))
	api.Set("wheel", js.FuncOf(wheel))
	api.Set("updateActiveObject", js.FuncOf(updateActiveObject))
	api.Set("align", js.FuncOf(align))
	api.Set("moveToFront", js.FuncOf(moveToFront))
	api.Set("moveToBack", js.FuncOf(moveToBack))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("restoreFromHistory", js.FuncOf(restoreFromHistory))
	api.Set("clear", js.FuncOf(clearObjects))

	// --- Queries (page ← editor) ---
	api.Set("drawCommands", js.FuncOf(drawCommands))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	api.Set("getState", js.FuncOf(getState))
	api.Set("getHistory", js.FuncOf(getHistory))
	api.Set("exportDocument", js.FuncOf(exportDocument))
	api.Set("subscribe", js.FuncOf(subscribe))

	js.Global().Set("badgemaker", api)
	js.Global().Set("badgemakerWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func result(err error) interface{} {
	if err != nil {
		return fail(err)
	}
	return ok()
}

func mods(args []js.Value, from int) engine.Modifiers {
	var m engine.Modifiers
	if len(args) > from {
		m.Shift = args[from].Truthy()
	}
	if len(args) > from+1 {
		m.Ctrl = args[from+1].Truthy()
	}
	return m
}

func toJSON(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode result", "error", err)
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}
	return result(st.Import([]byte(args[0].String())))
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	st.ReplaceObjects(document.NewSampleDocument(document.NewIDGenerator().Next()))
	return ok()
}

// reloadDocument waits for pending writes and reopens the document from
// storage, dropping history and selection. The optional callback receives
// the result once done; the wait runs off the event loop.
func reloadDocument(this js.Value, args []js.Value) interface{} {
	var done js.Value
	if len(args) > 0 && args[0].Type() == js.TypeFunction {
		done = args[0]
	}
	go func() {
		ctx := context.Background()
		err := queue.Sync(ctx)
		if err == nil {
			err = st.Open(ctx)
		}
		if err != nil {
			slog.Error("reload document", "error", err)
		}
		if done.Truthy() {
			done.Invoke(result(err))
		}
	}()
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerDown(args[0].Float(), args[1].Float(), mods(args, 2))
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerMove(args[0].Float(), args[1].Float())
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	return result(eng.PointerUp(args[0].Float(), args[1].Float()))
}

func click(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(0)
	}
	id, found := eng.Click(args[0].Float(), args[1].Float(), mods(args, 2))
	if !found {
		return js.ValueOf(0)
	}
	return js.ValueOf(float64(id))
}

func keyDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	handled, err := eng.KeyDown(args[0].String(), mods(args, 1))
	if err != nil {
		slog.Warn("key down", "error", err, "key", args[0].String())
	}
	return js.ValueOf(handled)
}

func cancel(this js.Value, args []js.Value) interface{} {
	eng.Cancel()
	return nil
}

func armTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing shape type"})
	}
	var seed document.Properties
	if len(args) > 1 && args[1].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[1].String()), &seed); err != nil {
			return fail(err)
		}
	}
	return result(eng.ArmTool(document.Type(args[0].String()), seed))
}

func disarmTool(this js.Value, args []js.Value) interface{} {
	eng.DisarmTool()
	return nil
}

func setColor(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	return result(eng.SetColor(args[0].String()))
}

func setZoom(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetZoom(args[0].Float())
	return js.ValueOf(eng.Zoom())
}

func wheel(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.Wheel(args[0].Float())
	return js.ValueOf(eng.Zoom())
}

func updateActiveObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing properties JSON"})
	}
	var patch document.Properties
	if err := json.Unmarshal([]byte(args[0].String()), &patch); err != nil {
		return fail(err)
	}
	return result(st.UpdateActiveObjectProps(patch))
}

func align(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing align mode"})
	}
	return result(st.AlignSelectedObjects(args[0].String()))
}

func activeID() (int64, bool) {
	snap := st.Snapshot()
	if snap.Active == nil {
		return 0, false
	}
	return snap.Active.ID, true
}

func moveToFront(this js.Value, args []js.Value) interface{} {
	id, found := activeID()
	if !found {
		return fail(store.ErrNoActiveObject)
	}
	return result(st.MoveToFront(id))
}

func moveToBack(this js.Value, args []js.Value) interface{} {
	id, found := activeID()
	if !found {
		return fail(store.ErrNoActiveObject)
	}
	return result(st.MoveToBack(id))
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(st.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(st.Redo())
}

func restoreFromHistory(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	return result(st.RestoreFromHistory(args[0].Int()))
}

func clearObjects(this js.Value, args []js.Value) interface{} {
	st.ClearObjects()
	return nil
}

// --- Query Handlers ---

func drawCommands(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.DrawCommands())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("none")
	}
	return js.ValueOf(eng.HitAt(args[0].Float(), args[1].Float()).Kind.String())
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.SelectionBounds())
}

func getState(this js.Value, args []js.Value) interface{} {
	return toJSON(st.Snapshot())
}

func getHistory(this js.Value, args []js.Value) interface{} {
	limit := cfg.HistoryDisplayLimit
	if len(args) > 0 {
		limit = args[0].Int()
	}
	return toJSON(st.HistoryWindow(limit))
}

func exportDocument(this js.Value, args []js.Value) interface{} {
	data, err := st.Export()
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

// subscribe registers a callback run with the store version after every
// batch of changes. It returns a function that unsubscribes.
func subscribe(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	fn := args[0]
	dispose := st.Subscribe(func(snap store.Snapshot) {
		fn.Invoke(js.ValueOf(float64(snap.Version)))
	})
	var release js.Func
	release = js.FuncOf(func(js.Value, []js.Value) interface{} {
		dispose()
		release.Release()
		return nil
	})
	return release
}
