// Package gui implements a desktop window over one ATOB object file, for
// environments where a terminal inspector is inconvenient. Like inspect.Inspector, it is read-only.
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/atlas8/toolchain/object"
)

// GUI is the fyne application state over one loaded object file.
type GUI struct {
	Object *object.File
	App    fyne.App
	Window fyne.Window

	SectionsView *widget.List
	SymbolsView  *widget.List
	DetailView   *widget.TextGrid
}

// New creates a GUI over obj.
func New(obj *object.File) *GUI {
	return &GUI{
		Object: obj,
		App:    app.New(),
	}
}

// Run builds the window and blocks showing it until the user closes it.
func (g *GUI) Run() {
	g.Window = g.App.NewWindow("Atlas-8 object inspector")

	g.DetailView = widget.NewTextGrid()

	g.SectionsView = widget.NewList(
		func() int { return len(g.Object.Sections) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			sec := g.Object.Sections[id]
			obj.(*widget.Label).SetText(fmt.Sprintf("%-12s %5d bytes", sec.Name, len(sec.Data)))
		},
	)

	g.SymbolsView = widget.NewList(
		func() int { return len(g.Object.Symbols) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(symbolLine(g.Object.Symbols[id]))
		},
	)
	g.SymbolsView.OnSelected = func(id widget.ListItemID) {
		g.showSymbolDetail(g.Object.Symbols[id])
	}

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(nil, func() {}),
	)

	split := container.NewHSplit(
		container.NewVSplit(g.SectionsView, g.SymbolsView),
		g.DetailView,
	)

	g.Window.SetContent(container.NewBorder(toolbar, nil, nil, nil, split))
	g.Window.Resize(fyne.NewSize(800, 500))
	g.Window.ShowAndRun()
}

func symbolLine(sym object.Symbol) string {
	binding := "local"
	if sym.Binding == object.BindingGlobal {
		binding = "global"
	}
	if !sym.HasSection {
		return fmt.Sprintf("%-20s (import, %s)", sym.Name, binding)
	}
	return fmt.Sprintf("%-20s %s+0x%04X (%s)", sym.Name, sym.Section, sym.Value, binding)
}

func (g *GUI) showSymbolDetail(sym object.Symbol) {
	refs := 0
	for _, rel := range g.Object.Relocations {
		if rel.Symbol == sym.Name {
			refs++
		}
	}
	section := sym.Section
	if !sym.HasSection {
		section = "(undefined import)"
	}
	text := fmt.Sprintf("name:    %s\nvalue:   0x%04X\nsection: %s\nreferences: %d\n",
		sym.Name, sym.Value, section, refs)
	g.DetailView.SetText(text)
}
