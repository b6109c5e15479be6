// Package inspect implements a read-only terminal browser over one ATOB
// object file: its sections, symbols, and relocations. It never re-encodes or re-links anything it displays.
package inspect

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/atlas8/toolchain/object"
)

// Inspector is the TUI application state: one loaded object file and the
// panel layout browsing it.
type Inspector struct {
	Object *object.File

	App           *tview.Application
	Pages         *tview.Pages
	MainLayout    *tview.Flex
	SectionsView  *tview.List
	SymbolsView   *tview.List
	RelocationsView *tview.TextView
	DetailView    *tview.TextView
}

// New creates an Inspector over obj.
func New(obj *object.File) *Inspector {
	return &Inspector{
		Object: obj,
		App:    tview.NewApplication(),
		Pages:  tview.NewPages(),
	}
}

func (i *Inspector) initializeViews() {
	i.SectionsView = tview.NewList().ShowSecondaryText(false)
	i.SectionsView.SetBorder(true).SetTitle(" Sections ")
	for _, sec := range i.Object.Sections {
		name, length := sec.Name, len(sec.Data)
		i.SectionsView.AddItem(fmt.Sprintf("%-12s %5d bytes", name, length), "", 0, nil)
	}

	i.SymbolsView = tview.NewList().ShowSecondaryText(false)
	i.SymbolsView.SetBorder(true).SetTitle(" Symbols ")
	for _, sym := range i.Object.Symbols {
		i.SymbolsView.AddItem(symbolLine(sym), "", 0, nil)
	}

	i.RelocationsView = tview.NewTextView().SetDynamicColors(true)
	i.RelocationsView.SetBorder(true).SetTitle(" Relocations ")
	for _, rel := range i.Object.Relocations {
		fmt.Fprintf(i.RelocationsView, "%s+0x%04X -> %s (addend %d)\n", rel.Section, rel.Offset, rel.Symbol, rel.Addend)
	}

	i.DetailView = tview.NewTextView().SetDynamicColors(true)
	i.DetailView.SetBorder(true).SetTitle(" Detail ")

	i.SymbolsView.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		if index < 0 || index >= len(i.Object.Symbols) {
			return
		}
		i.showSymbolDetail(i.Object.Symbols[index])
	})

	leftPanel := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(i.SectionsView, 0, 1, true).
		AddItem(i.SymbolsView, 0, 1, false)

	rightPanel := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(i.RelocationsView, 0, 1, false).
		AddItem(i.DetailView, 0, 1, false)

	i.MainLayout = tview.NewFlex().
		AddItem(leftPanel, 0, 1, true).
		AddItem(rightPanel, 0, 2, false)

	i.Pages.AddPage("main", i.MainLayout, true, true)
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

func (i *Inspector) showSymbolDetail(sym object.Symbol) {
	i.DetailView.Clear()
	fmt.Fprintf(i.DetailView, "name:    %s\n", sym.Name)
	fmt.Fprintf(i.DetailView, "value:   0x%04X\n", sym.Value)
	if sym.HasSection {
		fmt.Fprintf(i.DetailView, "section: %s\n", sym.Section)
	} else {
		fmt.Fprintf(i.DetailView, "section: (undefined import)\n")
	}
	refs := 0
	for _, rel := range i.Object.Relocations {
		if rel.Symbol == sym.Name {
			refs++
		}
	}
	fmt.Fprintf(i.DetailView, "references: %d\n", refs)
}

// Run starts the TUI event loop. It blocks until the user quits ('q' or
// Ctrl-C).
func (i *Inspector) Run() error {
	i.initializeViews()
	i.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' {
			i.App.Stop()
			return nil
		}
		return event
	})
	return i.App.SetRoot(i.Pages, true).SetFocus(i.SectionsView).Run()
}
