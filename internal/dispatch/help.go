package dispatch

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/registry"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	cmdStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true)
)

type listItem struct {
	name     string
	synopsis string
}

// renderList writes items as an aligned two-column list.
func renderList(w io.Writer, indent string, items []listItem) {
	width := 0
	for _, it := range items {
		if len(it.name) > width {
			width = len(it.name)
		}
	}
	for _, it := range items {
		pad := strings.Repeat(" ", width-len(it.name))
		line := indent + cmdStyle.Render(it.name)
		if it.synopsis != "" {
			line += pad + "  " + subtitleStyle.Render(it.synopsis)
		}
		fmt.Fprintln(w, line)
	}
}

// writeHelp renders the generic help: every top-level name and, for
// directory modules without a default script, their subcommands.
func (d *Dispatcher) writeHelp(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render(d.Mode.CLIName()+" - "+branding.DisplayName()))
	if desc := branding.Description(); desc != "" {
		fmt.Fprintln(w, subtitleStyle.Render(desc))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Usage: %s <command> [args...]\n\n", d.Mode.CLIName())

	names := d.Registry.Names()
	if len(names) == 0 {
		fmt.Fprintln(w, hintStyle.Render("No commands available."))
		return
	}

	fmt.Fprintln(w, sectionStyle.Render("Commands:"))
	for _, name := range names {
		desc := d.Registry.Entries[name]
		renderList(w, "  ", []listItem{{name: name, synopsis: desc.Synopsis}})
		if desc.Kind == registry.KindDirectoryDefault && desc.Target == "" {
			renderList(w, "    ", subcommandItems(desc))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, hintStyle.Render(fmt.Sprintf("Run '%s help <command>' for command help.", d.Mode.CLIName())))
}

// writeSubcommands renders the listing shown for a directory module
// invoked without a default script.
func (d *Dispatcher) writeSubcommands(w io.Writer, desc *registry.Descriptor) {
	fmt.Fprintf(w, "%s %s\n\n", titleStyle.Render(d.Mode.CLIName()+" "+desc.Name), subtitleStyle.Render("<subcommand> [args...]"))
	fmt.Fprintln(w, sectionStyle.Render("Subcommands:"))
	renderList(w, "  ", subcommandItems(desc))
}

// writeRoutes renders the sub-routes of a built-in command family.
func (d *Dispatcher) writeRoutes(w io.Writer, desc *registry.Descriptor, family []*registry.Routine) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(d.Mode.CLIName()+" "+desc.Name), subtitleStyle.Render("<subcommand> [args...]"))
	if desc.Synopsis != "" {
		fmt.Fprintln(w, subtitleStyle.Render(desc.Synopsis))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render("Subcommands:"))
	var items []listItem
	for _, r := range family {
		if r.Run == nil || len(r.Path) < 2 {
			continue
		}
		items = append(items, listItem{name: strings.Join(r.Path[1:], " "), synopsis: r.Synopsis})
	}
	renderList(w, "  ", items)
}

func subcommandItems(desc *registry.Descriptor) []listItem {
	var items []listItem
	for _, sub := range desc.SubcommandNames() {
		items = append(items, listItem{name: sub, synopsis: desc.Subcommands[sub].Synopsis})
	}
	return items
}
