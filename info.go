package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jshufro/componentgen/codegen"
	"github.com/jshufro/componentgen/manifest"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

func row(label, value string) string {
	if value == "" {
		value = "-"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

// renderInfo describes a validated component.
func renderInfo(c manifest.Component, g codegen.ComponentCodeGenerator) string {
	meta := c.Meta()
	rows := []string{
		titleStyle.Render(meta.Label),
		row("type", string(meta.Type)),
		row("package", codegen.PackageName(meta.Label)),
		row("description", meta.Description),
		row("tags", strings.Join(meta.Tags, ", ")),
	}
	if name, ok := g.RequiredInterfaceFile(); ok {
		rows = append(rows, row("interface", name))
	}
	rows = append(rows, row("interfaces", strings.Join(g.InterfaceFiles(), ", ")))
	if kind, ok := g.DestinationKind(); ok {
		rows = append(rows, row("oracle", string(kind)))
	}
	logic := "no"
	if tmpl, err := g.GenerateLogicTemplate(); err == nil && tmpl != nil {
		logic = "yes (" + codegen.LogicFile + ")"
	}
	rows = append(rows, row("user logic", logic))
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
