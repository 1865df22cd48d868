// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Action identifies what a console command does. Front ends switch on it.
type Action string

const (
	ActionHelp    Action = "help"
	ActionClear   Action = "clear"
	ActionSave    Action = "save"
	ActionMetrics Action = "metrics"
	ActionStats   Action = "stats"
	ActionExport  Action = "export"
	ActionQuit    Action = "quit"
)

// ComebackKeyword returns the console to the starting page, like /clear.
const ComebackKeyword = "comeback"

// Command represents a console command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/export <path>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	Action Action

	// Hidden commands don't appear in help
	Hidden bool

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values for enum types
	Values []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeFile                  // File path
	ArgTypeEnum                  // One of predefined values
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias (case-insensitive).
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Names returns the visible command names, sorted.
func (r *Registry) Names() []string {
	var names []string
	for _, cmd := range r.All() {
		if !cmd.Hidden {
			names = append(names, cmd.Name)
		}
	}
	return names
}

// ByCategory returns visible commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "Other"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// HelpText renders the command list grouped by category.
func (r *Registry) HelpText() string {
	groups := r.ByCategory()
	categories := make([]string, 0, len(groups))
	for c := range groups {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var sb strings.Builder
	for i, c := range categories {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c + ":\n")
		for _, cmd := range groups[c] {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&sb, "  %-16s %s\n", usage, cmd.Description)
		}
	}
	fmt.Fprintf(&sb, "\nType '%s' to return to the starting page.", ComebackKeyword)
	return sb.String()
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Action:      ActionHelp,
		Category:    "Navigation",
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Leave the Nexus",
		Action:      ActionQuit,
		Category:    "Navigation",
	})

	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/new"},
		Description: "Return to the starting page",
		Action:      ActionClear,
		Category:    "Session",
	})

	r.Register(&Command{
		Name:        "/save",
		Aliases:     []string{"/s"},
		Description: "Save the transcript now",
		Action:      ActionSave,
		Category:    "Session",
	})

	r.Register(&Command{
		Name:        "/export",
		Aliases:     []string{"/e"},
		Description: "Export the transcript (.md, .json, .yaml)",
		Usage:       "/export <path>",
		Args: []ArgDef{
			{Name: "path", Required: true, Type: ArgTypeFile, Description: "output file; the extension picks the format"},
		},
		Action:   ActionExport,
		Category: "Session",
	})

	r.Register(&Command{
		Name:        "/metrics",
		Aliases:     []string{"/m"},
		Description: "Toggle the reply metrics panel",
		Usage:       "/metrics [on|off]",
		Args: []ArgDef{
			{Name: "state", Type: ArgTypeEnum, Values: []string{"on", "off"}, Description: "on or off"},
		},
		Action:   ActionMetrics,
		Category: "Diagnostics",
	})

	r.Register(&Command{
		Name:        "/stats",
		Description: "Show exchange statistics for this session",
		Action:      ActionStats,
		Category:    "Diagnostics",
	})
}
