package command

import (
	"fmt"
	"sort"
)

// Registry manages the collection of available commands.
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// Get returns a command by name.
func (r *Registry) Get(name string) (Command, error) {
	if cmd, exists := r.commands[name]; exists {
		return cmd, nil
	}
	return nil, fmt.Errorf("command not found: %s", name)
}

// List returns all registered command names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
