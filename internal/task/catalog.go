package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"runqd/internal/config"
)

// ErrUnknownTask reports a configured task name with no implementation.
var ErrUnknownTask = errors.New("unknown task")

// Catalog resolves task names to implementations. Lookups ignore case.
type Catalog struct {
	tasks map[string]Task
}

// NewCatalog registers the built-in tasks and every command task declared in cfg.
func NewCatalog(cfg *config.Config, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{tasks: make(map[string]Task)}
	builtins := []Task{
		NewPing(logger),
		NewHeartbeat(cfg.Paths.StateDir, logger),
	}
	for _, t := range builtins {
		if err := c.Register(t); err != nil {
			return nil, err
		}
	}
	for _, entry := range cfg.Tasks.Command {
		cmd, err := NewCommand(entry, logger)
		if err != nil {
			return nil, err
		}
		if err := c.Register(cmd); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds t to the catalog. Names must be unique.
func (c *Catalog) Register(t Task) error {
	if t == nil {
		return errors.New("register task: nil task")
	}
	key := strings.ToLower(strings.TrimSpace(t.Name()))
	if key == "" {
		return errors.New("register task: empty name")
	}
	if _, exists := c.tasks[key]; exists {
		return fmt.Errorf("register task %q: name already registered", t.Name())
	}
	c.tasks[key] = t
	return nil
}

// Lookup returns the task registered under name.
func (c *Catalog) Lookup(name string) (Task, bool) {
	t, ok := c.tasks[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Resolve maps configured names to tasks, preserving order and duplicates.
func (c *Catalog) Resolve(names []string) ([]Task, error) {
	resolved := make([]Task, 0, len(names))
	for _, name := range names {
		t, ok := c.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownTask, name, strings.Join(c.Names(), ", "))
		}
		resolved = append(resolved, t)
	}
	return resolved, nil
}

// Names lists registered task names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.tasks))
	for _, t := range c.tasks {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}
