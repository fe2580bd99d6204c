package ferry

import (
	"github.com/ferry-web/ferry/config"
)

// Constructor builds a fresh instance of a named component.
type Constructor func() any

// Session is the capability the worker probes on the "session" component
// at detach. An active session is destroyed and closed there, so session
// state never survives into the next request sharing the process.
type Session interface {
	Active() bool
	Destroy() error
	Close() error
}

// App is the named component registry a worker carries across requests.
// Components whose names appear on the configured request-scoped list are
// rebuilt from their constructors at every attach; all others keep their
// instance for the worker's whole lifetime. The partition is fixed by the
// config at construction and never consulted again.
type App struct {
	order        []string
	constructors map[string]Constructor
	components   map[string]any
	scoped       map[string]bool
}

func NewApp(cfg *config.Config) *App {
	scoped := make(map[string]bool, len(cfg.Worker.RequestScoped))
	for _, name := range cfg.Worker.RequestScoped {
		scoped[name] = true
	}

	return &App{
		constructors: make(map[string]Constructor),
		components:   make(map[string]any),
		scoped:       scoped,
	}
}

// Register installs a constructor under the name and builds the initial
// instance right away. Registering a taken name replaces both.
func (a *App) Register(name string, constructor Constructor) *App {
	if _, known := a.constructors[name]; !known {
		a.order = append(a.order, name)
	}

	a.constructors[name] = constructor
	a.components[name] = constructor()

	return a
}

// Component returns the current instance of the named component, nil if
// the name was never registered.
func (a *App) Component(name string) any {
	return a.components[name]
}

// Has tells whether a component is registered under the name.
func (a *App) Has(name string) bool {
	_, found := a.constructors[name]
	return found
}

// rebuildScoped re-constructs every request-scoped component, following
// the registration order. Persistent components are left untouched.
func (a *App) rebuildScoped() {
	for _, name := range a.order {
		if a.scoped[name] {
			a.components[name] = a.constructors[name]()
		}
	}
}

// session returns the session component if one is registered and exposes
// the session capability.
func (a *App) session() (Session, bool) {
	sess, ok := a.components["session"].(Session)
	return sess, ok
}
