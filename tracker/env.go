package tracker

import "sync"

// Environment abstracts the host capabilities the tracker reads: persisted
// client storage, the current page context, and lifecycle signals. Browser
// hosts bridge their globals into this interface; headless hosts (tests,
// kiosk terminals) use StaticEnvironment.
type Environment interface {
	StoredValue(key string) (string, bool)
	SetStoredValue(key, value string)
	CurrentURL() string
	PageTitle() string
	Referrer() string
	ScreenResolution() string

	// OnUnload and OnHidden register lifecycle callbacks. Hidden may fire
	// any number of times for one session.
	OnUnload(fn func())
	OnHidden(fn func())
}

// ValueStore persists string values across tracker instances. The tracker
// uses a single key for the user id.
type ValueStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// StaticEnvironment is an Environment backed by plain fields. Page context is
// mutable via SetPage so hosts can reflect navigation; lifecycle signals are
// raised with TriggerUnload and TriggerHidden.
type StaticEnvironment struct {
	URL    string
	Title  string
	Ref    string
	Screen string

	// Store holds persisted values. Defaults to an in-memory map, which
	// survives across tracker instances but not across processes.
	Store ValueStore

	mu       sync.Mutex
	unload   []func()
	hidden   []func()
	memStore map[string]string
}

func (e *StaticEnvironment) StoredValue(key string) (string, bool) {
	if e.Store != nil {
		return e.Store.Get(key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.memStore[key]
	return v, ok
}

func (e *StaticEnvironment) SetStoredValue(key, value string) {
	if e.Store != nil {
		e.Store.Set(key, value)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.memStore == nil {
		e.memStore = make(map[string]string)
	}
	e.memStore[key] = value
}

func (e *StaticEnvironment) CurrentURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.URL
}

func (e *StaticEnvironment) PageTitle() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Title
}

func (e *StaticEnvironment) Referrer() string { return e.Ref }

func (e *StaticEnvironment) ScreenResolution() string { return e.Screen }

// SetPage updates the page context observed by subsequent events.
func (e *StaticEnvironment) SetPage(url, title string) {
	e.mu.Lock()
	e.URL = url
	e.Title = title
	e.mu.Unlock()
}

func (e *StaticEnvironment) OnUnload(fn func()) {
	e.mu.Lock()
	e.unload = append(e.unload, fn)
	e.mu.Unlock()
}

func (e *StaticEnvironment) OnHidden(fn func()) {
	e.mu.Lock()
	e.hidden = append(e.hidden, fn)
	e.mu.Unlock()
}

// TriggerUnload invokes all registered unload callbacks.
func (e *StaticEnvironment) TriggerUnload() {
	e.mu.Lock()
	fns := append([]func(){}, e.unload...)
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// TriggerHidden invokes all registered hidden callbacks.
func (e *StaticEnvironment) TriggerHidden() {
	e.mu.Lock()
	fns := append([]func(){}, e.hidden...)
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
