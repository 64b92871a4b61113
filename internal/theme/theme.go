// Package theme holds the light/dark palette shared by every screen.
package theme

import (
	"sort"
	"sync"
)

// Mode is light or dark.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// Palette is the set of named colors a screen may use. Values are hex
// colors except Shadow, which is an rgba() string.
type Palette struct {
	Accent          string
	Background      string
	Card            string
	Border          string
	Text            string
	TextSecondary   string
	InputBackground string
	InputBorder     string
	Button          string
	ButtonText      string
	Shadow          string
	Error           string
	Success         string
}

// Theme is a mode with its palette.
type Theme struct {
	Mode    Mode
	Palette Palette
}

var lightPalette = Palette{
	Accent:          "#2563eb",
	Background:      "#f6f8fa",
	Card:            "#ffffff",
	Border:          "#e5e7eb",
	Text:            "#222222",
	TextSecondary:   "#6b7280",
	InputBackground: "#f9fafb",
	InputBorder:     "#e5e7eb",
	Button:          "#2563eb",
	ButtonText:      "#ffffff",
	Shadow:          "rgba(0,0,0,0.08)",
	Error:           "#ef4444",
	Success:         "#22c55e",
}

var darkPalette = Palette{
	Accent:          "#60a5fa",
	Background:      "#181a20",
	Card:            "#23262f",
	Border:          "#23262f",
	Text:            "#f3f4f6",
	TextSecondary:   "#a1a1aa",
	InputBackground: "#23262f",
	InputBorder:     "#23262f",
	Button:          "#2563eb",
	ButtonText:      "#ffffff",
	Shadow:          "rgba(0,0,0,0.32)",
	Error:           "#f87171",
	Success:         "#4ade80",
}

// For returns the theme for the dark flag.
func For(dark bool) Theme {
	if dark {
		return Theme{Mode: Dark, Palette: darkPalette}
	}
	return Theme{Mode: Light, Palette: lightPalette}
}

// Appearance reports the environment's preference and its changes.
type Appearance interface {
	IsDark() bool
	// OnChange registers fn for appearance changes and returns its release.
	OnChange(fn func(dark bool)) func()
}

// Provider derives the theme from an Appearance plus user toggles.
// The appearance listener lives from the first subscriber to the last
// unsubscribe.
type Provider struct {
	appearance Appearance

	mu       sync.Mutex
	dark     bool
	subs     map[int]func(Theme)
	nextID   int
	listener func()
}

// NewProvider seeds the dark flag from appearance.
func NewProvider(appearance Appearance) *Provider {
	return &Provider{
		appearance: appearance,
		dark:       appearance.IsDark(),
		subs:       make(map[int]func(Theme)),
	}
}

// Theme returns the current theme.
func (p *Provider) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return For(p.dark)
}

// IsDark reports the current flag.
func (p *Provider) IsDark() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dark
}

// Toggle flips between light and dark.
func (p *Provider) Toggle() {
	p.mu.Lock()
	dark := !p.dark
	p.mu.Unlock()
	p.SetDark(dark)
}

// SetDark sets the flag and notifies subscribers when it changes.
func (p *Provider) SetDark(dark bool) {
	p.mu.Lock()
	if p.dark == dark {
		p.mu.Unlock()
		return
	}
	p.dark = dark
	subs := p.snapshotLocked()
	p.mu.Unlock()

	t := For(dark)
	for _, fn := range subs {
		fn(t)
	}
}

// Subscribe registers fn for theme changes.
func (p *Provider) Subscribe(fn func(Theme)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	first := len(p.subs) == 1
	p.mu.Unlock()

	if first {
		release := p.appearance.OnChange(p.SetDark)
		p.mu.Lock()
		p.listener = release
		p.mu.Unlock()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			var release func()
			if len(p.subs) == 0 {
				release = p.listener
				p.listener = nil
			}
			p.mu.Unlock()
			if release != nil {
				release()
			}
		})
	}
}

func (p *Provider) snapshotLocked() []func(Theme) {
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Theme), len(ids))
	for i, id := range ids {
		out[i] = p.subs[id]
	}
	return out
}
