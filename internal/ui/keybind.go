package ui

import (
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeybindRegistry maps key sequences to commands.
// Sequences use spacemacs-style notation: "SPC g a" is space, g, a.
// Single keys: "d", "enter", "tab", "ctrl+c".
type KeybindRegistry struct {
	bindings     map[string]tea.Cmd
	descriptions map[string]string
	routes       map[string][]Route // nil/empty = applies on every route
}

// NewKeybindRegistry creates an empty registry.
func NewKeybindRegistry() *KeybindRegistry {
	return &KeybindRegistry{
		bindings:     make(map[string]tea.Cmd),
		descriptions: make(map[string]string),
		routes:       make(map[string][]Route),
	}
}

// Bind registers a key sequence to a command, replacing any earlier one.
func (r *KeybindRegistry) Bind(seq string, cmd tea.Cmd) {
	r.BindWithDesc(seq, cmd, "")
}

// BindWithDesc registers a key sequence with a help description.
func (r *KeybindRegistry) BindWithDesc(seq string, cmd tea.Cmd, desc string) {
	r.BindForRoutes(seq, cmd, desc, nil)
}

// BindForRoutes registers a sequence whose hint only shows on the given
// routes. An empty routes list means every route.
func (r *KeybindRegistry) BindForRoutes(seq string, cmd tea.Cmd, desc string, routes []Route) {
	n := normalizeSeq(seq)
	r.bindings[n] = cmd
	if desc != "" {
		r.descriptions[n] = desc
	}
	if len(routes) > 0 {
		r.routes[n] = routes
	}
}

// Lookup returns the command for a key sequence, or nil if not bound.
func (r *KeybindRegistry) Lookup(seq string) tea.Cmd {
	return r.bindings[normalizeSeq(seq)]
}

// HasPrefix reports whether a longer binding continues seq.
func (r *KeybindRegistry) HasPrefix(seq string) bool {
	prefix := normalizeSeq(seq) + " "
	for k := range r.bindings {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// submenuLabel names leader keys that open a further level.
var submenuLabel = map[string]string{
	"g": "Go to",
}

// LeaderHints returns the next keys available after currentSeq ("" means
// right after SPC) on route, mapped to their descriptions.
func (r *KeybindRegistry) LeaderHints(currentSeq string, route Route) map[string]string {
	out := make(map[string]string)
	prefix := "SPC "
	if currentSeq != "" {
		prefix = normalizeSeq(currentSeq) + " "
	}
	for seq, cmd := range r.bindings {
		if cmd == nil || !strings.HasPrefix(seq, prefix) || !r.appliesTo(seq, route) {
			continue
		}
		rest := strings.TrimPrefix(seq, prefix)
		next := rest
		if parts := strings.Fields(rest); len(parts) > 0 {
			next = parts[0]
		}
		switch {
		case r.HasPrefix(prefix + next):
			if label, ok := submenuLabel[next]; ok {
				out[next] = label
			} else {
				out[next] = next + "…"
			}
		case r.descriptions[seq] != "":
			out[next] = r.descriptions[seq]
		default:
			out[next] = seq
		}
	}
	return out
}

func (r *KeybindRegistry) appliesTo(seq string, route Route) bool {
	routes, ok := r.routes[seq]
	return !ok || len(routes) == 0 || slices.Contains(routes, route)
}

// normalizeSeq converts tea key strings to the canonical "SPC x" form.
func normalizeSeq(seq string) string {
	parts := strings.Fields(seq)
	for i, p := range parts {
		parts[i] = keyToSeqPart(p)
	}
	return strings.Join(parts, " ")
}

// KeyHandler tracks leader-key state and dispatches to the registry.
type KeyHandler struct {
	Registry      *KeybindRegistry
	LeaderKey     string   // tea.KeyMsg.String() of the leader, " " for space
	LeaderSeq     string   // "SPC"
	LeaderWaiting bool     // true after the leader, until a sequence resolves
	Buffer        []string // sequence typed so far in leader mode
}

// NewKeyHandler creates a handler with SPC as leader.
func NewKeyHandler(reg *KeybindRegistry) *KeyHandler {
	return &KeyHandler{
		Registry:  reg,
		LeaderKey: " ",
		LeaderSeq: "SPC",
	}
}

// Sequence returns the leader sequence typed so far, or "".
func (h *KeyHandler) Sequence() string {
	return strings.Join(h.Buffer, " ")
}

// Handle processes a KeyMsg. consumed means the key belongs to the keybind
// system and must not reach views; cmd is what to run, if anything.
func (h *KeyHandler) Handle(msg tea.KeyMsg) (consumed bool, cmd tea.Cmd) {
	s := msg.String()

	if s == "esc" {
		if h.LeaderWaiting {
			h.reset()
			return true, nil
		}
		return false, nil
	}

	if s == h.LeaderKey && !h.LeaderWaiting {
		h.LeaderWaiting = true
		h.Buffer = []string{h.LeaderSeq}
		return true, nil
	}

	if h.LeaderWaiting {
		h.Buffer = append(h.Buffer, keyToSeqPart(s))
		seq := h.Sequence()
		if c := h.Registry.Lookup(seq); c != nil {
			h.reset()
			return true, c
		}
		// stay in leader mode while a longer binding may still match
		if !h.Registry.HasPrefix(seq) {
			h.reset()
		}
		return true, nil
	}

	if c := h.Registry.Lookup(keyToSeqPart(s)); c != nil {
		return true, c
	}
	return false, nil
}

func (h *KeyHandler) reset() {
	h.LeaderWaiting = false
	h.Buffer = nil
}

func keyToSeqPart(s string) string {
	if s == " " || s == "space" {
		return "SPC"
	}
	return s
}

// KeyMap implements help.KeyMap over the leader hints for one route.
type KeyMap struct {
	registry   *KeybindRegistry
	keyHandler *KeyHandler
	route      Route
}

// NewKeyMap creates a KeyMap for the given registry, handler and route.
func NewKeyMap(registry *KeybindRegistry, keyHandler *KeyHandler, route Route) help.KeyMap {
	return &KeyMap{registry: registry, keyHandler: keyHandler, route: route}
}

// ShortHelp returns one binding per available next key, sorted, plus esc.
func (km *KeyMap) ShortHelp() []key.Binding {
	if km.registry == nil {
		return nil
	}
	currentSeq := ""
	if km.keyHandler != nil {
		currentSeq = km.keyHandler.Sequence()
	}
	hints := km.registry.LeaderHints(currentSeq, km.route)
	if len(hints) == 0 {
		return nil
	}

	keys := make([]string, 0, len(hints))
	for k := range hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bindings := make([]key.Binding, 0, len(keys)+1)
	for _, k := range keys {
		bindings = append(bindings, key.NewBinding(key.WithKeys(k), key.WithHelp(k, hints[k])))
	}
	return append(bindings, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")))
}

// FullHelp returns ShortHelp as a single column.
func (km *KeyMap) FullHelp() [][]key.Binding {
	short := km.ShortHelp()
	if len(short) == 0 {
		return nil
	}
	return [][]key.Binding{short}
}
