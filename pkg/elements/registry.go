package elements

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/pretty"

	"github.com/go-go-golems/chatbox/pkg/surface"
)

// Payload is what a render function receives.
type Payload struct {
	Kind    Kind
	Content string
	Data    []byte
	Options map[string]any
}

// RenderFunc draws a payload into w. w is either the placeholder itself or the
// placeholder wrapped in a status frame.
type RenderFunc func(w surface.Writer, p Payload) error

var builtins = map[Kind]RenderFunc{
	KindMarkdown: writeBlock,
	KindText:     writeBlock,
	KindImage:    writeMedia,
	KindAudio:    writeMedia,
	KindVideo:    writeMedia,
	KindJSON:     writeJSON,
}

var (
	registryMu sync.RWMutex
	registry   = map[Kind]RenderFunc{}
)

// Register installs a render function for a custom output kind. Later
// registrations replace earlier ones. Built-in kinds are always resolved
// first, so registering one of their names has no effect on rendering.
func Register(kind Kind, fn RenderFunc) {
	if strings.TrimSpace(string(kind)) == "" || fn == nil {
		return
	}
	if _, ok := builtins[kind]; ok {
		log.Warn().Str("kind", string(kind)).Msg("output kind is built in; registration will be shadowed")
	}
	registryMu.Lock()
	registry[kind] = fn
	registryMu.Unlock()
}

// Resolve returns the render function for kind.
func Resolve(kind Kind) (RenderFunc, error) {
	if fn, ok := builtins[kind]; ok {
		return fn, nil
	}
	registryMu.RLock()
	fn, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedOutputKind, "kind %q", kind)
	}
	return fn, nil
}

// Lookup is Resolve without the error: ok is false for unknown kinds.
func Lookup(kind Kind) (RenderFunc, bool) {
	fn, err := Resolve(kind)
	return fn, err == nil
}

// Kinds lists built-in and registered kinds, sorted.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	seen := map[Kind]bool{}
	for k := range builtins {
		seen[k] = true
	}
	for k := range registry {
		seen[k] = true
	}
	ret := make([]Kind, 0, len(seen))
	for k := range seen {
		ret = append(ret, k)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func writeBlock(w surface.Writer, p Payload) error {
	return w.Write(surface.Block{
		Kind:    string(p.Kind),
		Text:    p.Content,
		Data:    p.Data,
		Options: p.Options,
	})
}

func writeMedia(w surface.Writer, p Payload) error {
	if p.Content == "" && len(p.Data) == 0 {
		return errors.Errorf("%s element has neither a source nor data", p.Kind)
	}
	return writeBlock(w, p)
}

func writeJSON(w surface.Writer, p Payload) error {
	if !json.Valid([]byte(p.Content)) {
		return errors.Errorf("json element content is not valid JSON")
	}
	return w.Write(surface.Block{
		Kind:    string(p.Kind),
		Text:    string(pretty.Pretty([]byte(p.Content))),
		Options: p.Options,
	})
}
