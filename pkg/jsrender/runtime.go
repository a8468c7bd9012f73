// Package jsrender lets scripts define custom output kinds.
//
// A script calls registerOutput(kind, fn). fn(content, options) returns either
// a string, drawn as markdown, or an object { kind, content, options } naming
// the block kind, text and options to draw. Every registered kind is installed
// in the element registry, so elements of that kind render like built-ins.
package jsrender

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbox/pkg/elements"
	"github.com/go-go-golems/chatbox/pkg/surface"
)

type Runtime struct {
	mu sync.Mutex

	vm      *goja.Runtime
	outputs map[string]goja.Callable
}

func NewRuntime() *Runtime {
	r := &Runtime{
		vm:      goja.New(),
		outputs: map[string]goja.Callable{},
	}
	r.installHostAPIs()
	return r
}

func (r *Runtime) installHostAPIs() {
	if err := r.vm.Set("registerOutput", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(r.vm.NewTypeError("registerOutput(kind, fn) requires 2 arguments"))
		}
		kind := strings.TrimSpace(call.Arguments[0].String())
		if kind == "" {
			panic(r.vm.NewTypeError("registerOutput: kind must be non-empty"))
		}
		fn, ok := goja.AssertFunction(call.Arguments[1])
		if !ok {
			panic(r.vm.NewTypeError("registerOutput: second argument must be a function"))
		}
		r.outputs[kind] = fn
		elements.Register(elements.Kind(kind), r.renderFunc(kind))
		log.Debug().Str("kind", kind).Msg("js output kind registered")
		return goja.Undefined()
	}); err != nil {
		panic(err)
	}

	if err := r.vm.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			parts = append(parts, a.String())
		}
		log.Info().Str("component", "jsrender").Msg(strings.Join(parts, " "))
		return goja.Undefined()
	}); err != nil {
		panic(err)
	}
}

func (r *Runtime) LoadScriptFile(path string) error {
	if r == nil {
		return errors.New("js render runtime: nil runtime")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("js render runtime: empty script path")
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "js render runtime: read script %q", path)
	}
	return r.LoadScriptSource(path, string(blob))
}

func (r *Runtime) LoadScriptSource(name string, source string) error {
	if r == nil || r.vm == nil {
		return errors.New("js render runtime: runtime not initialized")
	}
	if strings.TrimSpace(name) == "" {
		name = "outputs.js"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.vm.RunScript(name, source); err != nil {
		return errors.Wrapf(err, "js render runtime: run script %q", name)
	}
	return nil
}

// Kinds returns the kinds registered by scripts, sorted.
func (r *Runtime) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]string, 0, len(r.outputs))
	for k := range r.outputs {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func (r *Runtime) renderFunc(kind string) elements.RenderFunc {
	return func(w surface.Writer, p elements.Payload) error {
		b, err := r.call(kind, p)
		if err != nil {
			return err
		}
		return w.Write(b)
	}
}

func (r *Runtime) call(kind string, p elements.Payload) (surface.Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.outputs[kind]
	if !ok {
		return surface.Block{}, errors.Wrapf(elements.ErrUnsupportedOutputKind, "js kind %q", kind)
	}
	options := map[string]any{}
	for k, v := range p.Options {
		options[k] = v
	}
	ret, err := fn(goja.Undefined(), r.vm.ToValue(p.Content), r.vm.ToValue(options))
	if err != nil {
		return surface.Block{}, errors.Wrapf(err, "js output %q threw", kind)
	}
	return decodeReturn(kind, ret.Export())
}

func decodeReturn(kind string, raw any) (surface.Block, error) {
	switch v := raw.(type) {
	case string:
		return surface.Block{Kind: string(elements.KindMarkdown), Text: v}, nil
	case map[string]any:
		b := surface.Block{Kind: string(elements.KindMarkdown)}
		if k, ok := v["kind"].(string); ok && k != "" {
			b.Kind = k
		}
		if c, ok := v["content"]; ok && c != nil {
			if s, ok := c.(string); ok {
				b.Text = s
			} else {
				b.Text = fmt.Sprint(c)
			}
		}
		if opts, ok := v["options"].(map[string]any); ok {
			b.Options = opts
		}
		return b, nil
	default:
		return surface.Block{}, errors.Errorf("js output %q returned %T, want a string or an object", kind, raw)
	}
}
