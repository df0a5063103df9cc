package shaderlib

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed glsl/chunks.glsl
var builtinChunks string

const chunkMarker = "// @chunk "

// maxIncludeDepth bounds nested #include expansion so a chunk that includes
// itself fails instead of recursing forever.
const maxIncludeDepth = 16

var (
	ErrUnknownChunk  = errors.New("shaderlib: unknown chunk")
	ErrUnknownShader = errors.New("shaderlib: unknown shader")
	ErrIncludeDepth  = errors.New("shaderlib: include depth exceeded")
)

// Shader is a built-in shader before include expansion.
type Shader struct {
	ID       string
	Vertex   string
	Fragment string
}

// Library resolves shader ids and chunk names to GLSL text. Chunks can be
// overridden at runtime; every change bumps the revision so compiled programs
// keyed on it are rebuilt.
type Library struct {
	mu       sync.RWMutex
	chunks   map[string]string
	shaders  map[string]Shader
	revision uint64
}

// New returns a library holding the embedded chunks and built-in shaders.
func New() *Library {
	l := &Library{
		chunks:  ParseChunks(builtinChunks),
		shaders: make(map[string]Shader, len(builtinShaders)),
	}
	for _, s := range builtinShaders {
		l.shaders[s.ID] = s
	}
	return l
}

// ParseChunks splits a file of "// @chunk name" sections into a map.
func ParseChunks(src string) map[string]string {
	out := make(map[string]string)
	var name string
	var body strings.Builder
	flush := func() {
		if name != "" {
			out[name] = strings.TrimRight(body.String(), "\n") + "\n"
		}
		body.Reset()
	}
	for _, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(line, chunkMarker) {
			flush()
			name = strings.TrimSpace(strings.TrimPrefix(line, chunkMarker))
			continue
		}
		if name != "" {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return out
}

func (l *Library) Revision() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.revision
}

func (l *Library) Chunk(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src, ok := l.chunks[name]
	return src, ok
}

// ChunkNames returns the sorted chunk names.
func (l *Library) ChunkNames() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.chunks))
	for n := range l.chunks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetChunk replaces or adds a chunk. Identical source is a no-op and does not
// bump the revision.
func (l *Library) SetChunk(name, src string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.chunks[name]; ok && cur == src {
		return false
	}
	l.chunks[name] = src
	l.revision++
	return true
}

func (l *Library) Shader(id string) (Shader, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.shaders[id]
	if !ok {
		return Shader{}, fmt.Errorf("%w: %q", ErrUnknownShader, id)
	}
	return s, nil
}

// Expand replaces every "#include <name>" line with the named chunk,
// recursively.
func (l *Library) Expand(src string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.expand(src, 0)
}

func (l *Library) expand(src string, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", ErrIncludeDepth
	}
	if !strings.Contains(src, "#include") {
		return src, nil
	}
	var out strings.Builder
	out.Grow(len(src))
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		name, ok := includeTarget(line)
		if !ok {
			out.WriteString(line)
			if i < len(lines)-1 {
				out.WriteByte('\n')
			}
			continue
		}
		chunk, found := l.chunks[name]
		if !found {
			return "", fmt.Errorf("%w: %q", ErrUnknownChunk, name)
		}
		expanded, err := l.expand(chunk, depth+1)
		if err != nil {
			return "", fmt.Errorf("include %s: %w", name, err)
		}
		out.WriteString(expanded)
		if !strings.HasSuffix(expanded, "\n") && i < len(lines)-1 {
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}

func includeTarget(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "#include") {
		return "", false
	}
	t = strings.TrimSpace(strings.TrimPrefix(t, "#include"))
	if len(t) < 3 || t[0] != '<' || t[len(t)-1] != '>' {
		return "", false
	}
	return t[1 : len(t)-1], true
}

// NumberLines prefixes each line with its 1-based number, for compile logs.
func NumberLines(src string) string {
	lines := strings.Split(src, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d: %s\n", i+1, line)
	}
	return b.String()
}
