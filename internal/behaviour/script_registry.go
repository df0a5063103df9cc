package behaviour

import (
	"fmt"
	"sort"

	"Gopher3DCore/internal/scene"
)

// ScriptConstructor builds a behaviour bound to node.
type ScriptConstructor func(node *scene.Node) PlayerBehaviour

var scriptRegistry = map[string]ScriptConstructor{
	"rotate": func(n *scene.Node) PlayerBehaviour { return NewRotator(n, 45) },
	"orbit":  func(n *scene.Node) PlayerBehaviour { return NewOrbiter(n, 10, 1) },
	"bounce": func(n *scene.Node) PlayerBehaviour { return NewBouncer(n, 5, 2) },
}

func RegisterScript(name string, constructor ScriptConstructor) {
	scriptRegistry[name] = constructor
}

// GetAvailableScripts returns the registered names in sorted order.
func GetAvailableScripts() []string {
	names := make([]string, 0, len(scriptRegistry))
	for name := range scriptRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func CreateScript(name string, node *scene.Node) (PlayerBehaviour, error) {
	constructor, exists := scriptRegistry[name]
	if !exists {
		return nil, fmt.Errorf("unknown script %q", name)
	}
	return constructor(node), nil
}
