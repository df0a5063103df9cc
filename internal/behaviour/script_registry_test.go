package behaviour

import (
	"math"
	"testing"

	"Gopher3DCore/internal/scene"
)

func TestGetAvailableScriptsSorted(t *testing.T) {
	scripts := GetAvailableScripts()
	want := []string{"bounce", "orbit", "rotate"}
	if len(scripts) != len(want) {
		t.Fatalf("Expected %v, got %v", want, scripts)
	}
	for i := range want {
		if scripts[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, scripts)
		}
	}
}

func TestCreateScriptNotFound(t *testing.T) {
	if _, err := CreateScript("NonExistent", scene.NewNode("n")); err == nil {
		t.Error("Expected an error for an unknown script")
	}
}

func TestRegisterScript(t *testing.T) {
	RegisterScript("noop", func(*scene.Node) PlayerBehaviour { return &mockBehaviour{} })
	defer delete(scriptRegistry, "noop")

	b, err := CreateScript("noop", scene.NewNode("n"))
	if err != nil || b == nil {
		t.Fatalf("CreateScript failed: %v", err)
	}
}

func TestRotatorTurnsNode(t *testing.T) {
	n := scene.NewNode("spinner")
	b, err := CreateScript("rotate", n)
	if err != nil {
		t.Fatal(err)
	}
	m := NewBehaviourManager()
	m.Add(b)
	m.UpdateAll(2) // 90 degrees

	s := scene.New()
	s.Add(n)
	s.UpdateWorld()
	p := n.World().Mul4x1([4]float32{1, 0, 0, 1})
	if math.Abs(float64(p[2]+1)) > 1e-4 || math.Abs(float64(p[0])) > 1e-4 {
		t.Errorf("Expected +X to turn onto -Z, got %v", p)
	}
}

func TestOrbiterAndBouncerFollowStartPoint(t *testing.T) {
	n := scene.NewNode("mover")
	n.SetPosition(5, 3, -2)

	o := NewOrbiter(n, 2, 1)
	o.Start()
	o.Update(math.Pi / 2)
	if math.Abs(float64(n.X()-5)) > 1e-4 || math.Abs(float64(n.Z()-0)) > 1e-4 {
		t.Errorf("Expected orbit at (5, _, 0), got %v", n.Position)
	}

	bo := NewBouncer(n, 4, 1)
	bo.Start()
	bo.Update(math.Pi / 2)
	if math.Abs(float64(n.Y()-7)) > 1e-4 {
		t.Errorf("Expected bounce peak at 7, got %v", n.Y())
	}
}
