package scene

import (
	"errors"
	"image"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/md2anim/internal/engine/animation"
	"github.com/Faultbox/md2anim/internal/engine/pipeline"
	"github.com/Faultbox/md2anim/internal/engine/renderer"
	"github.com/Faultbox/md2anim/internal/engine/texture"
	"github.com/Faultbox/md2anim/pkg/formats"
)

// makeMD2 builds a one-quad model with n frames and an 8x4 skin.
func makeMD2(n int) *formats.MD2 {
	m := &formats.MD2{
		Header:    formats.MD2Header{SkinWidth: 8, SkinHeight: 4},
		Skins:     []string{"skin.png"},
		TexCoords: []formats.MD2TexCoord{{S: 0, T: 0}, {S: 8, T: 0}, {S: 8, T: 4}, {S: 0, T: 4}},
		Triangles: []formats.MD2Triangle{
			{VertexIDs: [3]int16{0, 1, 2}, TexCoordIDs: [3]int16{0, 1, 2}},
			{VertexIDs: [3]int16{0, 2, 3}, TexCoordIDs: [3]int16{0, 2, 3}},
		},
	}
	for i := 0; i < n; i++ {
		m.Frames = append(m.Frames, formats.MD2Frame{
			Scale: [3]float32{1, 1, 1},
			Name:  "frame" + string(rune('a'+i)),
			Vertices: []formats.MD2Vertex{
				{Position: [3]uint8{0, 0, 0}},
				{Position: [3]uint8{10, 0, 0}},
				{Position: [3]uint8{10, 0, 10}},
				{Position: [3]uint8{0, 0, 10}},
			},
		})
	}
	return m
}

func idleRun() *formats.ActionSet {
	return formats.NewActionSet("model.md2", "skin.png",
		formats.ActionInfo{Type: formats.ActionIdle, Loop: true, FrameOffset: 0, FrameCount: 2},
		formats.ActionInfo{Type: formats.ActionRun, Loop: true, FrameOffset: 2, FrameCount: 2},
	)
}

// writeModel writes model.md2, skin.png and knight.act into dir and returns
// the descriptor path.
func writeModel(t *testing.T, dir string, skinW, skinH int) string {
	t.Helper()
	data, err := formats.EncodeMD2(makeMD2(4))
	if err != nil {
		t.Fatalf("EncodeMD2: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model.md2"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Create(filepath.Join(dir, "skin.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, skinW, skinH))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	desc := filepath.Join(dir, "knight.act")
	if err := os.WriteFile(desc, []byte("model.md2\nskin.png\nIDLE 1 0 2\nRUN 1 2 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return desc
}

type draw struct {
	model mgl32.Mat4
	light mgl32.Vec3
	verts int
	tex   uint32
}

// fakeBackend records draws and hands out texture ids.
type fakeBackend struct {
	textures map[uint32]bool
	next     uint32
	draws    []draw
}

var _ renderer.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{textures: make(map[uint32]bool), next: 1}
}

func (b *fakeBackend) LoadTexture(path string, filter texture.Filter) (renderer.Texture, error) {
	img, err := texture.Load(path)
	if err != nil {
		return renderer.Texture{}, err
	}
	img = texture.Apply(img, filter)
	id := b.next
	b.next++
	b.textures[id] = true
	return renderer.Texture{ID: id, Width: img.Rect.Dx(), Height: img.Rect.Dy()}, nil
}

func (b *fakeBackend) UnloadTexture(id uint32) { delete(b.textures, id) }

func (b *fakeBackend) IsTexture(id uint32) bool { return b.textures[id] }

func (b *fakeBackend) Draw(model mgl32.Mat4, light mgl32.Vec3, f *pipeline.Frame) {
	b.draws = append(b.draws, draw{model, light, f.VertexCount(), f.Texture})
}

func TestNewModel_Validation(t *testing.T) {
	tests := []struct {
		name    string
		actions *formats.ActionSet
		want    error
	}{
		{"ok", idleRun(), nil},
		{"range past end", formats.NewActionSet("m", "",
			formats.ActionInfo{Type: formats.ActionIdle, Loop: true, FrameOffset: 3, FrameCount: 2}), ErrActionRange},
		{"exact fit", formats.NewActionSet("m", "",
			formats.ActionInfo{Type: formats.ActionIdle, Loop: true, FrameOffset: 2, FrameCount: 2}), nil},
		{"no idle", formats.NewActionSet("m", "",
			formats.ActionInfo{Type: formats.ActionRun, Loop: true, FrameOffset: 0, FrameCount: 1}), ErrMissingIdle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewModel("knight", makeMD2(4), tt.actions)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if err == nil && (m.Kind != KindMD2 || m.NumFrames() != 4) {
				t.Errorf("model = %+v", m)
			}
		})
	}
}

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	desc := writeModel(t, dir, 8, 4)
	b := newFakeBackend()

	m, err := LoadModel(desc, b, texture.Toon)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if m.Name != "knight" {
		t.Errorf("Name = %q, want knight", m.Name)
	}
	if !b.IsTexture(m.Skin.ID) {
		t.Fatalf("skin %d not loaded", m.Skin.ID)
	}
	if m.FrameName(1) != "frameb" || m.FrameName(9) != "" {
		t.Errorf("FrameName mismatch: %q %q", m.FrameName(1), m.FrameName(9))
	}

	id := m.Skin.ID
	m.Close()
	if b.IsTexture(id) {
		t.Error("skin still loaded after Close")
	}
}

func TestLoadModel_Errors(t *testing.T) {
	t.Run("skin size", func(t *testing.T) {
		b := newFakeBackend()
		desc := writeModel(t, t.TempDir(), 16, 16)
		if _, err := LoadModel(desc, b, nil); !errors.Is(err, ErrSkinSizeMismatch) {
			t.Fatalf("err = %v, want ErrSkinSizeMismatch", err)
		}
		if len(b.textures) != 0 {
			t.Error("mismatched skin was not unloaded")
		}
	})

	t.Run("missing model", func(t *testing.T) {
		dir := t.TempDir()
		desc := filepath.Join(dir, "x.act")
		os.WriteFile(desc, []byte("nope.md2\n\nIDLE 1 0 1\n"), 0o644)
		if _, err := LoadModel(desc, nil, nil); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("err = %v, want not exist", err)
		}
	})

	t.Run("missing descriptor", func(t *testing.T) {
		if _, err := LoadModel(filepath.Join(t.TempDir(), "none.act"), nil, nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("untextured", func(t *testing.T) {
		desc := writeModel(t, t.TempDir(), 8, 4)
		m, err := LoadModel(desc, nil, nil)
		if err != nil {
			t.Fatalf("LoadModel: %v", err)
		}
		if m.Skin.ID != 0 {
			t.Errorf("Skin.ID = %d, want 0", m.Skin.ID)
		}
		m.Close()
	})
}

func newTestInstance(t *testing.T, name string) *Instance {
	t.Helper()
	m, err := NewModel("knight", makeMD2(4), idleRun())
	if err != nil {
		t.Fatal(err)
	}
	inst, err := NewInstance(name, m, WithClockOptions(animation.WithRand(rand.New(rand.NewPCG(1, 2)))))
	if err != nil {
		t.Fatal(err)
	}
	return inst
}

func TestInstance_UpdateDraws(t *testing.T) {
	inst := newTestInstance(t, "knight0")
	inst.Orientation().Translate(0, 0, -250)
	b := newFakeBackend()
	rc := &RenderContext{
		Backend:  b,
		Settings: pipeline.DefaultSettings(),
		Light:    mgl32.Vec3{0, 100, 0},
	}

	if err := inst.Update(10, rc); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(b.draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(b.draws))
	}
	d := b.draws[0]
	if d.model != inst.Orientation().Matrix() {
		t.Error("draw did not use the instance matrix")
	}
	// Light in model space is offset by the translation.
	if d.light.Sub(mgl32.Vec3{0, 100, 250}).Len() > 1e-3 {
		t.Errorf("local light = %v", d.light)
	}
	if want := 2 * 3 * 16; d.verts != want {
		t.Errorf("vertices = %d, want %d (subdivided quad)", d.verts, want)
	}

	st := inst.State()
	if st.Name != "knight0" || st.Model != "knight" || st.Action != "IDLE" || st.Triangles != 2 {
		t.Errorf("State() = %+v", st)
	}
	if st.Position != [3]float32{0, 0, -250} {
		t.Errorf("Position = %v", st.Position)
	}
}

func TestInstance_SetAction(t *testing.T) {
	inst := newTestInstance(t, "knight0")

	if err := inst.SetAction(formats.ActionRun); err != nil {
		t.Fatalf("SetAction: %v", err)
	}
	if st := inst.State(); st.Action != "RUN" || st.Frame != 1 || st.Next != 3 || st.Current != 2 {
		t.Errorf("State() after RUN = %+v", st)
	}
	if err := inst.SetAction(formats.ActionDead); !errors.Is(err, animation.ErrUnknownAction) {
		t.Errorf("err = %v, want ErrUnknownAction", err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := newTestInstance(t, "a")
	b := newTestInstance(t, "b")
	c := newTestInstance(t, "c")

	for _, inst := range []*Instance{a, b, c} {
		if err := r.Add(inst); err != nil {
			t.Fatalf("Add(%s): %v", inst.Name(), err)
		}
	}
	if err := r.Add(newTestInstance(t, "b")); !errors.Is(err, ErrDuplicateInstance) {
		t.Errorf("duplicate Add err = %v", err)
	}

	if err := r.Remove("b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Remove("b"); !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("second Remove err = %v", err)
	}

	var names []string
	r.Each(func(inst *Instance) bool {
		names = append(names, inst.Name())
		return true
	})
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Errorf("order = %v, want [a c]", names)
	}

	visited := 0
	r.Each(func(*Instance) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("Each visited %d after stop, want 1", visited)
	}

	if got, ok := r.Get("c"); !ok || got != c {
		t.Error("Get(c) failed")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	if len(r.Models()) != 2 {
		t.Errorf("Models() = %d, want 2 (each test instance has its own model)", len(r.Models()))
	}
}
