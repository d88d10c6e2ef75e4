// Package scene holds loaded models and the animated instances drawn from
// them.
package scene

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Faultbox/md2anim/internal/engine/renderer"
	"github.com/Faultbox/md2anim/internal/engine/texture"
	"github.com/Faultbox/md2anim/pkg/formats"
)

// Model errors.
var (
	ErrActionRange      = errors.New("scene: action frames outside model")
	ErrMissingIdle      = errors.New("scene: model has no IDLE action")
	ErrSkinSizeMismatch = errors.New("scene: skin size does not match model header")
	ErrUnsupportedKind  = errors.New("scene: unsupported model kind")
)

// Kind identifies the geometry format of a model.
type Kind int

const (
	KindUnknown Kind = iota
	KindMD2
)

func (k Kind) String() string {
	switch k {
	case KindMD2:
		return "md2"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Model is shared, read-only geometry plus its actions and skin. Instances
// reference a model; they never copy it.
type Model struct {
	Name    string
	Kind    Kind
	MD2     *formats.MD2 // set when Kind == KindMD2
	Actions *formats.ActionSet
	Skin    renderer.Texture

	// SkinFile is the resolved skin path, empty when untextured.
	SkinFile string

	loader renderer.TextureLoader
}

// NewModel validates actions against MD2 geometry. Every action range must
// lie inside the model's frames and IDLE must be defined.
func NewModel(name string, md2 *formats.MD2, actions *formats.ActionSet) (*Model, error) {
	n := md2.NumFrames()
	for _, t := range actions.Types() {
		info, _ := actions.Action(t)
		if info.FrameOffset+info.FrameCount > n {
			return nil, fmt.Errorf("%w: %s uses frames %d-%d of %d",
				ErrActionRange, t, info.FrameOffset, info.LastFrame(), n)
		}
	}
	if _, ok := actions.Action(formats.ActionIdle); !ok {
		return nil, ErrMissingIdle
	}
	return &Model{
		Name:    name,
		Kind:    KindMD2,
		MD2:     md2,
		Actions: actions,
	}, nil
}

// LoadModel reads an action descriptor, the MD2 it names and its skin.
// Relative paths in the descriptor are resolved against its directory. The
// skin is uploaded through loader with filter applied; a nil loader or an
// empty skin path leaves the model untextured.
func LoadModel(descriptorPath string, loader renderer.TextureLoader, filter texture.Filter) (*Model, error) {
	actions, err := formats.ParseActionSetFile(descriptorPath)
	if err != nil {
		return nil, fmt.Errorf("loading descriptor: %w", err)
	}

	dir := filepath.Dir(descriptorPath)
	md2, err := formats.ParseMD2File(resolve(dir, actions.ModelPath))
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", actions.ModelPath, err)
	}

	name := trimExt(filepath.Base(descriptorPath))
	m, err := NewModel(name, md2, actions)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}

	if loader == nil || actions.SkinPath == "" {
		return m, nil
	}
	m.SkinFile = resolve(dir, actions.SkinPath)
	skin, err := loader.LoadTexture(m.SkinFile, filter)
	if err != nil {
		return nil, fmt.Errorf("loading skin %s: %w", actions.SkinPath, err)
	}
	if w, h := md2.SkinSize(); skin.Width != w || skin.Height != h {
		loader.UnloadTexture(skin.ID)
		return nil, fmt.Errorf("%w: %s is %dx%d, header says %dx%d",
			ErrSkinSizeMismatch, actions.SkinPath, skin.Width, skin.Height, w, h)
	}
	m.Skin = skin
	m.loader = loader
	return m, nil
}

// NumFrames returns the number of keyframes.
func (m *Model) NumFrames() int {
	switch m.Kind {
	case KindMD2:
		return m.MD2.NumFrames()
	default:
		return 0
	}
}

// FrameName returns the name of an absolute frame.
func (m *Model) FrameName(i int) string {
	if m.Kind != KindMD2 || i < 0 || i >= len(m.MD2.Frames) {
		return ""
	}
	return m.MD2.Frames[i].Name
}

// Close releases the skin texture.
func (m *Model) Close() {
	if m.loader != nil && m.Skin.ID != 0 {
		m.loader.UnloadTexture(m.Skin.ID)
	}
	m.Skin = renderer.Texture{}
	m.loader = nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, filepath.FromSlash(path))
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
