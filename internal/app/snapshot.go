package app

import (
	"bytes"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/md2anim/internal/engine/raster"
	"github.com/Faultbox/md2anim/internal/engine/scene"
	"github.com/Faultbox/md2anim/internal/engine/texture"
)

// Snapshot renders one instance's current pose in software, seen from the
// camera position, and returns it as WebP. The clock is not advanced.
func (c *Context) Snapshot(name string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", scene.ErrUnknownInstance, name)
	}

	sc := c.cfg.Snapshot
	b := raster.New(sc.Width, sc.Height, sc.Supersample)
	if err := mirrorSkin(b, inst.Model()); err != nil {
		return nil, err
	}

	eye := c.camera.Position()
	target := inst.Orientation().Position()
	view := c.camera.View()
	if target.Sub(eye).Len() > 1e-3 {
		view = mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
	}

	b.BeginFrame(view)
	rc := c.renderContext()
	rc.Backend = b
	if err := inst.Draw(rc); err != nil {
		return nil, err
	}
	b.EndFrame()

	var buf bytes.Buffer
	if err := b.EncodeWebP(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mirrorSkin loads a model's skin into b under the id the main backend gave
// it, so frames built for the main backend sample the right texture.
func mirrorSkin(b *raster.Backend, m *scene.Model) error {
	if m.Skin.ID == 0 || m.SkinFile == "" {
		return nil
	}
	img, err := texture.Load(m.SkinFile)
	if err != nil {
		return fmt.Errorf("snapshot skin: %w", err)
	}
	b.SetTexture(m.Skin.ID, texture.Toon(img))
	return nil
}
