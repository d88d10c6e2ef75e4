package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/Faultbox/md2anim/internal/engine/pipeline"
	"github.com/Faultbox/md2anim/internal/engine/raster"
	"github.com/Faultbox/md2anim/internal/engine/scene"
	"github.com/Faultbox/md2anim/internal/engine/texture"
	"github.com/Faultbox/md2anim/pkg/formats"
)

var errUsage = errors.New("wrong arguments")

func usage(text string) error {
	return fmt.Errorf("%w; usage: md2tool %s", errUsage, text)
}

func cmdInfo(w io.Writer, args []string) error {
	if len(args) < 1 {
		return usage("info <file.md2>")
	}

	m, err := formats.ParseMD2File(args[0])
	if err != nil {
		return err
	}
	h := m.Header
	sw, sh := m.SkinSize()

	fmt.Fprintf(w, "Model:     %s\n", args[0])
	fmt.Fprintf(w, "Version:   %d\n", h.Version)
	fmt.Fprintf(w, "Skin size: %dx%d\n", sw, sh)
	fmt.Fprintf(w, "Vertices:  %d\n", m.NumVertices())
	fmt.Fprintf(w, "TexCoords: %d\n", len(m.TexCoords))
	fmt.Fprintf(w, "Triangles: %d\n", len(m.Triangles))
	fmt.Fprintf(w, "Frames:    %d\n", m.NumFrames())
	if len(m.Skins) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skins:")
		for _, s := range m.Skins {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	return nil
}

func cmdFrames(w io.Writer, args []string) error {
	if len(args) < 1 {
		return usage("frames <file.md2> [pattern]")
	}

	m, err := formats.ParseMD2File(args[0])
	if err != nil {
		return err
	}
	pattern := "*"
	if len(args) > 1 {
		pattern = args[1]
	}

	for i, f := range m.Frames {
		ok, err := filepath.Match(pattern, f.Name)
		if err != nil {
			return fmt.Errorf("bad pattern: %w", err)
		}
		if ok {
			fmt.Fprintf(w, "%4d  %s\n", i, f.Name)
		}
	}
	return nil
}

func cmdActions(w io.Writer, args []string) error {
	if len(args) < 1 {
		return usage("actions <file.act>")
	}

	set, err := formats.ParseActionSetFile(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Model: %s\n", set.ModelPath)
	fmt.Fprintf(w, "Skin:  %s\n", set.SkinPath)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-8s %-5s %6s %6s %6s\n", "ACTION", "LOOP", "FIRST", "LAST", "COUNT")
	for _, t := range set.Types() {
		a, _ := set.Action(t)
		fmt.Fprintf(w, "  %-8s %-5t %6d %6d %6d\n", t, a.Loop, a.FrameOffset, a.LastFrame(), a.FrameCount)
	}
	return nil
}

// cmdCheck loads a descriptor the way the viewer does and builds every frame
// pair with interpolation on, reporting skipped triangles.
func cmdCheck(w io.Writer, args []string) error {
	if len(args) < 1 {
		return usage("check <file.act>")
	}

	b := raster.New(1, 1, 1)
	m, err := scene.LoadModel(args[0], b, texture.Toon)
	if err != nil {
		return err
	}
	defer m.Close()

	p := pipeline.New(nil)
	settings := pipeline.Settings{Interpolation: true}
	n := m.NumFrames()
	skipped := 0
	for i := 0; i < n; i++ {
		f, err := p.Build(pipeline.Input{
			Model:         m.MD2,
			Current:       i,
			Next:          (i + 1) % n,
			Interpolation: 0.5,
			Texture:       m.Skin.ID,
		}, settings)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if f.Skipped > 0 {
			fmt.Fprintf(w, "frame %4d %-16s %d of %d triangles skipped\n",
				i, m.FrameName(i), f.Skipped, f.Skipped+f.Triangles)
		}
		skipped += f.Skipped
	}

	fmt.Fprintf(w, "%s: %d frames, %d actions, skin %v, %d triangles skipped\n",
		m.Name, n, m.Actions.Len(), m.Skin.ID != 0, skipped)
	if skipped > 0 {
		return fmt.Errorf("%d triangles with bad indices", skipped)
	}
	return nil
}

func cmdDump(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(w)
	depth := fs.Int("depth", 2, "Maximum nesting depth (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usage("dump [-depth N] <file>")
	}

	path := fs.Arg(0)
	var v any
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md2":
		v, err = formats.ParseMD2File(path)
	case ".act":
		v, err = formats.ParseActionSetFile(path)
	default:
		return fmt.Errorf("don't know how to dump %s", path)
	}
	if err != nil {
		return err
	}

	cfg := spew.NewDefaultConfig()
	cfg.DisableCapacities = true
	cfg.DisablePointerAddresses = true
	cfg.MaxDepth = *depth
	cfg.Fdump(w, v)
	return nil
}
