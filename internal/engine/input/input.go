// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/md2anim/internal/engine/camera"
	"github.com/Faultbox/md2anim/pkg/formats"
)

// EventType identifies a processed event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
}

// CommandKind is what a key press asks the viewer to do.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandQuit
	CommandToggleInterpolation
	CommandToggleSubdivision
	CommandToggleCelShading
	CommandToggleDebugLighting
	CommandToggleDebugView
	CommandToggleDebugNormals
	CommandSetAction
	CommandScreenshot
	CommandToggleMusic
)

// Command is a bound key press. Action is set for CommandSetAction.
type Command struct {
	Kind   CommandKind
	Action formats.ActionType
}

// Bindings maps key presses to commands.
var Bindings = map[sdl.Scancode]Command{
	sdl.SCANCODE_ESCAPE: {Kind: CommandQuit},
	sdl.SCANCODE_X:      {Kind: CommandToggleInterpolation},
	sdl.SCANCODE_Z:      {Kind: CommandToggleSubdivision},
	sdl.SCANCODE_C:      {Kind: CommandToggleCelShading},
	sdl.SCANCODE_L:      {Kind: CommandToggleDebugLighting},
	sdl.SCANCODE_V:      {Kind: CommandToggleDebugView},
	sdl.SCANCODE_N:      {Kind: CommandToggleDebugNormals},
	sdl.SCANCODE_1:      {Kind: CommandSetAction, Action: formats.ActionIdle},
	sdl.SCANCODE_2:      {Kind: CommandSetAction, Action: formats.ActionRun},
	sdl.SCANCODE_3:      {Kind: CommandSetAction, Action: formats.ActionJump},
	sdl.SCANCODE_4:      {Kind: CommandSetAction, Action: formats.ActionAttack},
	sdl.SCANCODE_5:      {Kind: CommandSetAction, Action: formats.ActionWave},
	sdl.SCANCODE_6:      {Kind: CommandSetAction, Action: formats.ActionDead},
	sdl.SCANCODE_F12:    {Kind: CommandScreenshot},
	sdl.SCANCODE_M:      {Kind: CommandToggleMusic},
}

// Input handles all input processing.
type Input struct {
	events   []Event
	commands []Command
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events:   make([]Event, 0, 16),
		commands: make([]Command, 0, 4),
	}
}

// Update polls SDL events and converts them to viewer events and commands.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	i.commands = i.commands[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYUP {
				i.events = append(i.events, Event{Type: EventKeyUp, Key: e.Keysym.Scancode})
				continue
			}
			if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
				continue
			}
			i.events = append(i.events, Event{Type: EventKeyDown, Key: e.Keysym.Scancode})
			if cmd, ok := Bindings[e.Keysym.Scancode]; ok {
				if cmd.Kind == CommandQuit {
					return true
				}
				i.commands = append(i.commands, cmd)
			}
		}
	}

	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Commands returns the bound key presses from the last Update in order.
func (i *Input) Commands() []Command {
	return i.commands
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// Controls returns the camera keys currently held.
func (i *Input) Controls() camera.Controls {
	return ControlsFromState(sdl.GetKeyboardState())
}

// ControlsFromState maps a keyboard state array indexed by scancode to camera
// controls.
func ControlsFromState(state []uint8) camera.Controls {
	held := func(sc sdl.Scancode) bool {
		return int(sc) < len(state) && state[sc] != 0
	}
	return camera.Controls{
		Forward:   held(sdl.SCANCODE_W),
		Back:      held(sdl.SCANCODE_S),
		Left:      held(sdl.SCANCODE_A),
		Right:     held(sdl.SCANCODE_D),
		TurnLeft:  held(sdl.SCANCODE_LEFT),
		TurnRight: held(sdl.SCANCODE_RIGHT),
	}
}
