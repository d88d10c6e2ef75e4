// Action descriptor (.act) parser.
//
// A descriptor is a text file whose first line is the model path, second line
// the skin path, followed by whitespace separated records:
//
//	NAME LOOP OFFSET COUNT
//
// e.g. "RUN 1 40 6" plays six frames starting at frame 40 and loops.
package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Action descriptor errors.
var (
	ErrMissingModelPath  = errors.New("action descriptor: missing model path")
	ErrInvalidAction     = errors.New("action descriptor: invalid action")
	ErrInvalidFrameRange = errors.New("action descriptor: invalid frame range")
	ErrMalformedRecord   = errors.New("action descriptor: malformed record")
)

// ActionType identifies a named animation clip.
type ActionType int

const (
	ActionInvalid ActionType = iota
	ActionIdle
	ActionRun
	ActionJump
	ActionAttack
	ActionWave
	ActionDead
)

var actionNames = [...]string{
	ActionInvalid: "INVALID",
	ActionIdle:    "IDLE",
	ActionRun:     "RUN",
	ActionJump:    "JUMP",
	ActionAttack:  "ATTACK",
	ActionWave:    "WAVE",
	ActionDead:    "DEAD",
}

// String returns the descriptor spelling of the action.
func (a ActionType) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("Unknown(%d)", int(a))
	}
	return actionNames[a]
}

// ParseActionType maps a descriptor name to its action. Unknown names map to
// ActionInvalid.
func ParseActionType(name string) ActionType {
	for i, n := range actionNames {
		if n == name {
			return ActionType(i)
		}
	}
	return ActionInvalid
}

// ActionInfo describes one clip as a contiguous frame range.
type ActionInfo struct {
	Type        ActionType
	Loop        bool
	FrameOffset int
	FrameCount  int
}

// LastFrame returns the absolute index of the final frame in the clip.
func (a ActionInfo) LastFrame() int {
	return a.FrameOffset + a.FrameCount - 1
}

// ActionSet is a parsed action descriptor.
type ActionSet struct {
	ModelPath string
	SkinPath  string

	actions map[ActionType]ActionInfo
}

// NewActionSet builds an action set from already validated records. Later
// records replace earlier ones with the same type.
func NewActionSet(modelPath, skinPath string, infos ...ActionInfo) *ActionSet {
	s := &ActionSet{
		ModelPath: modelPath,
		SkinPath:  skinPath,
		actions:   make(map[ActionType]ActionInfo, len(infos)),
	}
	for _, info := range infos {
		s.actions[info.Type] = info
	}
	return s
}

// Action returns the record for t. The boolean is false when the descriptor
// did not define t.
func (s *ActionSet) Action(t ActionType) (ActionInfo, bool) {
	info, ok := s.actions[t]
	return info, ok
}

// Types returns the defined actions in enum order.
func (s *ActionSet) Types() []ActionType {
	types := make([]ActionType, 0, len(s.actions))
	for t := range s.actions {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Len returns the number of defined actions.
func (s *ActionSet) Len() int {
	return len(s.actions)
}

// ParseActionSet parses a descriptor. The first malformed record aborts
// parsing with an error naming the record.
func ParseActionSet(r io.Reader) (*ActionSet, error) {
	br := bufio.NewReader(r)

	modelPath, err := readLine(br)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading model path: %w", err)
	}
	if modelPath == "" {
		return nil, ErrMissingModelPath
	}
	skinPath, err := readLine(br)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading skin path: %w", err)
	}

	s := NewActionSet(modelPath, skinPath)

	sc := bufio.NewScanner(br)
	sc.Split(bufio.ScanWords)
	for record := 1; ; record++ {
		var fields [4]string
		n := 0
		for n < len(fields) && sc.Scan() {
			fields[n] = sc.Text()
			n++
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading record %d: %w", record, err)
		}
		if n == 0 {
			break
		}
		if n < len(fields) {
			return nil, fmt.Errorf("%w: record %d has %d of 4 fields", ErrMalformedRecord, record, n)
		}

		info, err := parseActionRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", record, err)
		}
		s.actions[info.Type] = info
	}

	return s, nil
}

// ParseActionSetFile parses a descriptor from disk.
func ParseActionSetFile(path string) (*ActionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening action descriptor: %w", err)
	}
	defer f.Close()
	return ParseActionSet(f)
}

func parseActionRecord(fields [4]string) (ActionInfo, error) {
	info := ActionInfo{Type: ParseActionType(fields[0])}
	if info.Type == ActionInvalid {
		return info, fmt.Errorf("%w: %q", ErrInvalidAction, fields[0])
	}

	switch fields[1] {
	case "0":
	case "1":
		info.Loop = true
	default:
		return info, fmt.Errorf("%w: loop flag %q", ErrMalformedRecord, fields[1])
	}

	var err error
	if info.FrameOffset, err = strconv.Atoi(fields[2]); err != nil {
		return info, fmt.Errorf("%w: frame offset %q", ErrMalformedRecord, fields[2])
	}
	if info.FrameCount, err = strconv.Atoi(fields[3]); err != nil {
		return info, fmt.Errorf("%w: frame count %q", ErrMalformedRecord, fields[3])
	}
	if info.FrameOffset < 0 || info.FrameCount <= 0 {
		return info, fmt.Errorf("%w: %s offset %d count %d",
			ErrInvalidFrameRange, info.Type, info.FrameOffset, info.FrameCount)
	}
	return info, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	return strings.TrimSpace(line), err
}
