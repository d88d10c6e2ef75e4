// Package audio loads and plays sound effects and music tracks by id.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// DefaultSampleRate is the default sample rate for audio playback.
const DefaultSampleRate = beep.SampleRate(44100)

// Registry capacities.
const (
	MaxSounds = 100
	MaxMusic  = 100
)

// Audio errors.
var (
	ErrNotInitialized    = errors.New("audio not initialized")
	ErrSoundRegistryFull = errors.New("sound registry full")
	ErrMusicRegistryFull = errors.New("music registry full")
	ErrUnknownSound      = errors.New("unknown sound id")
	ErrUnknownMusic      = errors.New("unknown music id")
)

// sound is a fully decoded effect. ctrl controls its latest playback.
type sound struct {
	path   string
	buffer *beep.Buffer
}

// track is an encoded music file, decoded when played.
type track struct {
	path string
	data []byte
}

// Manager owns the sound and music registries and the speaker.
type Manager struct {
	mu sync.RWMutex

	initialized bool
	sampleRate  beep.SampleRate

	sounds []*sound // nil entries are free slots
	music  []*track

	// Current music
	musicID       int
	musicStreamer beep.StreamSeekCloser
	musicCtrl     *beep.Ctrl
	musicVolume   *effects.Volume
	musicPlaying  bool

	// Volume settings (0.0 to 1.0)
	masterVolume float64
	musicVolLvl  float64
	sfxVolLevel  float64

	// SFX mixer for concurrent sound effects
	sfxMixer *beep.Mixer
}

// New creates a new audio manager.
func New() *Manager {
	return &Manager{
		sampleRate:   DefaultSampleRate,
		musicID:      -1,
		masterVolume: 1.0,
		musicVolLvl:  0.7,
		sfxVolLevel:  1.0,
		sfxMixer:     &beep.Mixer{},
	}
}

// Init opens the speaker.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	err := speaker.Init(m.sampleRate, m.sampleRate.N(time.Second/30))
	if err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	speaker.Play(m.sfxMixer)
	m.initialized = true
	return nil
}

// Close stops playback and releases every sound and track.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopMusicInternal()
	if m.initialized {
		speaker.Clear()
	}
	m.sounds = nil
	m.music = nil
	m.initialized = false
}

// IsInitialized returns whether the speaker is open.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// LoadSound decodes a WAV effect and returns its id.
func (m *Manager) LoadSound(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("loading sound: %w", err)
	}
	return m.LoadSoundData(path, data)
}

// LoadSoundData decodes WAV data already in memory.
func (m *Manager) LoadSoundData(name string, data []byte) (int, error) {
	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return -1, fmt.Errorf("decode wav %s: %w", name, err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	if format.SampleRate != m.sampleRate {
		buf = beep.NewBuffer(beep.Format{SampleRate: m.sampleRate, NumChannels: format.NumChannels, Precision: format.Precision})
		buf.Append(beep.Resample(4, format.SampleRate, m.sampleRate, streamer))
	} else {
		buf.Append(streamer)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := freeSlot(m.sounds, MaxSounds)
	if !ok {
		return -1, fmt.Errorf("%w: %d sounds loaded", ErrSoundRegistryFull, MaxSounds)
	}
	s := &sound{path: name, buffer: buf}
	if id == len(m.sounds) {
		m.sounds = append(m.sounds, s)
	} else {
		m.sounds[id] = s
	}
	return id, nil
}

// UnloadSound frees a sound id. Unknown ids are ignored.
func (m *Manager) UnloadSound(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.soundAt(id); s != nil {
		if s.ctrl != nil {
			speaker.Lock()
			s.ctrl.Streamer = nil
			speaker.Unlock()
		}
		m.sounds[id] = nil
	}
}

// IsSound reports whether id names a loaded sound.
func (m *Manager) IsSound(id int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.soundAt(id) != nil
}

// SoundCount returns the number of loaded sounds.
func (m *Manager) SoundCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sounds {
		if s != nil {
			n++
		}
	}
	return n
}

func (m *Manager) soundAt(id int) *sound {
	if id < 0 || id >= len(m.sounds) {
		return nil
	}
	return m.sounds[id]
}

// PlaySound starts a sound on the effects mixer.
func (m *Manager) PlaySound(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	s := m.soundAt(id)
	if s == nil {
		return fmt.Errorf("%w: %d", ErrUnknownSound, id)
	}

	vol := m.masterVolume * m.sfxVolLevel
	m.sfxMixer.Add(&effects.Volume{
		Streamer: s.buffer.Streamer(0, s.buffer.Len()),
		Base:     2,
		Volume:   volumeToDb(vol),
		Silent:   vol <= 0,
	})
	return nil
}


// LoadMusic registers a WAV music track and returns its id. The file is
// decoded when played.
func (m *Manager) LoadMusic(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("loading music: %w", err)
	}
	check, _, err := wav.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return -1, fmt.Errorf("decode wav %s: %w", path, err)
	}
	check.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := freeSlot(m.music, MaxMusic)
	if !ok {
		return -1, fmt.Errorf("%w: %d tracks loaded", ErrMusicRegistryFull, MaxMusic)
	}
	t := &track{path: path, data: data}
	if id == len(m.music) {
		m.music = append(m.music, t)
	} else {
		m.music[id] = t
	}
	return id, nil
}

// IsMusic reports whether id names a loaded track.
func (m *Manager) IsMusic(id int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trackAt(id) != nil
}

func (m *Manager) trackAt(id int) *track {
	if id < 0 || id >= len(m.music) {
		return nil
	}
	return m.music[id]
}

// PlayMusic replaces the current track. If loop is true the track repeats.
func (m *Manager) PlayMusic(id int, loop bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	t := m.trackAt(id)
	if t == nil {
		return fmt.Errorf("%w: %d", ErrUnknownMusic, id)
	}

	m.stopMusicInternal()

	streamer, format, err := wav.Decode(io.NopCloser(bytes.NewReader(t.data)))
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}

	var resampled beep.Streamer = streamer
	if format.SampleRate != m.sampleRate {
		resampled = beep.Resample(4, format.SampleRate, m.sampleRate, streamer)
	}

	var final beep.Streamer = resampled
	if loop {
		final = &loopStreamer{streamer: streamer, resampled: resampled, loop: true}
	}

	m.musicCtrl = &beep.Ctrl{Streamer: final}
	m.musicVolume = &effects.Volume{Streamer: m.musicCtrl, Base: 2}
	m.updateMusicVolume()

	m.musicStreamer = streamer
	m.musicID = id
	m.musicPlaying = true

	speaker.Play(beep.Seq(m.musicVolume, beep.Callback(func() {
		m.mu.Lock()
		m.musicPlaying = false
		m.mu.Unlock()
	})))
	return nil
}

// StopMusic stops the current track.
func (m *Manager) StopMusic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopMusicInternal()
}

func (m *Manager) stopMusicInternal() {
	if m.musicCtrl == nil {
		return
	}
	speaker.Lock()
	m.musicCtrl.Paused = true
	m.musicCtrl.Streamer = nil
	speaker.Unlock()

	if m.musicStreamer != nil {
		m.musicStreamer.Close()
		m.musicStreamer = nil
	}
	m.musicCtrl = nil
	m.musicVolume = nil
	m.musicPlaying = false
	m.musicID = -1
}

// PauseMusic pauses the current track.
func (m *Manager) PauseMusic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setMusicPaused(true)
}

// ResumeMusic resumes the paused track.
func (m *Manager) ResumeMusic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setMusicPaused(false)
}

// ToggleMusic pauses a playing track or resumes a paused one and reports
// whether music is now playing. Without a track it does nothing.
func (m *Manager) ToggleMusic() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setMusicPaused(m.musicPlaying)
	return m.musicPlaying
}

// setMusicPaused must be called with mu held.
func (m *Manager) setMusicPaused(paused bool) {
	if m.musicCtrl == nil {
		return
	}
	speaker.Lock()
	m.musicCtrl.Paused = paused
	speaker.Unlock()
	m.musicPlaying = !paused
}

// IsMusicPlaying returns whether a track is playing.
func (m *Manager) IsMusicPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.musicPlaying
}

// CurrentMusic returns the playing track id, or -1.
func (m *Manager) CurrentMusic() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.musicID
}

// SetMasterVolume sets the master volume (0.0 to 1.0).
func (m *Manager) SetMasterVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.masterVolume = clamp(vol, 0, 1)
	m.updateMusicVolume()
}

// SetMusicVolume sets the music volume (0.0 to 1.0).
func (m *Manager) SetMusicVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.musicVolLvl = clamp(vol, 0, 1)
	m.updateMusicVolume()
}

// SetSFXVolume sets the effects volume (0.0 to 1.0).
func (m *Manager) SetSFXVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sfxVolLevel = clamp(vol, 0, 1)
}

// Volumes returns the master, music and effects volumes.
func (m *Manager) Volumes() (master, music, sfx float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.masterVolume, m.musicVolLvl, m.sfxVolLevel
}

func (m *Manager) updateMusicVolume() {
	if m.musicVolume == nil {
		return
	}
	vol := m.masterVolume * m.musicVolLvl
	speaker.Lock()
	m.musicVolume.Silent = vol <= 0
	m.musicVolume.Volume = volumeToDb(vol)
	speaker.Unlock()
}

// volumeToDb converts a 0-1 volume to the base-2 exponent used by
// effects.Volume: 1 -> 0, 0.5 -> -1.
func volumeToDb(vol float64) float64 {
	if vol <= 0 {
		return -100
	}
	return math.Log2(vol)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// freeSlot returns the first nil index, or len(slots) when there is room to
// grow. The boolean is false at capacity.
func freeSlot[T any](slots []*T, limit int) (int, bool) {
	for i, s := range slots {
		if s == nil {
			return i, true
		}
	}
	if len(slots) >= limit {
		return -1, false
	}
	return len(slots), true
}

// loopStreamer wraps a streamer to make it loop.
type loopStreamer struct {
	streamer  beep.StreamSeekCloser
	resampled beep.Streamer
	loop      bool
}

func (l *loopStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := l.resampled.Stream(samples[filled:])
		filled += n
		if !ok {
			if l.loop {
				if err := l.streamer.Seek(0); err != nil {
					return filled, false
				}
				continue
			}
			return filled, false
		}
	}
	return filled, true
}

func (l *loopStreamer) Err() error {
	return l.streamer.Err()
}
