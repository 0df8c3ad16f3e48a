package recorder

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// State is the recorder state
type State int

const (
	// Idle - no recording in progress
	Idle State = iota
	// Recording - capture device is running
	Recording
	// Paused - capture suspended, may be resumed or stopped
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrNoConsent - recording requires an explicit consent acknowledgment
	ErrNoConsent = fmt.Errorf("consent not confirmed")
	// ErrNoPatient - recording requires a patient association
	ErrNoPatient = fmt.Errorf("no patient association")
	// ErrEmptyRecording - stop produced no audio data
	ErrEmptyRecording = fmt.Errorf("empty recording")
	// ErrWrongState - the transition is not allowed from the current state
	ErrWrongState = fmt.Errorf("wrong state")
)

// Device is the underlying audio capture device.
// It delivers audio fragments through the emit callback passed to Start.
type Device interface {
	Start(ctx context.Context, emit func([]byte)) error
	Pause() error
	Resume() error
	Stop(ctx context.Context) error
	MimeType() string
}

// Patient is the association the recording is made for
type Patient struct {
	ID         string
	ClientName string
}

// Capture is the finalized recording handed to the uploader
type Capture struct {
	Data        []byte
	MimeType    string
	DurationSec int32
	Patient     Patient
}

// Machine drives a capture device through idle, recording and paused states
// and assembles the captured fragments into one upload payload.
// All methods are safe for use from the emit goroutine and the UI goroutine.
type Machine struct {
	device    Device
	flushWait time.Duration
	now       func() time.Time

	mu          sync.Mutex
	state       State
	chunks      [][]byte
	patient     Patient
	segStart    time.Time
	accumulated time.Duration
}

// NewMachine creates the recorder state machine.
// flushWait is how long Stop waits for the device's trailing fragment.
func NewMachine(device Device, flushWait time.Duration) (*Machine, error) {
	if device == nil {
		return nil, fmt.Errorf("no device")
	}
	if flushWait <= 0 {
		return nil, fmt.Errorf("wrong flush wait %v", flushWait)
	}
	return &Machine{device: device, flushWait: flushWait, now: time.Now}, nil
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start moves idle -> recording. It refuses without consent or
// a patient association, leaving the state unchanged.
func (m *Machine) Start(ctx context.Context, patient Patient, consent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return fmt.Errorf("can't start from %s: %w", m.state, ErrWrongState)
	}
	if !consent {
		return ErrNoConsent
	}
	if patient.ID == "" && patient.ClientName == "" {
		return ErrNoPatient
	}
	if err := m.device.Start(ctx, m.addChunk); err != nil {
		return fmt.Errorf("can't start capture: %w", err)
	}
	m.state = Recording
	m.chunks = nil
	m.patient = patient
	m.accumulated = 0
	m.segStart = m.now()
	return nil
}

// Pause moves recording -> paused and stops elapsed time accounting
func (m *Machine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Recording {
		return fmt.Errorf("can't pause from %s: %w", m.state, ErrWrongState)
	}
	if err := m.device.Pause(); err != nil {
		return fmt.Errorf("can't pause capture: %w", err)
	}
	m.accumulated += m.now().Sub(m.segStart)
	m.state = Paused
	return nil
}

// Resume moves paused -> recording
func (m *Machine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Paused {
		return fmt.Errorf("can't resume from %s: %w", m.state, ErrWrongState)
	}
	if err := m.device.Resume(); err != nil {
		return fmt.Errorf("can't resume capture: %w", err)
	}
	m.segStart = m.now()
	m.state = Recording
	return nil
}

// DurationSec returns elapsed whole seconds spent in the recording state
func (m *Machine) DurationSec() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int32(m.elapsed() / time.Second)
}

// Stop finalizes the recording and returns the machine to idle.
// The state is reset even on error, an interrupted take is never resumable.
func (m *Machine) Stop(ctx context.Context) (*Capture, error) {
	m.mu.Lock()
	if m.state == Idle {
		m.mu.Unlock()
		return nil, fmt.Errorf("can't stop from %s: %w", Idle, ErrWrongState)
	}
	if m.state == Recording {
		m.accumulated += m.now().Sub(m.segStart)
	}
	m.state = Paused
	m.mu.Unlock()

	err := m.device.Stop(ctx)
	// wait for the trailing fragment even if stop failed
	select {
	case <-time.After(m.flushWait):
	case <-ctx.Done():
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.reset()
	if err != nil {
		return nil, fmt.Errorf("can't stop capture: %w", err)
	}
	data := bytes.Join(m.chunks, nil)
	if len(data) == 0 {
		return nil, ErrEmptyRecording
	}
	res := &Capture{Data: data, MimeType: m.device.MimeType(),
		DurationSec: int32(m.accumulated / time.Second), Patient: m.patient}
	goapp.Log.Info().Int("size", len(res.Data)).Int32("durationSec", res.DurationSec).
		Msg("recording finalized")
	return res, nil
}

func (m *Machine) addChunk(data []byte) {
	if len(data) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Idle {
		return
	}
	b := make([]byte, len(data))
	copy(b, data)
	m.chunks = append(m.chunks, b)
}

func (m *Machine) elapsed() time.Duration {
	if m.state == Recording {
		return m.accumulated + m.now().Sub(m.segStart)
	}
	return m.accumulated
}

func (m *Machine) reset() {
	m.state = Idle
	m.chunks = nil
	m.patient = Patient{}
	m.accumulated = 0
}
