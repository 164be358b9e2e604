package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ServiceScript is the file name of the expression service.
const ServiceScript = "expression_service.py"

// DefaultIdleTimeout is how long the service process stays up without frames.
const DefaultIdleTimeout = 30 * time.Second

// DefaultResponseTimeout bounds one frame exchange. It leaves room for the
// model to load on the first frame.
const DefaultResponseTimeout = 10 * time.Second

// shutdownGrace is how long a process may take to exit after its stdin is
// closed before it is killed.
const shutdownGrace = 2 * time.Second

var (
	// ErrServiceNotFound is returned when the expression service script is missing.
	ErrServiceNotFound = errors.New(ServiceScript + " not found")

	// ErrServiceTimeout is returned when the service does not answer a frame
	// within the response timeout. The process is killed.
	ErrServiceTimeout = errors.New("expression service did not respond")

	// ErrDetectorClosed is returned by Detect after Close.
	ErrDetectorClosed = errors.New("detector is closed")
)

// ServiceDetector implements Detector by talking to a Python process that
// runs the face detector and expression network.
//
// Each request is a 4-byte big-endian length followed by a JPEG frame. Each
// response is one JSON line: {"faces":[...]} or {"error":"..."}.
type ServiceDetector struct {
	config          Config
	command         func() *exec.Cmd
	idleTimeout     time.Duration
	responseTimeout time.Duration

	// mu serializes exchanges and guards the pipe state.
	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	closed    bool
	idleTimer *time.Timer
	idleGen   uint64

	// procMu guards proc only, so a hung exchange can be killed without mu.
	procMu sync.Mutex
	proc   *os.Process
}

// NewServiceDetector creates a detector backed by the expression service.
// The process is started lazily on the first frame.
func NewServiceDetector(config Config) (*ServiceDetector, error) {
	script := config.Script
	if script == "" {
		script = findServiceScript()
	}
	if script == "" {
		return nil, ErrServiceNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, script)
	}

	python := findVenvPython()
	if python == "" {
		python = "python3"
	}

	args := []string{
		script,
		"--input-size", strconv.Itoa(config.InputSize),
		"--score-threshold", strconv.FormatFloat(config.ScoreThreshold, 'f', -1, 64),
	}

	return newServiceDetector(config, func() *exec.Cmd {
		return exec.Command(python, args...)
	}), nil
}

func newServiceDetector(config Config, command func() *exec.Cmd) *ServiceDetector {
	timeout := config.ResponseTimeout
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	return &ServiceDetector{
		config:          config,
		command:         command,
		idleTimeout:     DefaultIdleTimeout,
		responseTimeout: timeout,
	}
}

// Detect encodes frame as JPEG and classifies the faces in it.
func (d *ServiceDetector) Detect(frame *gocv.Mat) ([]Face, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return d.DetectJPEG(buf.GetBytes())
}

// DetectJPEG classifies the faces in an already encoded JPEG frame.
func (d *ServiceDetector) DetectJPEG(data []byte) ([]Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDetectorClosed
	}
	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	faces, err := d.roundTrip(data)
	if err != nil {
		var remote *serviceError
		if !errors.As(err, &remote) {
			// The pipe is in an unknown state; restart on the next frame.
			d.shutdown()
		}
		return nil, err
	}

	d.resetIdleTimer()
	return faces, nil
}

type serviceError struct {
	msg string
}

func (e *serviceError) Error() string {
	return "expression service: " + e.msg
}

// roundTrip sends one frame and waits at most responseTimeout for the reply.
// On timeout the process is killed, which unblocks the pending pipe I/O.
func (d *ServiceDetector) roundTrip(data []byte) ([]Face, error) {
	type reply struct {
		line []byte
		err  error
	}

	stdin, stdout := d.stdin, d.stdout
	replies := make(chan reply, 1)
	go func() {
		line, err := exchange(stdin, stdout, data)
		replies <- reply{line, err}
	}()

	timer := time.NewTimer(d.responseTimeout)
	defer timer.Stop()

	var r reply
	select {
	case r = <-replies:
	case <-timer.C:
		d.kill()
		return nil, fmt.Errorf("%w within %s", ErrServiceTimeout, d.responseTimeout)
	}
	if r.err != nil {
		return nil, r.err
	}

	var response struct {
		Faces []Face `json:"faces"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(r.line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, &serviceError{msg: response.Error}
	}

	return response.Faces, nil
}

func exchange(stdin io.Writer, stdout *bufio.Reader, data []byte) ([]byte, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

// Close shuts down the service process. A frame exchange in progress is
// aborted by killing the process. Detect fails with ErrDetectorClosed
// afterwards.
func (d *ServiceDetector) Close() error {
	if !d.mu.TryLock() {
		d.kill()
		d.mu.Lock()
	}
	defer d.mu.Unlock()

	d.closed = true
	return d.shutdown()
}

// Running reports whether the service process is up. It does not wait for
// an exchange in progress.
func (d *ServiceDetector) Running() bool {
	d.procMu.Lock()
	defer d.procMu.Unlock()
	return d.proc != nil
}

func (d *ServiceDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	cmd := d.command()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start expression service: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	d.procMu.Lock()
	d.proc = cmd.Process
	d.procMu.Unlock()

	return nil
}

// kill terminates the process without touching mu.
func (d *ServiceDetector) kill() {
	d.procMu.Lock()
	defer d.procMu.Unlock()
	if d.proc != nil {
		d.proc.Kill()
	}
}

// shutdown closes stdin and waits for the process, killing it if it does not
// exit within shutdownGrace. mu must be held.
func (d *ServiceDetector) shutdown() error {
	if !d.started {
		return nil
	}

	d.idleGen++
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	cmd := d.cmd
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var err error
	select {
	case err = <-exited:
	case <-time.After(shutdownGrace):
		d.kill()
		err = <-exited
	}

	d.procMu.Lock()
	d.proc = nil
	d.procMu.Unlock()

	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

// resetIdleTimer schedules an idle shutdown. A timer that already fired while
// mu was held sees a newer generation and does nothing.
func (d *ServiceDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleGen++
	gen := d.idleGen
	d.idleTimer = time.AfterFunc(d.idleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.idleGen != gen {
			return
		}
		d.shutdown()
	})
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", ServiceScript),
		filepath.Join("..", "scripts", ServiceScript),
		filepath.Join(execDir, "scripts", ServiceScript),
		filepath.Join(os.Getenv("HOME"), ".moodflix", "scripts", ServiceScript),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a nearby virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".moodflix/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
