package session

import (
	"context"
	"time"

	"github.com/marmos91/espflash/internal/logger"
	"github.com/marmos91/espflash/internal/protocol/espboot"
	"github.com/marmos91/espflash/internal/protocol/slip"
)

// State names the session's position in the sequential state machine.
// [spec.md §4.4]
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateSynced
	StateChipKnown
	StateStubRunning
	StateFlashAttached
	StateFlashing
	StateIdle
	StateReset
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnected:
		return "Connected"
	case StateSynced:
		return "Synced"
	case StateChipKnown:
		return "ChipKnown"
	case StateStubRunning:
		return "StubRunning"
	case StateFlashAttached:
		return "FlashAttached"
	case StateFlashing:
		return "Flashing"
	case StateIdle:
		return "Idle"
	case StateReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// flashBlockSize is the block size FLASH_BEGIN/FLASH_DATA operate with.
const flashBlockSize = 4096

// memChunkSize is the chunk size loadToRam splits an in-RAM upload into.
const memChunkSize = 1460

// Session is the stateful bootloader client. It is not safe for concurrent
// use: the protocol is single-threaded cooperative, one command outstanding
// at a time. [spec.md §4.4, §5]
type Session struct {
	port     SerialPort
	reader   *frameReader
	frames   <-chan []byte
	stub     StubProvider
	sink     EventSink
	timeouts Timeouts
	strategy ResetStrategy
	portOpts PortOptions

	state State
	chip  Chip

	// ctx is the cancellable context derived in Open; every in-flight wait
	// selects on ctx.Done() so Disconnect's cancel reaches them. [spec.md §5
	// "A single session-level cancellation signal aborts the response
	// stream; all in-flight awaits must observe it"]
	ctx    context.Context
	cancel context.CancelFunc
}

// Options configures a new Session.
type Options struct {
	Stub     StubProvider
	Sink     EventSink
	Timeouts Timeouts
	Reset    ResetStrategy

	// PortOptions overrides the line settings Open uses. A zero value
	// (the default) keeps DefaultPortOptions(): 115200 8N1.
	PortOptions PortOptions
}

// New creates a Session bound to port, initially Disconnected.
// [spec.md §4.4 "created empty by new"]
func New(port SerialPort, opts Options) *Session {
	sink := opts.Sink
	if sink == nil {
		sink = NopEventSink{}
	}
	portOpts := opts.PortOptions
	if portOpts.Baud == 0 {
		portOpts = DefaultPortOptions()
	} else {
		if portOpts.DataBits == 0 {
			portOpts.DataBits = 8
		}
		if portOpts.StopBits == 0 {
			portOpts.StopBits = 1
		}
		if portOpts.Parity == "" {
			portOpts.Parity = "none"
		}
		if portOpts.Flow == "" {
			portOpts.Flow = "none"
		}
		if portOpts.BufferSize == 0 {
			portOpts.BufferSize = 255
		}
	}
	return &Session{
		port:      port,
		stub:      opts.Stub,
		sink:      sink,
		timeouts:  opts.Timeouts.withDefaults(),
		strategy:  opts.Reset,
		portOpts:  portOpts,
		state:     StateDisconnected,
		chip:      ChipUnknown,
	}
}

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// Chip returns the detected chip family, or ChipUnknown before detectChip.
func (s *Session) Chip() Chip { return s.chip }

// Open acquires the port, opens it at its configured line settings
// (115200 8N1 unless Options.PortOptions overrides it), and starts the
// SLIP response-frame broadcast. [spec.md §4.4 step 1]
func (s *Session) Open(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.ctx = ctx
	s.cancel = cancel

	if err := s.port.Open(ctx, s.portOpts); err != nil {
		cancel()
		return err
	}

	s.reader = newFrameReader()
	s.frames = s.reader.subscribe()
	go s.reader.run(s.port.Readable())

	s.state = StateConnected
	return nil
}

// Sync sends a reset pulse, then attempts SYNC up to 10 times, each attempt
// waiting up to the Sync timeout (500ms by default), until the device
// answers. [spec.md §4.4 step 2]
func (s *Session) Sync(ctx context.Context) error {
	if s.state == StateDisconnected {
		return ErrNotConnected
	}

	if err := s.resetPulse(ctx); err != nil {
		return err
	}

	const maxAttempts = 10
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		logCtx := logger.FromContext(ctx).WithAttempt(attempt)
		logger.DebugCtx(logger.WithContext(ctx, logCtx), "sending sync")

		_, err := s.roundTrip(ctx, espboot.Sync(), espboot.OpSync, s.timeouts.Sync)
		if err == nil {
			s.state = StateSynced
			s.sink.Emit(Event{Kind: EventSyncProgress, Progress: 100})
			return nil
		}
		if err == ErrCancelled {
			return err
		}
	}
	return ErrSyncFailed
}

// DetectChip reads the chip-magic register and resolves the chip family.
// [spec.md §4.4 step 3, S4]
func (s *Session) DetectChip(ctx context.Context) (Chip, error) {
	if s.state != StateSynced && s.state != StateChipKnown {
		return ChipUnknown, ErrNotSynced
	}

	resp, err := s.roundTrip(ctx, espboot.ReadReg(ChipMagicRegister), espboot.OpReadReg, s.timeouts.Command)
	if err != nil {
		return ChipUnknown, err
	}

	chip, ok := ChipFromMagic(resp.Value())
	if !ok {
		return ChipUnknown, ErrUnknownChip
	}
	s.chip = chip
	s.state = StateChipKnown
	return chip, nil
}

// UploadStub resolves the stub descriptor for the detected chip, uploads
// its text and data segments to RAM, and waits for the OHAI handshake.
// [spec.md §4.4 step 4]
func (s *Session) UploadStub(ctx context.Context) error {
	if s.state != StateChipKnown {
		return ErrNotSynced
	}
	if s.stub == nil {
		return ErrStubHandshakeFailed
	}

	descriptor, err := s.stub.Stub(s.chip)
	if err != nil {
		return err
	}

	if err := s.loadToRam(ctx, descriptor.Text, descriptor.TextStart, false); err != nil {
		return err
	}
	if err := s.loadToRam(ctx, descriptor.Data, descriptor.DataStart, false); err != nil {
		return err
	}

	if err := s.write(ctx, espboot.MemEnd(true, descriptor.Entry)); err != nil {
		return err
	}

	if err := s.awaitHello(ctx); err != nil {
		return err
	}

	s.state = StateStubRunning
	return nil
}

// ohai is the stub handshake token: ASCII "OHAI".
var ohai = []byte{0x4F, 0x48, 0x41, 0x49}

func (s *Session) awaitHello(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Handshake)
	defer cancel()

	for {
		select {
		case frame, ok := <-s.frames:
			if !ok {
				return ErrStreamClosed
			}
			if len(frame) == 4 && frame[0] == ohai[0] && frame[1] == ohai[1] && frame[2] == ohai[2] && frame[3] == ohai[3] {
				return nil
			}
		case <-s.sessionDone():
			return ErrCancelled
		case <-ctx.Done():
			return ErrStubHandshakeFailed
		}
	}
}

// sessionDone returns the session-level cancellation channel, or a nil
// channel (which never fires) before Open has run.
func (s *Session) sessionDone() <-chan struct{} {
	if s.ctx == nil {
		return nil
	}
	return s.ctx.Done()
}

// loadToRam splits binary into memChunkSize chunks and uploads them via
// MEM_BEGIN/MEM_DATA[/MEM_END]. [spec.md §4.4 step 5]
func (s *Session) loadToRam(ctx context.Context, binary []byte, offset uint32, execute bool) error {
	numChunks := (len(binary) + memChunkSize - 1) / memChunkSize
	if numChunks == 0 {
		numChunks = 1
	}

	if _, err := s.roundTrip(ctx, espboot.MemBegin(uint32(len(binary)), uint32(numChunks), memChunkSize, offset), espboot.OpMemBegin, s.timeouts.Command); err != nil {
		return err
	}

	for i := 0; i < numChunks; i++ {
		start := i * memChunkSize
		end := start + memChunkSize
		if end > len(binary) {
			end = len(binary)
		}
		chunk := binary[start:end]
		if _, err := s.roundTrip(ctx, espboot.MemData(uint32(i), chunk), espboot.OpMemData, s.timeouts.MemData); err != nil {
			return err
		}
	}

	if execute {
		return s.write(ctx, espboot.MemEnd(true, 0))
	}
	return nil
}

// AttachFlash attaches SPI flash and sets its geometry parameters.
// [spec.md §4.4 step 6]
func (s *Session) AttachFlash(ctx context.Context) error {
	if s.state != StateStubRunning {
		return ErrNotSynced
	}
	if _, err := s.roundTrip(ctx, espboot.SPIAttach(), espboot.OpSpiAttach, s.timeouts.Command); err != nil {
		return err
	}
	if _, err := s.roundTrip(ctx, espboot.SPISetParams(espboot.DefaultSPITotalSize), espboot.OpSpiSetParams, s.timeouts.Command); err != nil {
		return err
	}
	s.state = StateFlashAttached
	return nil
}

// FlashPartition writes one partition's binary in flashBlockSize blocks,
// emitting flash-progress events per block. [spec.md §4.4 step 7]
func (s *Session) FlashPartition(ctx context.Context, p Partition) error {
	if s.state != StateFlashAttached && s.state != StateFlashing {
		return ErrNotSynced
	}
	s.state = StateFlashing

	n := (len(p.Binary) + flashBlockSize - 1) / flashBlockSize
	if n == 0 {
		n = 1
	}

	if _, err := s.roundTrip(ctx, espboot.FlashBegin(uint32(len(p.Binary)), uint32(n), flashBlockSize, p.Offset), espboot.OpFlashBegin, s.timeouts.Command); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		start := i * flashBlockSize
		end := start + flashBlockSize
		if end > len(p.Binary) {
			end = len(p.Binary)
		}
		block := p.Binary[start:end]

		if _, err := s.roundTrip(ctx, espboot.FlashData(uint32(i), flashBlockSize, block), espboot.OpFlashData, s.timeouts.FlashData); err != nil {
			return err
		}
		s.sink.Emit(Event{
			Kind:      EventFlashProgress,
			Progress:  float64(i+1) / float64(n) * 100,
			Partition: p.Name,
		})
	}
	return nil
}

// FlashImage flashes every partition in image, in submission order,
// performing sync/chip-detect/stub-upload/attach-flash first as needed,
// and aggregates per-partition progress into cumulative flash-image-progress
// events. A reset pulse is sent at the end; FLASH_END is never sent because
// the stub exits on reset. [spec.md §4.4 step 8]
func (s *Session) FlashImage(ctx context.Context, image Image) error {
	if s.state == StateDisconnected {
		return ErrNotConnected
	}
	if s.state == StateConnected {
		if err := s.Sync(ctx); err != nil {
			return err
		}
	}
	if s.state == StateSynced {
		if _, err := s.DetectChip(ctx); err != nil {
			return err
		}
	}
	if s.state == StateChipKnown {
		if err := s.UploadStub(ctx); err != nil {
			return err
		}
	}
	if s.state == StateStubRunning {
		if err := s.AttachFlash(ctx); err != nil {
			return err
		}
	}

	var total, written int64
	for _, p := range image.Partitions {
		total += int64(len(p.Binary))
	}

	for _, p := range image.Partitions {
		if err := s.flashPartitionTracked(ctx, p, &written, total); err != nil {
			return err
		}
	}

	s.state = StateIdle
	return s.resetPulse(ctx)
}

// flashPartitionTracked wraps FlashPartition with the cumulative
// flash-image-progress accounting §4.4 step 8 requires, using an explicit
// child observer per partition rather than monkey-patched dispatch.
// [spec.md §9 "Event dispatch monkey-patching... replaced by an explicit
// child observer"]
func (s *Session) flashPartitionTracked(ctx context.Context, p Partition, written *int64, total int64) error {
	outer := s.sink
	child := childSink{
		parent:    outer,
		partition: p.Name,
		before:    *written,
		size:      int64(len(p.Binary)),
		total:     total,
	}
	s.sink = child
	defer func() { s.sink = outer }()

	if err := s.FlashPartition(ctx, p); err != nil {
		return err
	}
	*written += int64(len(p.Binary))
	return nil
}

// childSink relays flash-progress from one partition into both the
// original sink and a cumulative flash-image-progress event.
type childSink struct {
	parent    EventSink
	partition string
	before    int64
	size      int64
	total     int64
}

func (c childSink) Emit(e Event) {
	c.parent.Emit(e)
	if e.Kind != EventFlashProgress || c.total == 0 {
		return
	}
	doneInPartition := e.Progress / 100 * float64(c.size)
	cumulative := (float64(c.before) + doneInPartition) / float64(c.total) * 100
	c.parent.Emit(Event{Kind: EventFlashImageProgress, Progress: cumulative, Partition: c.partition})
}

// Disconnect signals cancellation, closes the port, and resets to
// Disconnected while preserving the port handle. [spec.md §4.4 Disconnect]
func (s *Session) Disconnect() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.reader != nil {
		s.reader.stop()
	}
	err := s.port.Close()
	s.state = StateDisconnected
	s.chip = ChipUnknown
	return err
}

// resetPulse drives the DTR/RTS reset sequence selected by s.strategy.
// [spec.md §6 Reset pulse]
func (s *Session) resetPulse(ctx context.Context) error {
	switch s.strategy {
	case ResetNativeUSB:
		steps := []struct {
			sig SignalState
			d   time.Duration
		}{
			{SignalState{DTR: false, RTS: false}, 100 * time.Millisecond},
			{SignalState{DTR: true, RTS: false}, 200 * time.Millisecond},
			{SignalState{DTR: true, RTS: true}, 200 * time.Millisecond},
			{SignalState{DTR: true, RTS: false}, 200 * time.Millisecond},
			{SignalState{DTR: false, RTS: false}, 100 * time.Millisecond},
		}
		for _, step := range steps {
			if err := s.port.SetSignals(ctx, step.sig); err != nil {
				return err
			}
			sleep(ctx, step.d)
		}
	default:
		if err := s.port.SetSignals(ctx, SignalState{DTR: false, RTS: true}); err != nil {
			return err
		}
		sleep(ctx, 100*time.Millisecond)
		if err := s.port.SetSignals(ctx, SignalState{DTR: true, RTS: false}); err != nil {
			return err
		}
		sleep(ctx, 100*time.Millisecond)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (s *Session) write(ctx context.Context, pkt *espboot.Packet) error {
	frame := slip.Encode(pkt.Encode())
	_, err := s.port.Writable().Write(frame)
	return err
}

// roundTrip writes pkt and waits for its matching response, discarding stray
// or mismatched frames until timeout. [spec.md §4.4 "Response correlation"]
func (s *Session) roundTrip(ctx context.Context, pkt *espboot.Packet, opcode byte, timeout time.Duration) (*espboot.ResponsePacket, error) {
	if err := s.write(ctx, pkt); err != nil {
		return nil, err
	}
	return s.readResponse(ctx, opcode, timeout)
}

func (s *Session) readResponse(ctx context.Context, opcode byte, timeout time.Duration) (*espboot.ResponsePacket, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case frame, ok := <-s.frames:
			if !ok {
				return nil, ErrStreamClosed
			}
			resp, err := espboot.ParseResponse(frame)
			if err != nil {
				// Stray/garbage frames are tolerated; keep waiting.
				continue
			}
			if resp.Opcode != opcode {
				continue
			}
			if !resp.OK() {
				return nil, &DeviceError{Opcode: opcode, Code: resp.ErrorCode}
			}
			return resp, nil
		case <-s.sessionDone():
			return nil, ErrCancelled
		case <-ctx.Done():
			return nil, &TimeoutError{Opcode: opcode, Millis: timeout.Milliseconds()}
		}
	}
}
