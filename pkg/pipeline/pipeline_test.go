package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-posecam/pkg/camera"
	"github.com/teslashibe/go-posecam/pkg/display"
	"github.com/teslashibe/go-posecam/pkg/ergonomics"
	"github.com/teslashibe/go-posecam/pkg/pose"
	"github.com/teslashibe/go-posecam/pkg/session"
)

// fakeSource yields black frames. After limit frames Read fails; limit < 0 never fails.
type fakeSource struct {
	limit          int
	width, height  int
	reads          int
	closed         int
	readAfterClose bool
}

func newFakeSource(limit int) *fakeSource {
	return &fakeSource{limit: limit, width: 100, height: 100}
}

func (f *fakeSource) Read(dst *gocv.Mat) error {
	if f.closed > 0 {
		f.readAfterClose = true
		return camera.ErrClosed
	}
	if f.limit >= 0 && f.reads >= f.limit {
		return camera.ErrReadFailed
	}
	f.reads++

	img := gocv.Zeros(f.height, f.width, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.CopyTo(dst)
	return nil
}

func (f *fakeSource) ActualSize() (int, int) { return f.width, f.height }

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

func (f *fakeSource) opener() camera.Opener {
	return func(camera.Config) (camera.Source, error) { return f, nil }
}

// fakeBackend records every Show. onShow runs with the 1-based show count.
type fakeBackend struct {
	onShow  func(n int, frame gocv.Mat) bool
	showErr error
	infos   []display.FrameInfo
	closed  int
}

func (b *fakeBackend) Kind() display.Kind { return display.KindWeb }

func (b *fakeBackend) Show(frame gocv.Mat, info display.FrameInfo) (bool, error) {
	b.infos = append(b.infos, info)
	quit := false
	if b.onShow != nil {
		quit = b.onShow(len(b.infos), frame)
	}
	return quit, b.showErr
}

func (b *fakeBackend) Close() error {
	b.closed++
	return nil
}

// fakeRecorder records session calls.
type fakeRecorder struct {
	started  int
	updates  int
	finished []session.Status
}

func (r *fakeRecorder) Start() error { r.started++; return nil }

func (r *fakeRecorder) Update(int, bool, ergonomics.Assessment) error {
	r.updates++
	return nil
}

func (r *fakeRecorder) Finish(status session.Status, _ int) error {
	r.finished = append(r.finished, status)
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HUD = false
	return cfg
}

func TestRun_ThreeFramesThenInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newFakeSource(-1)
	est := pose.NewMock(pose.StandingPose())
	backend := &fakeBackend{onShow: func(n int, _ gocv.Mat) bool {
		if n == 3 {
			cancel()
		}
		return false
	}}

	res, err := Run(ctx, testConfig(), Deps{Open: src.opener(), Estimator: est, Backend: backend})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != ExitInterrupted {
		t.Errorf("Reason = %v, want interrupted", res.Reason)
	}
	if res.Frames != 3 || res.Detections != 3 {
		t.Errorf("Frames = %d, Detections = %d, want 3 and 3", res.Frames, res.Detections)
	}
	if len(backend.infos) != 3 || est.Calls() != 3 {
		t.Errorf("shows = %d, estimates = %d, want 3 each", len(backend.infos), est.Calls())
	}
	if src.closed != 1 || backend.closed != 1 {
		t.Errorf("source closed %d times, backend closed %d times, want 1 each", src.closed, backend.closed)
	}
	if src.readAfterClose {
		t.Error("source read after close")
	}
	if est.CloseCount() != 0 {
		t.Error("estimator is owned by the caller and must not be closed")
	}

	for i, info := range backend.infos {
		if info.Index != i+1 || !info.Detected || info.Landmarks != pose.NumKeypoints {
			t.Errorf("frame %d info = %+v", i, info)
		}
		if info.Assessment.REBA.Risk == ergonomics.RiskNA {
			t.Errorf("frame %d: expected a REBA score for a detected person", i)
		}
	}
}

func TestRun_EmptyDetectionStillDisplays(t *testing.T) {
	src := newFakeSource(2)
	backend := &fakeBackend{}

	res, err := Run(context.Background(), testConfig(), Deps{
		Open:      src.opener(),
		Estimator: pose.NewMock(nil),
		Backend:   backend,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(backend.infos) != 2 {
		t.Fatalf("shows = %d, want 2", len(backend.infos))
	}
	for _, info := range backend.infos {
		if info.Detected || info.Landmarks != 0 {
			t.Errorf("info = %+v, want no detection", info)
		}
		if info.Assessment.REBA.Risk != ergonomics.RiskNA || info.Assessment.RULA.Risk != ergonomics.RiskNA {
			t.Errorf("assessment = %+v, want N/A", info.Assessment)
		}
	}
	if res.Reason != ExitReadFailed || res.Detections != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_EstimatorErrorIsNoPerson(t *testing.T) {
	src := newFakeSource(1)
	est := &pose.Mock{EstimateFunc: func(gocv.Mat) (*pose.Pose, error) {
		return nil, pose.ErrUnexpectedOutput
	}}
	backend := &fakeBackend{}

	res, err := Run(context.Background(), testConfig(), Deps{Open: src.opener(), Estimator: est, Backend: backend})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(backend.infos) != 1 || backend.infos[0].Detected {
		t.Errorf("infos = %+v, want one frame without a person", backend.infos)
	}
	if res.Detections != 0 {
		t.Errorf("Detections = %d, want 0", res.Detections)
	}
}

func TestRun_ReadFailureEndsWithinOneIteration(t *testing.T) {
	src := newFakeSource(0)
	backend := &fakeBackend{}
	est := pose.NewMock(pose.StandingPose())

	res, err := Run(context.Background(), testConfig(), Deps{Open: src.opener(), Estimator: est, Backend: backend})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Reason != ExitReadFailed {
		t.Errorf("Reason = %v, want read_failed", res.Reason)
	}
	if len(backend.infos) != 0 || est.Calls() != 0 {
		t.Errorf("shows = %d, estimates = %d, want 0", len(backend.infos), est.Calls())
	}
	if src.closed != 1 || backend.closed != 1 {
		t.Errorf("source closed %d, backend closed %d, want 1 each", src.closed, backend.closed)
	}
}

func TestRun_OpenFailure(t *testing.T) {
	backend := &fakeBackend{}
	est := pose.NewMock(pose.StandingPose())
	rec := &fakeRecorder{}

	_, err := Run(context.Background(), testConfig(), Deps{
		Open: func(camera.Config) (camera.Source, error) {
			return nil, errors.New("no such device")
		},
		Estimator: est,
		Backend:   backend,
		Recorder:  rec,
	})

	if !errors.Is(err, camera.ErrOpenFailed) {
		t.Fatalf("error = %v, want ErrOpenFailed", err)
	}
	if len(backend.infos) != 0 || est.Calls() != 0 {
		t.Error("streaming must not start when the camera cannot be opened")
	}
	if backend.closed != 1 {
		t.Errorf("backend closed %d times, want 1", backend.closed)
	}
	if rec.started != 0 {
		t.Error("session started without a camera")
	}
}

func TestRun_QuitFromBackend(t *testing.T) {
	src := newFakeSource(-1)
	backend := &fakeBackend{onShow: func(n int, _ gocv.Mat) bool { return n == 2 }}

	res, err := Run(context.Background(), testConfig(), Deps{
		Open:      src.opener(),
		Estimator: pose.NewMock(nil),
		Backend:   backend,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ExitQuit || res.Frames != 2 {
		t.Errorf("result = %+v, want quit after 2 frames", res)
	}
	if src.reads != 2 {
		t.Errorf("reads = %d, want 2", src.reads)
	}
}

func TestRun_DisplayErrorDoesNotStop(t *testing.T) {
	src := newFakeSource(3)
	backend := &fakeBackend{showErr: display.ErrEmptyFrame}

	res, err := Run(context.Background(), testConfig(), Deps{
		Open:      src.opener(),
		Estimator: pose.NewMock(nil),
		Backend:   backend,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Frames != 3 || res.Reason != ExitReadFailed {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newFakeSource(-1)
	backend := &fakeBackend{}

	res, err := Run(ctx, testConfig(), Deps{Open: src.opener(), Estimator: pose.NewMock(nil), Backend: backend})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ExitInterrupted || src.reads != 0 {
		t.Errorf("result = %+v, reads = %d", res, src.reads)
	}
	if src.closed != 1 || backend.closed != 1 {
		t.Error("shutdown must run on interrupt")
	}
}

func TestRun_MissingDependency(t *testing.T) {
	backend := &fakeBackend{}
	_, err := Run(context.Background(), testConfig(), Deps{Backend: backend})
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("error = %v, want ErrMissingDependency", err)
	}
	if backend.closed != 1 {
		t.Error("backend should be released when dependencies are missing")
	}
}

func TestRun_RecordsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &fakeRecorder{}
	backend := &fakeBackend{onShow: func(n int, _ gocv.Mat) bool {
		if n == 4 {
			cancel()
		}
		return false
	}}

	_, err := Run(ctx, testConfig(), Deps{
		Open:      newFakeSource(-1).opener(),
		Estimator: pose.NewMock(pose.StandingPose()),
		Backend:   backend,
		Recorder:  rec,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rec.started != 1 || rec.updates != 4 {
		t.Errorf("started = %d, updates = %d", rec.started, rec.updates)
	}
	if len(rec.finished) != 1 || rec.finished[0] != session.StatusInterrupted {
		t.Errorf("finished = %v, want [interrupted]", rec.finished)
	}
}

func TestRun_DrawsSkeletonBeforeDisplay(t *testing.T) {
	var hip gocv.Vecb
	backend := &fakeBackend{onShow: func(_ int, frame gocv.Mat) bool {
		hip = frame.GetVecbAt(55, 50)
		return true
	}}

	_, err := Run(context.Background(), testConfig(), Deps{
		Open:      newFakeSource(-1).opener(),
		Estimator: pose.NewMock(pose.StandingPose()),
		Backend:   backend,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Hip to hip connection crosses (50, 55) in magenta, stored as BGR
	if hip[0] != 255 || hip[1] != 0 || hip[2] != 255 {
		t.Errorf("pixel between hips = %v, want magenta", hip)
	}
}

func TestRun_PanicRecordsInterruptedSession(t *testing.T) {
	src := newFakeSource(-1)
	backend := &fakeBackend{}
	rec := &fakeRecorder{}
	est := &pose.Mock{EstimateFunc: func(gocv.Mat) (*pose.Pose, error) {
		panic("model exploded")
	}}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("panic should propagate to the caller")
			}
		}()
		Run(context.Background(), testConfig(), Deps{
			Open:      src.opener(),
			Estimator: est,
			Backend:   backend,
			Recorder:  rec,
		})
	}()

	if len(rec.finished) != 1 || rec.finished[0] != session.StatusInterrupted {
		t.Errorf("finished = %v, want [interrupted]", rec.finished)
	}
	if src.closed != 1 || backend.closed != 1 {
		t.Errorf("source closed %d, backend closed %d, want 1 each", src.closed, backend.closed)
	}
}

func TestRun_LogsStateTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(context.Background(), testConfig(), Deps{
		Open:      newFakeSource(1).opener(),
		Estimator: pose.NewMock(nil),
		Backend:   &fakeBackend{},
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := buf.String()
	last := -1
	for _, want := range []string{
		"from=init state=open_device",
		"from=open_device state=streaming",
		"from=streaming state=shutdown",
	} {
		i := strings.Index(out, want)
		if i < 0 {
			t.Fatalf("log missing %q:\n%s", want, out)
		}
		if i < last {
			t.Errorf("%q logged out of order", want)
		}
		last = i
	}
}

func TestRun_ReportsGrantedSize(t *testing.T) {
	src := newFakeSource(1)
	src.width, src.height = 320, 240

	cfg := testConfig()
	cfg.Camera.Width, cfg.Camera.Height = 1280, 720

	res, err := Run(context.Background(), cfg, Deps{
		Open:      src.opener(),
		Estimator: pose.NewMock(nil),
		Backend:   &fakeBackend{},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Width != 320 || res.Height != 240 {
		t.Errorf("size = %dx%d, want the granted 320x240", res.Width, res.Height)
	}
}

func TestFPSCounter(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	c := newFPSCounter(func() time.Time { return now })

	var fps float64
	for i := 0; i < 4; i++ {
		fps = c.tick()
		now = now.Add(250 * time.Millisecond)
	}
	if fps != 0 {
		t.Errorf("fps before one second = %v, want 0", fps)
	}

	if fps = c.tick(); fps != 5 {
		t.Errorf("fps after first second = %v, want 5", fps)
	}

	for i := 0; i < 4; i++ {
		now = now.Add(250 * time.Millisecond)
		fps = c.tick()
	}
	if fps != 4 {
		t.Errorf("fps after second second = %v, want 4", fps)
	}
}

func TestExitReason(t *testing.T) {
	tests := []struct {
		reason ExitReason
		name   string
		status session.Status
	}{
		{ExitQuit, "quit", session.StatusCompleted},
		{ExitInterrupted, "interrupted", session.StatusInterrupted},
		{ExitReadFailed, "read_failed", session.StatusReadFailed},
	}
	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.reason.SessionStatus(); got != tt.status {
			t.Errorf("%s: SessionStatus() = %q, want %q", tt.name, got, tt.status)
		}
	}
	if StateStreaming.String() != "streaming" {
		t.Errorf("StateStreaming = %q", StateStreaming)
	}
}

func TestScoreLine(t *testing.T) {
	if got := scoreLine("REBA", ergonomics.Score{Risk: ergonomics.RiskNA}); got != "REBA: N/A" {
		t.Errorf("got %q", got)
	}
	got := scoreLine("RULA", ergonomics.Score{Score: 5, Risk: ergonomics.RiskInvestigate})
	if got != "RULA: 5 (Investigate)" {
		t.Errorf("got %q", got)
	}
}
