package queue

import (
	"context"
	"encoding/csv"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/aliskhannn/catalog-studio/internal/archive"
	"github.com/aliskhannn/catalog-studio/internal/model"
	"github.com/aliskhannn/catalog-studio/internal/naming"
	"github.com/aliskhannn/catalog-studio/internal/processor"
	"github.com/aliskhannn/catalog-studio/internal/storage/file"
)

func studioConfig() model.ProcessingConfig {
	return model.ProcessingConfig{
		Width:            120,
		Height:           120,
		Margin:           10,
		Shadow:           true,
		WatermarkOpacity: 0.08,
		WatermarkScale:   0.4,
		ExportJPG:        true,
		ExportPNG:        true,
		JPEGQuality:      92,
		ProductType:      "custom hat",
		Template:         "{product}-{colors}-{timestamp}",
		TimestampLayout:  naming.DefaultTimestampLayout,
		BaseTags:         processor.DefaultBaseTags,
		MoveOriginals:    true,
	}
}

func writeImage(t *testing.T, path string, c color.NRGBA) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.SetNRGBA(x, y, c)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func readManifest(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	return rows
}

func TestRunQueue_IsolatesFailures(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in")
	out := filepath.Join(tmp, "out")
	for _, d := range []string{in, out} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	writeImage(t, filepath.Join(in, "1.png"), color.NRGBA{0, 0, 0, 255})
	if err := os.WriteFile(filepath.Join(in, "2.png"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write broken: %v", err)
	}
	writeImage(t, filepath.Join(in, "3.png"), color.NRGBA{220, 20, 60, 255})

	q := New()
	if _, err := q.Enqueue(filepath.Join(in, "1.png"), filepath.Join(in, "2.png"), filepath.Join(in, "3.png")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	p := processor.New(studioConfig(), file.NewStorage(), nil)
	rep, err := NewOrchestrator(p, "km2_manifest").RunQueue(context.Background(), q, out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if rep.Total != 3 || rep.Succeeded() != 2 {
		t.Fatalf("expected 2/3 succeeded, got %d/%d", rep.Succeeded(), rep.Total)
	}
	if len(rep.Failures) != 1 || rep.Failures[0].Original != "2.png" {
		t.Fatalf("expected failure for 2.png, got %+v", rep.Failures)
	}
	if !strings.Contains(rep.Failures[0].Reason, processor.ErrImageDecode.Error()) {
		t.Fatalf("expected decode failure, got %q", rep.Failures[0].Reason)
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue to be cleared, got %d", q.Len())
	}

	rows := readManifest(t, rep.ManifestPath)
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %v", rows)
	}
	// Background removal is off, so there is no transparent_png column.
	if len(rows[0]) != 4 {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "1.png" || rows[2][0] != "3.png" {
		t.Fatalf("unexpected row order: %v", rows)
	}

	for _, row := range rows[1:] {
		if _, err := os.Stat(filepath.Join(out, row[1])); err != nil {
			t.Fatalf("manifest names %s but file is missing: %v", row[1], err)
		}
		if !strings.Contains(row[3], "|") {
			t.Fatalf("expected pipe-joined tags, got %q", row[3])
		}
	}

	pngs, _ := filepath.Glob(filepath.Join(out, "*.png"))
	if len(pngs) != 0 {
		t.Fatalf("expected no png outputs, got %v", pngs)
	}

	archived := filepath.Join(out, DefaultArchiveFolder)
	for _, name := range []string{"1.png", "3.png"} {
		if _, err := os.Stat(filepath.Join(archived, name)); err != nil {
			t.Fatalf("expected %s archived: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(in, "2.png")); err != nil {
		t.Fatalf("expected failed original to stay in place: %v", err)
	}
	if rep.Moved != 2 {
		t.Fatalf("expected 2 moved, got %d", rep.Moved)
	}
}

func TestRun_InvalidOutputDir(t *testing.T) {
	q := New()
	src := filepath.Join(t.TempDir(), "a.png")
	writeImage(t, src, color.NRGBA{0, 0, 0, 255})
	if _, err := q.Enqueue(src); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	p := processor.New(studioConfig(), file.NewStorage(), nil)
	_, err := NewOrchestrator(p, "m").RunQueue(context.Background(), q, filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrOutputDir) {
		t.Fatalf("expected ErrOutputDir, got %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("expected queue to be kept after a run-level error, got %d", q.Len())
	}
}

func TestRun_LockedOutputDir(t *testing.T) {
	out := t.TempDir()

	held := flock.New(filepath.Join(out, lockFile))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: %v %v", ok, err)
	}
	defer held.Unlock()

	p := processor.New(studioConfig(), file.NewStorage(), nil)
	if _, err := NewOrchestrator(p, "m").Run(context.Background(), nil, out); !errors.Is(err, ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
}

// fakeProcessor records calls and fails for paths listed in fail.
type fakeProcessor struct {
	cfg   model.ProcessingConfig
	fail  map[string]bool
	calls []string
}

func (f *fakeProcessor) Process(_ context.Context, path, _ string) (model.ProcessRecord, error) {
	f.calls = append(f.calls, path)
	if f.fail[path] {
		return model.ProcessRecord{}, errors.New("boom")
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return model.ProcessRecord{
		Original: filepath.Base(path),
		JPG:      base + ".jpg",
		PNG:      base + ".png",
		Tags:     []string{"a", "b"},
	}, nil
}

func (f *fakeProcessor) Config() model.ProcessingConfig { return f.cfg }
func (f *fakeProcessor) RemoverAvailable() bool         { return true }

type recordingPublisher struct{ events []model.ProcessedEvent }

func (r *recordingPublisher) Publish(_ context.Context, e model.ProcessedEvent) error {
	r.events = append(r.events, e)
	return nil
}

type recordingUploader struct {
	runID string
	names []string
}

func (r *recordingUploader) Upload(_ context.Context, runID, _ string, names []string) error {
	r.runID = runID
	r.names = names
	return errors.New("bucket unreachable")
}

func TestRun_HooksAndDuplicates(t *testing.T) {
	out := t.TempDir()

	cfg := studioConfig()
	cfg.MoveOriginals = false
	cfg.RemoveBackground = true

	fp := &fakeProcessor{cfg: cfg, fail: map[string]bool{"/in/bad.png": true}}
	pub := &recordingPublisher{}
	up := &recordingUploader{}

	at := time.Date(2025, 10, 30, 12, 54, 7, 0, time.Local)
	o := NewOrchestrator(fp, "km2_manifest").WithEvents(pub).WithUploader(up).WithClock(func() time.Time { return at })

	rep, err := o.Run(context.Background(), []string{"/in/a.png", "/in/bad.png", "/in/a.png"}, out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fp.calls) != 3 {
		t.Fatalf("expected duplicates to be processed, got calls %v", fp.calls)
	}
	if filepath.Base(rep.ManifestPath) != "km2_manifest_20251030-125407.csv" {
		t.Fatalf("unexpected manifest name %s", rep.ManifestPath)
	}

	rows := readManifest(t, rep.ManifestPath)
	if len(rows) != 3 || len(rows[0]) != 5 || rows[0][4] != "transparent_png" {
		t.Fatalf("unexpected manifest %v", rows)
	}
	if rows[1][4] != "a.png" || rows[1][3] != "a|b" {
		t.Fatalf("unexpected row %v", rows[1])
	}

	if len(pub.events) != 2 || pub.events[0].RunID != rep.RunID {
		t.Fatalf("unexpected events %+v", pub.events)
	}
	if up.runID != rep.RunID {
		t.Fatalf("uploader got run id %q, want %q", up.runID, rep.RunID)
	}
	wantNames := []string{"a.jpg", "a.png", "a.jpg", "a.png", "km2_manifest_20251030-125407.csv"}
	if strings.Join(up.names, ",") != strings.Join(wantNames, ",") {
		t.Fatalf("unexpected uploaded names %v", up.names)
	}
}

func TestRun_EmptyQueueWritesHeader(t *testing.T) {
	out := t.TempDir()
	cfg := studioConfig()

	rep, err := NewOrchestrator(&fakeProcessor{cfg: cfg}, "m").Run(context.Background(), nil, out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if rows := readManifest(t, rep.ManifestPath); len(rows) != 1 {
		t.Fatalf("expected header only, got %v", rows)
	}
}

func TestRun_ArchiveFailureKeepsItem(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	src := filepath.Join(in, "hat.png")
	writeImage(t, src, color.NRGBA{0, 0, 0, 255})

	// A directory named like the original blocks the move.
	blocker := filepath.Join(out, DefaultArchiveFolder, "hat.png")
	if err := os.MkdirAll(blocker, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(blocker, "keep"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := studioConfig()
	rep, err := NewOrchestrator(&fakeProcessor{cfg: cfg}, "m").Run(context.Background(), []string{src}, out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if rep.Succeeded() != 1 || len(rep.Failures) != 0 {
		t.Fatalf("expected the item to succeed, got %d ok, failures %+v", rep.Succeeded(), rep.Failures)
	}
	if len(rep.ArchiveErrors) != 1 || rep.ArchiveErrors[0].Original != "hat.png" {
		t.Fatalf("expected one archive error, got %+v", rep.ArchiveErrors)
	}
	if !strings.Contains(rep.ArchiveErrors[0].Reason, archive.ErrArchiveMove.Error()) {
		t.Fatalf("unexpected archive error %q", rep.ArchiveErrors[0].Reason)
	}
	if rep.Moved != 0 {
		t.Fatalf("expected nothing moved, got %d", rep.Moved)
	}

	rows := readManifest(t, rep.ManifestPath)
	if len(rows) != 2 || rows[1][0] != "hat.png" {
		t.Fatalf("expected the manifest row to be kept, got %v", rows)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected original to stay in place: %v", err)
	}
}
