package recovery_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"albumsync/internal/library"
	"albumsync/internal/recovery"
	"albumsync/internal/retry"
	"albumsync/internal/services"
	"albumsync/internal/testsupport"
)

type fakeCollaborator struct {
	calls   [][]string
	recover func(ctx context.Context, dir string, ids []string) (recovery.Outcome, error)
}

func (f *fakeCollaborator) Recover(ctx context.Context, dir string, ids []string, _ string) (recovery.Outcome, error) {
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.recover == nil {
		return recovery.Outcome{}, nil
	}
	return f.recover(ctx, dir, ids)
}

// produceAll writes "<id>.jpg" for every requested id.
func produceAll(t *testing.T) func(context.Context, string, []string) (recovery.Outcome, error) {
	return func(_ context.Context, dir string, ids []string) (recovery.Outcome, error) {
		for _, id := range ids {
			testsupport.WriteFile(t, filepath.Join(dir, id+".jpg"), 4)
		}
		return recovery.Outcome{}, nil
	}
}

type fakeTransfer struct {
	paths []string
	names []string
	fail  map[string]error
}

func (f *fakeTransfer) TransferAs(_ context.Context, localPath, name, _ string) (bool, error) {
	f.paths = append(f.paths, localPath)
	f.names = append(f.names, name)
	if err, ok := f.fail[filepath.Base(localPath)]; ok {
		return false, err
	}
	return true, nil
}

type memoryRecorder struct {
	rows map[string]bool
	err  error
}

func (m *memoryRecorder) RecordSynced(_ context.Context, itemID, destination string) error {
	if m.err != nil {
		return m.err
	}
	if m.rows == nil {
		m.rows = make(map[string]bool)
	}
	m.rows[destination+"/"+itemID] = true
	return nil
}

func items(n int) []library.Item {
	out := make([]library.Item, n)
	for i := range out {
		out[i] = library.Item{ID: fmt.Sprintf("id-%03d", i), Filename: fmt.Sprintf("IMG_%03d.JPG", i)}
	}
	return out
}

func TestChunksPartitionsInOrder(t *testing.T) {
	chunks := recovery.Chunks(items(120), 50)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, want := range []int{50, 50, 20} {
		if len(chunks[i]) != want {
			t.Fatalf("chunk %d: got %d want %d", i, len(chunks[i]), want)
		}
	}
	if chunks[1][0].ID != "id-050" || chunks[2][19].ID != "id-119" {
		t.Fatal("expected chunks to preserve item order")
	}
	if recovery.Chunks(nil, 50) != nil {
		t.Fatal("expected no chunks for empty input")
	}
}

func TestRunInvokesCollaboratorPerChunk(t *testing.T) {
	collab := &fakeCollaborator{}
	collab.recover = produceAll(t)
	transfer := &fakeTransfer{}
	recorder := &memoryRecorder{}
	dir := t.TempDir()

	rec := recovery.New(collab, transfer, recorder)
	report, err := rec.Run(context.Background(), recovery.Batch{
		Destination: "Trip", DestinationID: "album-1", Items: items(120), OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(collab.calls) != 3 || len(collab.calls[0]) != 50 || len(collab.calls[1]) != 50 || len(collab.calls[2]) != 20 {
		t.Fatalf("unexpected chunk sizes %d", len(collab.calls))
	}
	if report.Synced != 120 || len(recorder.rows) != 120 {
		t.Fatalf("expected all items synced, got %+v rows=%d", report, len(recorder.rows))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected output dir to be cleaned, found %d files", len(entries))
	}
}

func TestRunSkipsTimedOutChunk(t *testing.T) {
	calls := 0
	collab := &fakeCollaborator{}
	collab.recover = func(ctx context.Context, dir string, ids []string) (recovery.Outcome, error) {
		calls++
		if calls == 1 {
			testsupport.WriteFile(t, filepath.Join(dir, ids[0]+".jpg"), 4)
			<-ctx.Done()
			return recovery.Outcome{}, ctx.Err()
		}
		return produceAll(t)(ctx, dir, ids)
	}
	transfer := &fakeTransfer{}
	recorder := &memoryRecorder{}
	dir := t.TempDir()

	rec := recovery.New(collab, transfer, recorder, recovery.WithChunkSize(2), recovery.WithTimeout(20*time.Millisecond))
	report, err := rec.Run(context.Background(), recovery.Batch{
		Destination: "Trip", DestinationID: "album-1", Items: items(3), OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("timeout must not be fatal: %v", err)
	}
	if report.TimedOutChunks != 1 || report.Skipped != 2 || report.Synced != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if recorder.rows["Trip/id-000"] || recorder.rows["Trip/id-001"] {
		t.Fatal("timed-out items must stay out of the ledger")
	}
	if _, err := os.Stat(filepath.Join(dir, "id-000.jpg")); !os.IsNotExist(err) {
		t.Fatal("expected partial output of timed-out chunk to be removed")
	}
}

func TestRunAuthorizationFailureIsFatal(t *testing.T) {
	collab := &fakeCollaborator{}
	collab.recover = func(context.Context, string, []string) (recovery.Outcome, error) {
		return recovery.Outcome{Stderr: "Error: could not get authorization to access Photos", ExitCode: 1}, nil
	}
	rec := recovery.New(collab, &fakeTransfer{}, &memoryRecorder{}, recovery.WithChunkSize(2))
	_, err := rec.Run(context.Background(), recovery.Batch{Destination: "Trip", Items: items(5), OutputDir: t.TempDir()})
	if !errors.Is(err, recovery.ErrLibraryUnauthorized) || !errors.Is(err, services.ErrAuthorization) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("expected fatal classification")
	}
	if !strings.Contains(err.Error(), "Privacy & Security") {
		t.Fatalf("expected remediation text, got %q", err.Error())
	}
	if len(collab.calls) != 1 {
		t.Fatalf("expected run to halt after first chunk, got %d calls", len(collab.calls))
	}
}

func TestRunSkipsOtherFailures(t *testing.T) {
	calls := 0
	collab := &fakeCollaborator{}
	collab.recover = func(ctx context.Context, dir string, ids []string) (recovery.Outcome, error) {
		calls++
		switch calls {
		case 1:
			return recovery.Outcome{Stderr: "network unreachable", ExitCode: 2}, nil
		case 2:
			return recovery.Outcome{}, errors.New("exec: not found")
		}
		return produceAll(t)(ctx, dir, ids)
	}
	rec := recovery.New(collab, &fakeTransfer{}, &memoryRecorder{}, recovery.WithChunkSize(1))
	report, err := rec.Run(context.Background(), recovery.Batch{Destination: "Trip", Items: items(3), OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.SkippedChunks != 2 || report.Synced != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunTransfersFirstFileAndCleansUp(t *testing.T) {
	collab := &fakeCollaborator{}
	collab.recover = func(_ context.Context, dir string, ids []string) (recovery.Outcome, error) {
		testsupport.WriteFile(t, filepath.Join(dir, "id-000.heic"), 4)
		testsupport.WriteFile(t, filepath.Join(dir, "id-000.mov"), 4)
		testsupport.WriteFile(t, filepath.Join(dir, "id-001.jpg"), 4)
		testsupport.WriteFile(t, filepath.Join(dir, "id-002.jpg"), 4)
		return recovery.Outcome{}, nil
	}
	transfer := &fakeTransfer{fail: map[string]error{
		"id-001.jpg": fmt.Errorf("upload: %w", retry.ErrExhausted),
		"id-002.jpg": errors.New("commit rejected"),
	}}
	recorder := &memoryRecorder{}
	dir := t.TempDir()

	rec := recovery.New(collab, transfer, recorder)
	report, err := rec.Run(context.Background(), recovery.Batch{
		Destination: "Trip", DestinationID: "album-1", Items: items(4), OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Synced != 1 || report.Unresolved != 1 || report.Failed != 1 || report.StillMissing != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(transfer.paths) != 3 || filepath.Base(transfer.paths[0]) != "id-000.heic" {
		t.Fatalf("expected first produced file to be transferred, got %v", transfer.paths)
	}
	if transfer.names[0] != "IMG_000.JPG" {
		t.Fatalf("expected the library filename on the remote copy, got %q", transfer.names[0])
	}
	if !recorder.rows["Trip/id-000"] || recorder.rows["Trip/id-001"] {
		t.Fatalf("unexpected ledger rows %v", recorder.rows)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected every produced file removed, found %d", len(entries))
	}
}

func TestRunLedgerFailureIsFatal(t *testing.T) {
	collab := &fakeCollaborator{}
	collab.recover = produceAll(t)
	recorder := &memoryRecorder{err: services.Wrap(services.ErrLedger, "ledger", "record", "id-000", errors.New("disk full"))}
	rec := recovery.New(collab, &fakeTransfer{}, recorder)
	_, err := rec.Run(context.Background(), recovery.Batch{Destination: "Trip", Items: items(2), OutputDir: t.TempDir()})
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal ledger error, got %v", err)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	collab := &fakeCollaborator{}
	rec := recovery.New(collab, &fakeTransfer{}, &memoryRecorder{})
	_, err := rec.Run(ctx, recovery.Batch{Destination: "Trip", Items: items(2), OutputDir: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(collab.calls) != 0 {
		t.Fatal("expected no collaborator call after cancellation")
	}
}

func TestNoopCollaboratorLeavesItemsMissing(t *testing.T) {
	rec := recovery.New(recovery.NoopCollaborator{}, &fakeTransfer{}, &memoryRecorder{})
	report, err := rec.Run(context.Background(), recovery.Batch{Destination: "Trip", Items: items(2), OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.StillMissing != 2 {
		t.Fatalf("expected still missing items, got %+v", report)
	}
}
