//go:build integration

package fetcher_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "gocloud.dev/blob/s3blob"

	"github.com/icqmula/descarga-datos-IGS/internal/fetcher"
	igshttp "github.com/icqmula/descarga-datos-IGS/internal/http"
	"github.com/icqmula/descarga-datos-IGS/internal/logging"
	"github.com/icqmula/descarga-datos-IGS/internal/mirror"
	"github.com/icqmula/descarga-datos-IGS/internal/testutils"
	"github.com/icqmula/descarga-datos-IGS/internal/urlgen"
)

func TestIntegrationFetchAndMirrorToMinio(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	target := urlgen.Target{Year: 2024, Day: 150}
	catalog := urlgen.NewCatalog([]string{"RDSD00DOM", "SFDM00USA"}, []string{"SANT00CHL"})
	paths := catalog.All(target)

	var files []testutils.ArchiveFile
	for i, p := range paths {
		files = append(files, testutils.ArchiveFile{
			Path: p,
			Data: testutils.GenerateTestData(int64(256*1024+i*4096), byte(i)),
		})
	}

	t.Log("Starting archive server...")
	archive := testutils.StartArchive(t, files)
	archive.Truncate(paths[1], 2)

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "igs-mirror")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	m, err := mirror.Open(ctx, minio.BucketURL, "daily/2024/150")
	if err != nil {
		t.Fatalf("open mirror: %v", err)
	}
	defer m.Close()

	client := igshttp.NewClient(igshttp.Options{
		Username: archive.Username,
		Password: archive.Password,
		Timeout:  time.Minute,
	})
	root := filepath.Join(t.TempDir(), "igs")
	f := fetcher.New(client, fetcher.Options{
		BaseURL:   archive.BaseURL(),
		LocalRoot: root,
		ChunkSize: 32 * 1024,
		Mirror:    m,
		Logger:    logging.Discard(),
	})
	if err := f.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	summary := f.Run(ctx, paths)
	if !summary.OK() || summary.Downloaded != len(paths) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := summary.Results[1].Attempts; got != 3 {
		t.Errorf("expected 3 attempts for truncated file, got %d", got)
	}
	if got := archive.Gets(paths[1]); got != 3 {
		t.Errorf("expected 3 GETs for truncated file, got %d", got)
	}

	bkt, err := minio.OpenBucket(ctx)
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bkt.Close()

	for i, r := range summary.Results {
		if !r.Mirrored {
			t.Errorf("%s: not mirrored", r.Path)
			continue
		}
		local, err := os.ReadFile(r.Local)
		if err != nil {
			t.Fatalf("read %s: %v", r.Local, err)
		}
		testutils.CompareReaderToData(t, bytes.NewReader(local), files[i].Data)

		reader, err := bkt.NewReader(ctx, m.Key(filepath.Base(r.Local)), nil)
		if err != nil {
			t.Fatalf("open mirrored object: %v", err)
		}
		testutils.CompareReaderToData(t, reader, files[i].Data)
		reader.Close()
	}

	// A second run finds everything in place and uploads nothing new.
	second := f.Run(ctx, paths)
	if second.Satisfied != len(paths) {
		t.Errorf("expected all files satisfied, got %+v", second)
	}
	for _, p := range paths {
		if got := archive.Gets(p); got > 3 {
			t.Errorf("%s: unexpected extra GETs (%d)", p, got)
		}
	}
}
