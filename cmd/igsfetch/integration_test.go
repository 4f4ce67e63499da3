//go:build integration

package main

import (
	"context"
	"testing"
	"time"

	"github.com/icqmula/descarga-datos-IGS/internal/testutils"
	"github.com/icqmula/descarga-datos-IGS/internal/urlgen"
)

func TestCLIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	target := urlgen.Target{Year: 2024, Day: 160}
	catalog := urlgen.NewCatalog([]string{"RDSD00DOM", "SFDM00USA"}, []string{"SANT00CHL", "AGGO00ARG"})

	var files []testutils.ArchiveFile
	for i, p := range catalog.All(target) {
		files = append(files, testutils.ArchiveFile{
			Path: p,
			Data: testutils.GenerateTestData(int64(64*1024+i), byte(i)),
		})
	}

	t.Log("Starting archive server...")
	archive := testutils.StartArchive(t, files)

	t.Log("Starting Minio container...")
	minio := testutils.StartMinioContainer(t, ctx, "cli-mirror")
	defer func() {
		if err := minio.Close(ctx); err != nil {
			t.Logf("failed to terminate minio container: %v", err)
		}
	}()

	setEnv(t, archive.BaseURL(), false)
	t.Setenv("EARTHDATA_USERNAME", archive.Username)
	t.Setenv("EARTHDATA_PASSWORD", archive.Password)
	t.Setenv("IGSFETCH_MIRROR_PREFIX", "igs")
	root := t.TempDir()

	t.Run("fetch", func(t *testing.T) {
		code, stdout, stderr := runCLI(t, "",
			"fetch", "--root", root, "--date", refDate, "--mirror", minio.BucketURL, "--progress")
		if code != ExitSuccess {
			t.Fatalf("fetch failed with exit code %d: %s", code, stderr)
		}
		t.Log(stdout)
	})

	t.Run("mirror", func(t *testing.T) {
		bkt, err := minio.OpenBucket(ctx)
		if err != nil {
			t.Fatalf("open bucket: %v", err)
		}
		defer bkt.Close()

		for _, name := range stationFiles {
			attrs, err := bkt.Attributes(ctx, "igs/"+name)
			if err != nil {
				t.Fatalf("%s not mirrored: %v", name, err)
			}
			if attrs.Size <= 0 {
				t.Errorf("%s: empty mirrored object", name)
			}
		}
	})

	t.Run("verify", func(t *testing.T) {
		code, stdout, _ := runCLI(t, "", "verify", "--root", root, "--date", refDate)
		if code != ExitSuccess {
			t.Fatalf("verify failed with exit code %d:\n%s", code, stdout)
		}
	})
}
