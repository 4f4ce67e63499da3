//go:build integration

// Package testutils provides shared test infrastructure for integration tests.
package testutils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/blob"
)

// ArchiveFile is a file served by the test archive, keyed by its path
// relative to the archive root.
type ArchiveFile struct {
	Path string
	Data []byte
}

// GenerateTestData generates deterministic test data of the given size.
func GenerateTestData(size int64, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i%256) ^ seed
	}
	return data
}

// Archive is a test HTTP server that behaves like the daily GNSS archive:
// Basic auth, HEAD with Content-Length, and whole-file GETs.
type Archive struct {
	*httptest.Server

	// Username and Password are the accepted credentials.
	Username string
	Password string

	mu    sync.Mutex
	files map[string][]byte
	cuts  map[string]int
	gets  map[string]int
}

// StartArchive starts an archive serving files under /daily/.
func StartArchive(t *testing.T, files []ArchiveFile) *Archive {
	t.Helper()

	a := &Archive{
		Username: "tester",
		Password: "s3cret",
		files:    make(map[string][]byte),
		cuts:     make(map[string]int),
		gets:     make(map[string]int),
	}
	for _, f := range files {
		a.files[f.Path] = f.Data
	}
	a.Server = httptest.NewServer(http.HandlerFunc(a.serve))
	t.Cleanup(a.Close)
	return a
}

// BaseURL is the archive root to configure the fetcher with.
func (a *Archive) BaseURL() string {
	return a.URL + "/daily/"
}

// Truncate makes the next n GETs of path stop halfway through the body.
func (a *Archive) Truncate(path string, n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cuts[path] = n
}

// Gets returns how many GET requests path has received.
func (a *Archive) Gets(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gets[path]
}

func (a *Archive) serve(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != a.Username || pass != a.Password {
		w.Header().Set("WWW-Authenticate", `Basic realm="archive"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/daily/")

	a.mu.Lock()
	data, ok := a.files[path]
	cut := false
	if r.Method == http.MethodGet {
		a.gets[path]++
		if a.cuts[path] > 0 {
			a.cuts[path]--
			cut = true
		}
	}
	a.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if r.Method == http.MethodHead {
		return
	}
	if cut {
		w.Write(data[:len(data)/2])
		return
	}
	w.Write(data)
}

// MinioEnv is a running MinIO server holding one empty bucket.
type MinioEnv struct {
	Container testcontainers.Container
	// BucketURL opens the bucket through gocloud's s3blob driver.
	BucketURL string
}

func (e *MinioEnv) Close(ctx context.Context) error {
	return e.Container.Terminate(ctx)
}

func (e *MinioEnv) OpenBucket(ctx context.Context) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, e.BucketURL)
}

// StartMinioContainer runs MinIO with bucket already created and exports
// the root credentials as AWS_* variables for the test.
func StartMinioContainer(t *testing.T, ctx context.Context, bucket string) *MinioEnv {
	t.Helper()

	const user, pass = "minioadmin", "minioadmin"

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"MINIO_ROOT_USER": user, "MINIO_ROOT_PASSWORD": pass},
			Cmd:          []string{"server", "/data"},
			WaitingFor:   wait.ForHTTP("/minio/health/ready").WithPort("9000"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio: %v", err)
	}
	env := &MinioEnv{Container: c}

	// The server image ships mc, so the bucket is made in place.
	script := fmt.Sprintf("mc alias set local http://127.0.0.1:9000 %s %s && mc mb --ignore-existing local/%s", user, pass, bucket)
	code, out, err := c.Exec(ctx, []string{"sh", "-c", script})
	if err != nil || code != 0 {
		var msg []byte
		if out != nil {
			msg, _ = io.ReadAll(out)
		}
		env.Close(ctx)
		t.Fatalf("create bucket %s: exit %d: %v %s", bucket, code, err, msg)
	}

	endpoint, err := c.PortEndpoint(ctx, "9000/tcp", "http")
	if err != nil {
		env.Close(ctx)
		t.Fatalf("minio endpoint: %v", err)
	}
	env.BucketURL = fmt.Sprintf("s3://%s?endpoint=%s&use_path_style=true&disable_https=true&region=us-east-1", bucket, endpoint)

	t.Setenv("AWS_ACCESS_KEY_ID", user)
	t.Setenv("AWS_SECRET_ACCESS_KEY", pass)
	return env
}

// CompareReaderToData compares reader output with expected data in chunks.
func CompareReaderToData(t *testing.T, reader io.Reader, expected []byte) {
	t.Helper()

	buf := make([]byte, 64*1024)
	offset := 0

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if offset+n > len(expected) {
				t.Fatalf("read more data than expected: offset=%d, n=%d, expected len=%d",
					offset, n, len(expected))
			}
			if !bytes.Equal(buf[:n], expected[offset:offset+n]) {
				t.Fatalf("data mismatch at offset %d", offset)
			}
			offset += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read error at offset %d: %v", offset, err)
		}
	}

	if offset != len(expected) {
		t.Fatalf("incomplete read: got %d bytes, want %d", offset, len(expected))
	}
}
