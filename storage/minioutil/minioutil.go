package minioutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/minio/madmin-go"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minio "github.com/minio/minio/cmd"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/colq/util/testutils"
)

/*
minioutil runs an in-process minio server for tests of the S3 storage
provider.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	testBucket      = "colq-test"
	accessKeyID     = "minioadmin"
	secretAccessKey = "minioadmin"
	startupTimeout  = 10 * time.Second
)

// NewServer starts a minio server on a random port and returns a client and
// an empty bucket to use in tests. The server's storage is removed when the
// test completes.
func NewServer(t *testing.T) (*mclient.Client, string) {
	t.Helper()
	ctx := context.Background()
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	addr := fmt.Sprintf("localhost:%d", port)

	madm, err := madmin.New(addr, accessKeyID, secretAccessKey, false)
	require.NoError(t, err)

	datadir := t.TempDir()
	go minio.Main([]string{"minio", "server", "--quiet", "--address", addr, datadir})
	waitForServer(ctx, t, madm)

	mc, err := mclient.New(addr, &mclient.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: false,
	})
	require.NoError(t, err)
	require.NoError(t, mc.MakeBucket(ctx, testBucket, mclient.MakeBucketOptions{}))

	t.Cleanup(func() {
		// Stopping the server before the test binary exits would trigger
		// os.Exit inside minio, so the stop is deferred.
		go func() {
			time.Sleep(5 * time.Second)
			_ = madm.ServiceStop(ctx)
		}()
	})
	return mc, testBucket
}

func waitForServer(ctx context.Context, t *testing.T, madm *madmin.AdminClient) {
	t.Helper()
	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		if _, err := madm.ServerInfo(ctx); err == nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("timeout waiting for minio server to start")
}
