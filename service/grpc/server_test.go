package grpc

import (
	"context"
	"emupatch/pkg/offset"
	"emupatch/pkg/proc"
	"emupatch/pkg/ram"
	"emupatch/pkg/session"
	"emupatch/pkg/signature"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthFollowsSignature(t *testing.T) {
	sig := signature.MustParse("01 02 ?? 04")
	img := proc.NewImage()
	require.NoError(t, img.Map(0x1000, sig.Fill(3)))
	r := ram.New(img, 0)

	table, err := offset.Resolve(r, offset.Version{ID: "T", Base: 0x1000, Width: 4, Signature: sig})
	require.NoError(t, err)
	s, err := session.New(r, table)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(lis, s, time.Hour)
	require.NoError(t, srv.Run())
	defer srv.Stop()

	st, err := srv.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)

	require.NoError(t, r.WriteBytes(0x1000, []byte{9}))
	srv.report()
	st, err = srv.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)
}
