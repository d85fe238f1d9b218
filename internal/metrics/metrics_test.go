package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersRegistered(t *testing.T) {
	before := testutil.ToFloat64(FramesProcessedTotal)
	FramesProcessedTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FramesProcessedTotal))

	StageDuration.WithLabelValues(StageGenerate).Observe(0.2)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(StageDuration), 1)
}

func TestStartServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	srv := StartServer(addr, log)
	defer srv.Shutdown(context.Background())

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/metrics")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "framectl_frames_processed_total")
}
