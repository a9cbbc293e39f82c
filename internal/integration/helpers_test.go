//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the duration of the test and
// returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("air-quality-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// writeStation writes an hourly PRSA-style CSV for station covering the given
// years, with a pollutant gap every 40 hours.
func writeStation(t *testing.T, dir, station string, fromYear, toYear int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("No,year,month,day,hour,PM2.5,TEMP,PRES,DEWP,WSPM,station\n")
	start := time.Date(fromYear, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(toYear+1, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, ts := 0, start; ts.Before(end); i, ts = i+1, ts.Add(time.Hour) {
		temp := 10 + 12*math.Sin(float64(i)/500)
		wind := float64(i%6) / 2
		pm := "NA"
		if i%40 != 13 {
			pm = strconv.FormatFloat(25+3*temp-4*wind+float64(i%5), 'f', 2, 64)
		}
		fmt.Fprintf(&b, "%d,%d,%d,%d,%d,%s,%.2f,%.2f,%.2f,%.2f,%s\n",
			i+1, ts.Year(), int(ts.Month()), ts.Day(), ts.Hour(), pm,
			temp, 1015-temp/2, temp-9, wind, station)
	}
	path := filepath.Join(dir, fmt.Sprintf("PRSA_Data_%s_%d0101-%d1231.csv", station, fromYear, toYear))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}
