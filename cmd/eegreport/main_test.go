package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/banshee-data/eeg.report/internal/bands"
	"github.com/banshee-data/eeg.report/internal/db"
	"github.com/banshee-data/eeg.report/internal/eeg"
	"github.com/banshee-data/eeg.report/internal/playback"
	"github.com/banshee-data/eeg.report/internal/report"
	"github.com/banshee-data/eeg.report/internal/testutil"
	"github.com/banshee-data/eeg.report/internal/timeutil"
	"github.com/banshee-data/eeg.report/internal/visualiser"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	return testutil.WriteFile(t, "session.csv", testutil.TwoSubjectsCSV)
}

// execute runs the CLI with args against a private log file and returns
// everything written to stdout and stderr.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-file", filepath.Join(t.TempDir(), "eegreport.log")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "eegreport "), out)
}

func TestSourceFlagsValidate(t *testing.T) {
	tests := []struct {
		name    string
		flags   sourceFlags
		wantErr bool
		noSrc   bool
	}{
		{name: "none", wantErr: true, noSrc: true},
		{name: "csv", flags: sourceFlags{csv: "a.csv"}},
		{name: "dataset", flags: sourceFlags{dataset: "id"}},
		{name: "synthetic", flags: sourceFlags{synthetic: true}},
		{name: "csv and synthetic", flags: sourceFlags{csv: "a.csv", synthetic: true}, wantErr: true},
		{name: "all", flags: sourceFlags{csv: "a.csv", dataset: "id", synthetic: true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flags.validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.noSrc, err == errNoSource)
		})
	}
}

func TestSourceFlagsLoad(t *testing.T) {
	ctx := context.Background()

	s := sourceFlags{csv: writeCSV(t)}
	ds, name, err := s.load(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "session.csv", name)
	assert.Equal(t, 2, ds.SubjectCount())

	s = sourceFlags{synthetic: true, subjects: 3, trials: 4, seed: 7}
	ds, name, err = s.load(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "synthetic (seed 7)", name)
	assert.Equal(t, 12, ds.TrialCount())

	s = sourceFlags{dataset: "abc"}
	_, _, err = s.load(ctx, nil)
	assert.Error(t, err)
}

func TestImportDatasetsAndReport(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	csvPath := writeCSV(t)

	out, err := execute(t, "--db", dbPath, "import", csvPath, "--name", "morning")
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out), "\t")
	require.GreaterOrEqual(t, len(fields), 2, out)
	id := fields[0]
	assert.Equal(t, "morning", fields[1])
	assert.Contains(t, out, "1 rows discarded")

	database, err := db.NewDB(dbPath)
	require.NoError(t, err)
	sums, err := database.Summaries(context.Background(), id)
	require.NoError(t, err)
	database.Close()
	assert.Len(t, sums, 2)

	out, err = execute(t, "--db", dbPath, "datasets")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "morning")

	out, err = execute(t, "--db", dbPath, "report", "--dataset", id, "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# EEG session report: morning")
	assert.Contains(t, out, "| S1 |")

	_, err = execute(t, "--db", dbPath, "datasets", "rm", id)
	require.NoError(t, err)
	out, err = execute(t, "--db", dbPath, "datasets")
	require.NoError(t, err)
	assert.Contains(t, out, "No datasets stored.")

	_, err = execute(t, "--db", dbPath, "datasets", "rm", id)
	assert.ErrorIs(t, err, db.ErrDatasetNotFound)
}

func TestReportJSONAndPlots(t *testing.T) {
	plots := filepath.Join(t.TempDir(), "plots")
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{
		"--log-file", filepath.Join(t.TempDir(), "log"),
		"report", "--csv", writeCSV(t), "--format", "json", "--plots", plots,
	})
	require.NoError(t, root.Execute())

	var sums []report.SubjectSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &sums))
	require.Len(t, sums, 2)
	assert.Equal(t, "S1", sums[0].Subject)

	assert.FileExists(t, filepath.Join(plots, "subject_S1.png"))
	assert.FileExists(t, filepath.Join(plots, "subject_S2.png"))
	assert.Contains(t, stderr.String(), "wrote")
}

func TestReportTerminal(t *testing.T) {
	out, err := execute(t, "report", "--synthetic", "--subjects", "2", "--trials", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "S01")
	assert.Contains(t, out, "S02")
}

func TestReportErrors(t *testing.T) {
	_, err := execute(t, "report")
	assert.ErrorIs(t, err, errNoSource)

	_, err = execute(t, "report", "--synthetic", "--save")
	assert.ErrorContains(t, err, "--save requires --dataset")

	_, err = execute(t, "report", "--synthetic", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestServeRejectsBadFlags(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := execute(t, "--db", dbPath, "serve", "--watch", "--synthetic")
	assert.ErrorContains(t, err, "--watch requires --csv")

	_, err = execute(t, "--db", dbPath, "serve", "--no-grpc", "--synthetic", "--csv", "x.csv")
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestServeStartupFailureReleasesHTTP(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	free, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	httpAddr := free.Addr().String()
	require.NoError(t, free.Close())

	errCh := make(chan error, 1)
	go func() {
		_, err := execute(t, "--db", filepath.Join(t.TempDir(), "test.db"), "serve", "--synthetic",
			"--listen", httpAddr, "--grpc-listen", busy.Addr().String())
		errCh <- err
	}()

	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "failed to listen for gRPC")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the gRPC listener failed")
	}

	lis, err := net.Listen("tcp", httpAddr)
	require.NoError(t, err, "HTTP address must not be held after a failed startup")
	lis.Close()
}

func TestMigrateCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	latest, err := db.LatestMigrationVersion()
	require.NoError(t, err)

	out, err := execute(t, "--db", dbPath, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0 of")

	out, err = execute(t, "--db", dbPath, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "clean")
	assert.Contains(t, out, "schema version "+itoa(latest)+" of "+itoa(latest))

	out, err = execute(t, "--db", dbPath, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version "+itoa(latest-1)+" of")
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "dashboard.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("trend_window: 3\ndatabase: "+filepath.Join(dir, "cfg.db")+"\n"), 0644))

	out, err := execute(t, "--config", cfgPath, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "clean")
	assert.FileExists(t, filepath.Join(dir, "cfg.db"))

	bad := filepath.Join(dir, "dashboard.toml")
	require.NoError(t, os.WriteFile(bad, []byte("x = 1"), 0644))
	_, err = execute(t, "--config", bad, "version")
	assert.Error(t, err)
}

func TestFormatFrame(t *testing.T) {
	assert.Equal(t, "#0 playing: no data loaded", formatFrame(playback.Frame{State: playback.Playing}))

	alert := bands.AlertMedium
	f := playback.Frame{
		Seq: 4, Ready: true, State: playback.Paused,
		Subject: "S2", SubjectPosition: 1, SubjectCount: 3,
		TrialIndex: 7, TrialPosition: 2, TrialCount: 5, Fraction: 0.25,
		Analysis: bands.Analysis{
			Severity:   0.42,
			TrendAlert: &alert,
			Symmetry:   &bands.Symmetry{BSI: -0.2, Class: bands.MildAsymmetry, Hemisphere: bands.HemisphereLeft},
		},
		ADR: bands.GaugeReading{Value: 1.5, Bucket: bands.BucketCaution},
		TAR: bands.GaugeReading{Value: 0.8, Bucket: bands.BucketGood},
	}
	line := formatFrame(f)
	for _, want := range []string{"#4", "paused", "subject S2 (2/3)", "trial 7 (3/5)", "25%", "severity 0.42", "[caution]", "[good]", "trend medium", "BSI -0.20 mild"} {
		assert.Contains(t, line, want)
	}
}

func TestRunControl(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1_000, 0))
	sched := playback.NewScheduler(playback.NewPlayer(playback.DefaultOptions()), clock, 50*time.Millisecond)
	pub := visualiser.NewPublisher(visualiser.DefaultConfig())
	sched.OnFrame(pub.Publish)
	pub.Start()
	sched.Start(context.Background())
	require.NoError(t, sched.Load(context.Background(), eeg.Synthetic(eeg.SyntheticConfig{Subjects: 2, Trials: 2, Seed: 1})))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	visualiser.RegisterService(srv, visualiser.NewServer(sched, pub))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		sched.Stop()
		pub.Stop()
	})
	client := visualiser.NewClient(conn)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, runControl(ctx, client, "status", time.Second, &out))
	assert.Contains(t, out.String(), "subject S01")

	out.Reset()
	require.NoError(t, runControl(ctx, client, "next", time.Second, &out))
	assert.Contains(t, out.String(), "subject S02")

	out.Reset()
	require.NoError(t, runControl(ctx, client, "toggle", time.Second, &out))
	assert.Contains(t, out.String(), "paused")

	assert.Error(t, runControl(ctx, client, "rewind", time.Second, &out))

	out.Reset()
	streamCtx, cancel := context.WithCancel(ctx)
	w := &cancelWriter{cancel: cancel}
	require.NoError(t, runControl(streamCtx, client, "stream", time.Second, w))
	assert.Contains(t, w.buf.String(), "subject S02")
}

// cancelWriter cancels its context after the first write.
type cancelWriter struct {
	buf    bytes.Buffer
	cancel context.CancelFunc
}

func (w *cancelWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	w.cancel()
	return n, err
}
