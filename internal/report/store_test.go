// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc2text/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger", "doc2text.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(doc string, started time.Time) *types.RunRecord {
	return &types.RunRecord{
		Document:   doc,
		OutputPath: strings.TrimSuffix(doc, filepath.Ext(doc)) + ".txt",
		Backend:    "llamacpp",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Pages:      2,
		Images:     2,
		Described:  1,
		Failed:     1,
		Leftovers:  0,
		Status:     types.RunConverted,
		Outcomes: []types.ImageOutcome{
			{Name: "p1-b3.png", Page: 1, Block: 3, Path: "images_tmp/p1-b3.png", Status: types.ImageDescribed},
			{Name: "p2-b0.jpeg", Page: 2, Block: 0, Path: "images_tmp/p2-b0.jpeg", Status: types.ImageFailed, Detail: "timeout"},
		},
	}
}

func TestRecordAndFetchRun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run := sampleRun("report.pdf", started)
	require.NoError(t, s.RecordRun(ctx, run))
	_, err := uuid.Parse(run.ID)
	require.NoError(t, err, "recorded run gets a uuid")

	got, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Document, got.Document)
	assert.Equal(t, run.OutputPath, got.OutputPath)
	assert.Equal(t, types.RunConverted, got.Status)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 3*time.Second, got.Duration())
	assert.Equal(t, run.Outcomes, got.Outcomes)

	byPrefix, err := s.Run(ctx, run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID, byPrefix.ID)
}

func TestRunNotFoundAndAmbiguous(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Run(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Run(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	a := sampleRun("a.pdf", time.Now())
	a.ID = "abc-1"
	b := sampleRun("b.pdf", time.Now())
	b.ID = "abc-2"
	require.NoError(t, s.RecordRun(ctx, a))
	require.NoError(t, s.RecordRun(ctx, b))

	_, err = s.Run(ctx, "abc")
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestRecordRunDuplicateID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	run := sampleRun("a.pdf", time.Now())
	require.NoError(t, s.RecordRun(ctx, run))

	dup := sampleRun("b.pdf", time.Now())
	dup.ID = run.ID
	assert.Error(t, s.RecordRun(ctx, dup))
}

func TestListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, doc := range []string{"first.pdf", "second.pdf", "third.pdf"} {
		require.NoError(t, s.RecordRun(ctx, sampleRun(doc, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "third.pdf", runs[0].Document)
	assert.Equal(t, "first.pdf", runs[2].Document)
	assert.Empty(t, runs[0].Outcomes, "list omits image outcomes")

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestFailedRunWithoutImages(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	run := &types.RunRecord{
		Document:   "broken.pdf",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Status:     types.RunFailed,
		Error:      "materializing p1-b0.png: image decode failed",
	}
	require.NoError(t, s.RecordRun(ctx, run))

	got, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, got.Status)
	assert.Equal(t, run.Error, got.Error)
	assert.Empty(t, got.OutputPath)
	assert.Empty(t, got.Outcomes)
}

func TestWriteYAML(t *testing.T) {
	run := sampleRun("report.pdf", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	run.ID = "6f1c"

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, *run))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "6f1c", got["id"])
	assert.Equal(t, "report.pdf", got["document"])
	assert.Equal(t, "converted", got["status"])
	assert.Equal(t, "3s", got["duration"])
	images, ok := got["images_detail"].([]any)
	require.True(t, ok)
	assert.Len(t, images, 2)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, nil)
	assert.Equal(t, "no runs recorded\n", buf.String())

	buf.Reset()
	run := sampleRun("report.pdf", time.Now())
	run.ID = "0123456789abcdef"
	WriteSummary(&buf, []types.RunRecord{*run})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "01234567  "))
	assert.Contains(t, out, "described=1 failed=1 leftovers=0  report.pdf")
}

func TestRunExactIDWinsOverPrefix(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	short := sampleRun("short.pdf", time.Now())
	short.ID = "abc"
	long := sampleRun("long.pdf", time.Now())
	long.ID = "abcdef"
	require.NoError(t, s.RecordRun(ctx, short))
	require.NoError(t, s.RecordRun(ctx, long))

	got, err := s.Run(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "short.pdf", got.Document)
}
